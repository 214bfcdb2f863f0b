package expansion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompt-general/cscx/pkg/models"
)

func approachInput() ApproachInput {
	return ApproachInput{
		CustomerName: "Initech",
		CurrentARR:   180000,
		HealthScore:  88,
		Champion:     &models.Stakeholder{Name: "Dana", Role: "Executive Sponsor"},
		Signals: []models.ExpansionSignal{
			{SignalType: models.SignalSeatUtilizationHigh, Description: "48 of 50 contracted seats active"},
		},
	}
}

func TestApproachGenerator_UsesGeneratedText(t *testing.T) {
	gen := &fakeGenerator{text: "  1. Call Dana. 2. Send the proposal.  "}
	approach := NewApproachGenerator(gen, time.Second).Generate(context.Background(), approachInput())

	assert.Equal(t, "1. Call Dana. 2. Send the proposal.", approach)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Initech")
	assert.Contains(t, gen.prompts[0], "Dana (Executive Sponsor)")
	assert.Contains(t, gen.prompts[0], "- 48 of 50 contracted seats active")
	assert.Contains(t, gen.prompts[0], "under 100 words")
}

func TestApproachGenerator_FallsBack(t *testing.T) {
	tests := []struct {
		name string
		gen  TextGenerator
	}{
		{"no generator", nil},
		{"generator error", &fakeGenerator{err: errBoom}},
		{"empty output", &fakeGenerator{text: "   "}},
		{"timeout", &fakeGenerator{text: "late", delay: time.Second}},
	}

	want := FallbackApproach(approachInput().Signals, approachInput().Champion)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			approach := NewApproachGenerator(tt.gen, 20*time.Millisecond).Generate(context.Background(), approachInput())
			assert.Equal(t, want, approach)
		})
	}
}

// blockingGenerator sleeps without watching its context
type blockingGenerator struct {
	delay time.Duration
	text  string
}

func (b blockingGenerator) GenerateText(context.Context, string) (string, error) {
	time.Sleep(b.delay)
	return b.text, nil
}

func TestApproachGenerator_TimeoutIgnoredByGenerator(t *testing.T) {
	gen := blockingGenerator{delay: 500 * time.Millisecond, text: "1. Late plan."}

	start := time.Now()
	approach := NewApproachGenerator(gen, 20*time.Millisecond).Generate(context.Background(), approachInput())
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 250*time.Millisecond)
	assert.Equal(t, FallbackApproach(approachInput().Signals, approachInput().Champion), approach)

	_, err := NewApproachGenerator(gen, 20*time.Millisecond).Primary(context.Background(), approachInput())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestApproachGenerator_PrimaryErrors(t *testing.T) {
	_, err := NewApproachGenerator(&fakeGenerator{text: ""}, time.Second).Primary(context.Background(), approachInput())
	assert.ErrorIs(t, err, ErrEmptyApproach)
}

func TestFallbackApproach(t *testing.T) {
	champion := &models.Stakeholder{Name: "Dana"}

	seat := FallbackApproach([]models.ExpansionSignal{{SignalType: models.SignalSeatUtilizationHigh}}, champion)
	assert.Contains(t, seat, "Dana")
	assert.Contains(t, seat, "seat")

	competitive := FallbackApproach([]models.ExpansionSignal{{SignalType: models.SignalComparisonShopping}}, nil)
	assert.Contains(t, competitive, "the champion")

	generic := FallbackApproach([]models.ExpansionSignal{{SignalType: models.SignalUsageGrowth}}, champion)
	assert.Contains(t, generic, "strategic review with Dana")
}

func TestFallbackApproach_NeverEmpty(t *testing.T) {
	signalTypes := []models.SignalType{
		models.SignalSeatUtilizationHigh,
		models.SignalAPIUsageSurge,
		models.SignalUsageGrowth,
		models.SignalEntitlementNearLimit,
		models.SignalMultiYearAvailable,
		models.SignalMissingProducts,
		models.SignalBudgetDiscussed,
		models.SignalNewDepartment,
		models.SignalExecGrowthGoals,
		models.SignalComparisonShopping,
		"unknown",
	}
	for _, st := range signalTypes {
		approach := FallbackApproach([]models.ExpansionSignal{{SignalType: st}}, nil)
		assert.NotEmpty(t, approach, string(st))
		assert.NotContains(t, approach, "%!")
	}
	assert.NotEmpty(t, FallbackApproach(nil, nil))
}
