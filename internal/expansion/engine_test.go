package expansion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompt-general/cscx/pkg/models"
)

func TestEngine_SeatExpansionScenario(t *testing.T) {
	customer := models.Customer{
		ID:              "c1",
		Name:            "Initech",
		Stage:           models.StageActive,
		ARR:             180000,
		HealthScore:     intPtr(88),
		RenewalDate:     timePtr(testNow.AddDate(0, 0, 230)),
		ContractedSeats: 50,
	}
	sources := Sources{
		Customers: newFakeCustomers(customer),
		Usage: &fakeUsage{rows: map[string][]models.UsageMetric{
			"c1": {{Date: testNow, ActiveUsers: 48}},
		}},
	}

	engine := NewEngine(DefaultConfig(), sources, nil, WithClock(fixedClock))
	opp, err := engine.GetCustomerOpportunity(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, opp)

	assert.NotEmpty(t, opp.ID)
	assert.Equal(t, "Initech", opp.CustomerName)
	assert.Equal(t, models.OpportunitySeatExpansion, opp.OpportunityType)
	assert.Equal(t, int64(68400), opp.EstimatedValue)
	assert.Equal(t, models.TimelineImmediate, opp.Timeline)
	require.Len(t, opp.Signals, 1)
	assert.Equal(t, 96, opp.Signals[0].Strength)

	// 0.35*96 + 0.25*88 + 0.2*50 + 0.2*50
	assert.Equal(t, 76, opp.ConfidenceScore)
	assert.Equal(t, models.ConfidenceHigh, opp.ConfidenceLevel)

	require.NotNil(t, opp.DaysToRenewal)
	assert.Equal(t, 230, *opp.DaysToRenewal)
	assert.Equal(t, 88, opp.HealthScore)
	assert.Nil(t, opp.Champion)
	assert.NotEmpty(t, opp.SuggestedApproach)
	assert.Equal(t, []string{"No strong champion engagement; build stakeholder support before proposing"}, opp.Blockers)
	assert.Equal(t, testNow, opp.DetectedAt)
	assert.Equal(t, testNow, opp.LastUpdated)
}

func TestEngine_SingleYearContractScenario(t *testing.T) {
	customer := models.Customer{ID: "c2", Name: "Globex", Stage: models.StageActive, ARR: 100000}
	sources := Sources{
		Customers: newFakeCustomers(customer),
		Usage:     &fakeUsage{},
		Contracts: &fakeContracts{contracts: map[string]*models.Contract{
			"c2": {ID: "k2", StartDate: testNow.AddDate(0, -2, 0), EndDate: testNow.AddDate(0, 10, 0)},
		}},
		Meetings: &fakeMeetings{},
	}

	opp, err := NewEngine(DefaultConfig(), sources, nil, WithClock(fixedClock)).GetCustomerOpportunity(context.Background(), "c2")
	require.NoError(t, err)
	require.NotNil(t, opp)

	require.Len(t, opp.Signals, 1)
	assert.Equal(t, models.SignalMultiYearAvailable, opp.Signals[0].SignalType)
	assert.Equal(t, 65, opp.Signals[0].Strength)
	assert.Equal(t, models.OpportunityUpsell, opp.OpportunityType)
	assert.Equal(t, int64(25000), opp.EstimatedValue)
	assert.Equal(t, models.Timeline60Days, opp.Timeline)
	assert.Equal(t, 50, opp.HealthScore)
	assert.Nil(t, opp.DaysToRenewal)
}

func TestEngine_RenewalOverrideScenario(t *testing.T) {
	customer := models.Customer{
		ID:              "c3",
		Name:            "Hooli",
		Stage:           models.StageActive,
		ARR:             100000,
		HealthScore:     intPtr(80),
		RenewalDate:     timePtr(testNow.AddDate(0, 0, 45)),
		ContractedSeats: 50,
	}
	sources := Sources{
		Customers: newFakeCustomers(customer),
		Usage:     &fakeUsage{rows: map[string][]models.UsageMetric{"c3": {{Date: testNow, ActiveUsers: 46}}}},
	}

	opp, err := NewEngine(DefaultConfig(), sources, nil, WithClock(fixedClock)).GetCustomerOpportunity(context.Background(), "c3")
	require.NoError(t, err)
	require.NotNil(t, opp)
	assert.Equal(t, models.OpportunitySeatExpansion, opp.OpportunityType)
	assert.Equal(t, models.TimelineNextRenewal, opp.Timeline)
}

func TestEngine_WeakChampionScenario(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ComparisonShoppingStrength = 60

	customer := models.Customer{ID: "c4", Name: "Umbrella", Stage: models.StageActive, ARR: 50000, HealthScore: intPtr(55)}
	sources := Sources{
		Customers: newFakeCustomers(customer),
		Meetings: &fakeMeetings{meetings: map[string][]models.MeetingAnalysis{
			"c4": {{CompetitorMentions: []string{"Acme"}, AnalyzedAt: testNow.AddDate(0, 0, -2)}},
		}},
	}

	opp, err := NewEngine(cfg, sources, nil, WithClock(fixedClock)).GetCustomerOpportunity(context.Background(), "c4")
	require.NoError(t, err)
	require.NotNil(t, opp)
	assert.Contains(t, opp.Blockers, "Health score is 55; address product concerns first")
	assert.Contains(t, opp.Blockers, "No strong champion engagement; build stakeholder support before proposing")
}

func TestEngine_NoSignalsYieldsNoOpportunity(t *testing.T) {
	customer := models.Customer{ID: "c5", Name: "Quiet Co", Stage: models.StageActive, ARR: 10000, ContractedSeats: 100}
	generator := &fakeGenerator{text: "should not be called"}
	sources := Sources{
		Customers: newFakeCustomers(customer),
		Usage:     &fakeUsage{rows: map[string][]models.UsageMetric{"c5": {{Date: testNow, ActiveUsers: 10}}}},
		Contracts: &fakeContracts{},
		Meetings:  &fakeMeetings{},
	}

	opp, err := NewEngine(DefaultConfig(), sources, generator, WithClock(fixedClock)).GetCustomerOpportunity(context.Background(), "c5")
	require.NoError(t, err)
	assert.Nil(t, opp)
	assert.Empty(t, generator.prompts)
}

func TestEngine_UnknownCustomer(t *testing.T) {
	engine := NewEngine(DefaultConfig(), Sources{Customers: newFakeCustomers()}, nil)
	_, err := engine.GetCustomerOpportunity(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestEngine_DetectorFailureIsIsolated(t *testing.T) {
	customer := models.Customer{ID: "c6", Name: "Soylent", Stage: models.StageActive, ARR: 40000}
	sources := Sources{
		Customers: newFakeCustomers(customer),
		Usage:     &fakeUsage{err: errBoom},
		Contracts: &fakeContracts{
			contracts: map[string]*models.Contract{"c6": {StartDate: testNow, EndDate: testNow.AddDate(1, 0, 0)}},
		},
		Meetings: &fakeMeetings{err: errBoom},
	}

	opp, err := NewEngine(DefaultConfig(), sources, nil, WithClock(fixedClock)).GetCustomerOpportunity(context.Background(), "c6")
	require.NoError(t, err)
	require.NotNil(t, opp)
	require.Len(t, opp.Signals, 1)
	assert.Equal(t, models.SignalMultiYearAvailable, opp.Signals[0].SignalType)
}

func TestEngine_ChampionAndHistory(t *testing.T) {
	customer := models.Customer{
		ID:              "c7",
		Name:            "Vandelay",
		Stage:           models.StageActive,
		ARR:             100000,
		HealthScore:     intPtr(80),
		ContractedSeats: 10,
	}
	generator := &fakeGenerator{text: "1. Call Ana. 2. Propose 5 seats."}
	sources := Sources{
		Customers: newFakeCustomers(customer),
		Usage:     &fakeUsage{rows: map[string][]models.UsageMetric{"c7": {{Date: testNow, ActiveUsers: 10}}}},
		Stakeholders: &fakeStakeholders{records: map[string][]models.StakeholderRecord{
			"c7": {{ID: "s1", Name: "Ana", Role: "Decision Maker", Sentiment: "positive"}},
		}},
		History: &fakeHistory{activities: 10, closedWon: 4},
	}

	opp, err := NewEngine(DefaultConfig(), sources, generator, WithClock(fixedClock)).GetCustomerOpportunity(context.Background(), "c7")
	require.NoError(t, err)
	require.NotNil(t, opp)

	require.NotNil(t, opp.Champion)
	assert.Equal(t, "Ana", opp.Champion.Name)
	assert.True(t, opp.Champion.IsChampion)
	assert.Equal(t, "1. Call Ana. 2. Propose 5 seats.", opp.SuggestedApproach)

	// 0.35*100 + 0.25*80 + 0.2*100 + 0.2*100
	assert.Equal(t, 95, opp.ConfidenceScore)
}

func TestEngine_HistoryFailureUsesBaseline(t *testing.T) {
	customer := models.Customer{ID: "c8", Name: "Wonka", Stage: models.StageActive, ARR: 100000, HealthScore: intPtr(80), ContractedSeats: 10}
	sources := Sources{
		Customers: newFakeCustomers(customer),
		Usage:     &fakeUsage{rows: map[string][]models.UsageMetric{"c8": {{Date: testNow, ActiveUsers: 10}}}},
		History:   &fakeHistory{err: errBoom},
	}

	opp, err := NewEngine(DefaultConfig(), sources, nil, WithClock(fixedClock)).GetCustomerOpportunity(context.Background(), "c8")
	require.NoError(t, err)
	require.NotNil(t, opp)
	// 0.35*100 + 0.25*80 + 0.2*50 + 0.2*50
	assert.Equal(t, 75, opp.ConfidenceScore)
}

func TestEngine_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine(DefaultConfig(), Sources{Customers: newFakeCustomers()}, nil)
	_, err := engine.Assemble(ctx, &models.Customer{ID: "c1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDaysUntil(t *testing.T) {
	assert.Nil(t, DaysUntil(nil, testNow))

	days := DaysUntil(timePtr(testNow.Add(229*24*time.Hour+time.Hour)), testNow)
	require.NotNil(t, days)
	assert.Equal(t, 230, *days)

	days = DaysUntil(timePtr(testNow.AddDate(0, 0, -3)), testNow)
	require.NotNil(t, days)
	assert.Equal(t, -3, *days)
}
