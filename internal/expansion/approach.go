package expansion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/prompt-general/cscx/pkg/models"
)

// ErrEmptyApproach is returned when the generator produced no usable text
var ErrEmptyApproach = eris.New("generated approach is empty")

const championPlaceholder = "the champion"

// approachTemplates are keyed by the signal type of the first signal
var approachTemplates = map[models.SignalType]string{
	models.SignalSeatUtilizationHigh: "1. Share current seat utilization with %s and identify teams waiting on licenses. " +
		"2. Propose a right-sized seat expansion with volume pricing. " +
		"3. Agree on a rollout date for the new users.",
	models.SignalAPIUsageSurge: "1. Review API consumption against plan limits with %s. " +
		"2. Present the higher tier's limits and performance guarantees. " +
		"3. Schedule the upgrade before throttling affects production workloads.",
	models.SignalMultiYearAvailable: "1. Walk %s through the value delivered this term. " +
		"2. Offer multi-year pricing with price protection. " +
		"3. Align the multi-year proposal with their budget cycle.",
	models.SignalMissingProducts: "1. Ask %s which adjacent workflows the team handles outside the platform. " +
		"2. Demo the products they have not adopted yet. " +
		"3. Propose a pilot bundle for one team.",
	models.SignalExecGrowthGoals: "1. Map the executive growth goals to platform capabilities with %s. " +
		"2. Build a joint success plan with measurable targets. " +
		"3. Present an expansion proposal tied to those targets.",
	models.SignalComparisonShopping: "1. Meet with %s to understand which alternatives are being evaluated and why. " +
		"2. Share a side-by-side value comparison and customer references. " +
		"3. Offer an expansion incentive that rewards consolidation.",
}

const genericApproachTemplate = "1. Schedule a strategic review with %s to confirm business priorities. " +
	"2. Share usage insights and the expansion options that fit them. " +
	"3. Agree on next steps and a decision timeline."

// ApproachInput is the context embedded in the approach prompt
type ApproachInput struct {
	CustomerName string
	CurrentARR   float64
	HealthScore  int
	Champion     *models.Stakeholder
	Signals      []models.ExpansionSignal
}

// ApproachGenerator writes next-step guidance. The generative path is bounded by
// a timeout and always degrades to a deterministic template.
type ApproachGenerator struct {
	generator TextGenerator
	timeout   time.Duration
}

// NewApproachGenerator creates an approach generator. generator may be nil.
func NewApproachGenerator(generator TextGenerator, timeout time.Duration) *ApproachGenerator {
	return &ApproachGenerator{generator: generator, timeout: timeout}
}

// Generate returns the generated plan, or the fallback template when generation fails
func (a *ApproachGenerator) Generate(ctx context.Context, in ApproachInput) string {
	text, err := a.Primary(ctx, in)
	if err == nil {
		return text
	}
	zap.L().Info("expansion: using fallback approach",
		zap.String("customer", in.CustomerName),
		zap.Error(err),
	)
	return FallbackApproach(in.Signals, in.Champion)
}

// Primary asks the text generator for a short action plan
func (a *ApproachGenerator) Primary(ctx context.Context, in ApproachInput) (string, error) {
	if a == nil || a.generator == nil {
		return "", eris.New("no text generator configured")
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	type completion struct {
		text string
		err  error
	}
	done := make(chan completion, 1)
	prompt := BuildApproachPrompt(in)
	go func() {
		text, err := a.generator.GenerateText(ctx, prompt)
		done <- completion{text: text, err: err}
	}()

	var text string
	select {
	case c := <-done:
		if c.err != nil {
			return "", eris.Wrap(c.err, "generate approach")
		}
		text = c.text
	case <-ctx.Done():
		return "", eris.Wrap(ctx.Err(), "generate approach")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyApproach
	}
	return text, nil
}

// BuildApproachPrompt renders the prompt sent to the text generator
func BuildApproachPrompt(in ApproachInput) string {
	champion := "No champion identified"
	if in.Champion != nil {
		champion = fmt.Sprintf("%s (%s)", in.Champion.Name, in.Champion.Role)
	}

	var signals strings.Builder
	for _, signal := range in.Signals {
		signals.WriteString(fmt.Sprintf("- %s\n", signal.Description))
	}

	return fmt.Sprintf(`You are a customer success strategist planning an account expansion.

Customer: %s
ARR: $%.0f
Health score: %d
Champion: %s

Expansion signals:
%s
Write a numbered action plan of 2-3 steps, under 100 words, for approaching this expansion.`,
		in.CustomerName, in.CurrentARR, in.HealthScore, champion, signals.String())
}

// FallbackApproach picks a fixed template by the first signal's type. It never returns
// an empty string.
func FallbackApproach(signals []models.ExpansionSignal, champion *models.Stakeholder) string {
	name := championPlaceholder
	if champion != nil && strings.TrimSpace(champion.Name) != "" {
		name = champion.Name
	}

	template := genericApproachTemplate
	if len(signals) > 0 {
		if t, ok := approachTemplates[signals[0].SignalType]; ok {
			template = t
		}
	}
	return fmt.Sprintf(template, name)
}
