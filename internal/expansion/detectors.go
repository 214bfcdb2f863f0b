package expansion

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/prompt-general/cscx/pkg/models"
)

// Provenance tags for detected signals
const (
	SourceUsageMetrics    = "usage_metrics"
	SourceContracts       = "contracts"
	SourceProductCatalog  = "product_catalog"
	SourceMeetingAnalyses = "meeting_analyses"
)

// Detector turns one family of raw customer facts into expansion signals.
// A detector may return partial signals together with an error.
type Detector interface {
	Name() string
	Detect(ctx context.Context, customer *models.Customer, now time.Time) ([]models.ExpansionSignal, error)
}

// UsageDetector looks for seat, API quota and growth pressure in usage rows
type UsageDetector struct {
	source UsageSource
	config Config
}

// NewUsageDetector creates a new usage detector
func NewUsageDetector(source UsageSource, config Config) *UsageDetector {
	return &UsageDetector{source: source, config: config}
}

func (d *UsageDetector) Name() string { return "usage" }

func (d *UsageDetector) Detect(ctx context.Context, customer *models.Customer, now time.Time) ([]models.ExpansionSignal, error) {
	rows, err := d.source.FetchUsageMetrics(ctx, customer.ID, d.config.UsageWindow)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch usage metrics for %s", customer.ID)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var signals []models.ExpansionSignal
	latest := rows[0]

	if customer.ContractedSeats > 0 {
		utilization := float64(latest.ActiveUsers) / float64(customer.ContractedSeats)
		if utilization >= d.config.SeatUtilizationThreshold {
			description := fmt.Sprintf("%d of %d contracted seats active (%.0f%% utilization)",
				latest.ActiveUsers, customer.ContractedSeats, utilization*100)
			signals = append(signals, models.ExpansionSignal{
				Category:    models.CategoryUsage,
				SignalType:  models.SignalSeatUtilizationHigh,
				Description: description,
				Strength:    percentStrength(utilization),
				Source:      SourceUsageMetrics,
				DetectedAt:  now,
				Metadata:    models.SignalMetadata{Utilization: floatPtr(utilization)},
			})
		}
	}

	if customer.APILimit > 0 {
		utilization := float64(latest.APICalls) / float64(customer.APILimit)
		if utilization >= d.config.APIUtilizationThreshold {
			description := fmt.Sprintf("%d of %d API calls used (%.0f%% of plan limit)",
				latest.APICalls, customer.APILimit, utilization*100)
			signals = append(signals, models.ExpansionSignal{
				Category:    models.CategoryUsage,
				SignalType:  models.SignalAPIUsageSurge,
				Description: description,
				Strength:    percentStrength(utilization),
				Source:      SourceUsageMetrics,
				DetectedAt:  now,
				Metadata:    models.SignalMetadata{Utilization: floatPtr(utilization)},
			})
		}
	}

	if rate, ok := d.growthRate(rows); ok && rate >= d.config.UsageGrowthThreshold {
		signals = append(signals, models.ExpansionSignal{
			Category:    models.CategoryUsage,
			SignalType:  models.SignalUsageGrowth,
			Description: fmt.Sprintf("Active users grew %.0f%% week over week", rate*100),
			Strength:    clampStrength(int(math.Round(50 + rate*100))),
			Source:      SourceUsageMetrics,
			DetectedAt:  now,
			Metadata:    models.SignalMetadata{GrowthRate: floatPtr(rate)},
		})
	}

	return signals, nil
}

// growthRate compares the mean of the most recent samples with the mean of the
// samples just before them. It reports false when growth is undefined.
func (d *UsageDetector) growthRate(rows []models.UsageMetric) (float64, bool) {
	n := d.config.GrowthSampleSize
	if n <= 0 || len(rows) < 2*n {
		return 0, false
	}
	recent := meanActiveUsers(rows[:n])
	previous := meanActiveUsers(rows[n : 2*n])
	if previous == 0 {
		return 0, false
	}
	return (recent - previous) / previous, true
}

// ContractDetector looks for entitlement pressure, short terms and catalog whitespace
type ContractDetector struct {
	source ContractSource
	config Config
}

// NewContractDetector creates a new contract detector
func NewContractDetector(source ContractSource, config Config) *ContractDetector {
	return &ContractDetector{source: source, config: config}
}

func (d *ContractDetector) Name() string { return "contract" }

func (d *ContractDetector) Detect(ctx context.Context, customer *models.Customer, now time.Time) ([]models.ExpansionSignal, error) {
	contract, err := d.source.FetchContract(ctx, customer.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch contract for %s", customer.ID)
	}
	if contract == nil {
		return nil, nil
	}

	var signals []models.ExpansionSignal
	contracted := make(map[string]bool, len(contract.Entitlements))

	for _, ent := range contract.Entitlements {
		if ent.ProductID != "" {
			contracted[ent.ProductID] = true
		}
		if ent.UsageLimit <= 0 {
			continue
		}
		utilization := ent.UsageCurrent / ent.UsageLimit
		if utilization < d.config.EntitlementThreshold {
			continue
		}
		description := fmt.Sprintf("%s entitlement at %.0f%% of limit (%.0f of %.0f)",
			ent.Type, utilization*100, ent.UsageCurrent, ent.UsageLimit)
		signals = append(signals, models.ExpansionSignal{
			Category:    models.CategoryContract,
			SignalType:  models.SignalEntitlementNearLimit,
			Description: description,
			Strength:    percentStrength(utilization),
			Source:      SourceContracts,
			DetectedAt:  now,
			Metadata: models.SignalMetadata{
				Utilization: floatPtr(utilization),
				Entitlement: ent.Type,
			},
		})
	}

	if months := termMonths(contract.StartDate, contract.EndDate); months > 0 && months <= d.config.SingleYearMaxMonths {
		signals = append(signals, models.ExpansionSignal{
			Category:    models.CategoryContract,
			SignalType:  models.SignalMultiYearAvailable,
			Description: fmt.Sprintf("Current contract term is %d months; candidate for a multi-year agreement", months),
			Strength:    clampStrength(d.config.MultiYearStrength),
			Source:      SourceContracts,
			DetectedAt:  now,
			Metadata:    models.SignalMetadata{TermMonths: months},
		})
	}

	catalog, err := d.source.FetchProductCatalog(ctx)
	if err != nil {
		return signals, eris.Wrap(err, "fetch product catalog")
	}
	var missing []string
	for _, product := range catalog {
		if !contracted[product.ID] {
			missing = append(missing, product.Name)
		}
	}
	if len(missing) > 0 {
		signals = append(signals, models.ExpansionSignal{
			Category:    models.CategoryWhitespace,
			SignalType:  models.SignalMissingProducts,
			Description: fmt.Sprintf("%d catalog products not yet purchased: %s", len(missing), strings.Join(missing, ", ")),
			Strength:    clampStrength(d.config.MissingProductStrength),
			Source:      SourceProductCatalog,
			DetectedAt:  now,
			Metadata:    models.SignalMetadata{MissingProducts: missing},
		})
	}

	return signals, nil
}

// StakeholderDetector looks for buying intent in recent meeting analyses
type StakeholderDetector struct {
	source MeetingSource
	config Config
}

// NewStakeholderDetector creates a new stakeholder detector
func NewStakeholderDetector(source MeetingSource, config Config) *StakeholderDetector {
	return &StakeholderDetector{source: source, config: config}
}

func (d *StakeholderDetector) Name() string { return "stakeholder" }

func (d *StakeholderDetector) Detect(ctx context.Context, customer *models.Customer, now time.Time) ([]models.ExpansionSignal, error) {
	meetings, err := d.source.FetchMeetingSignals(ctx, customer.ID, now.Add(-d.config.MeetingLookback))
	if err != nil {
		return nil, eris.Wrapf(err, "fetch meeting signals for %s", customer.ID)
	}

	var budget, newDepartment, execGoals, comparison int
	var competitors []string
	seenCompetitor := make(map[string]bool)

	for _, meeting := range meetings {
		if mentionsBudget(meeting.KeyTopics) {
			budget++
		}
		var hasNewDepartment, hasExecGoals bool
		for _, hint := range meeting.ExpansionSignals {
			switch classifyHint(hint) {
			case models.SignalNewDepartment:
				hasNewDepartment = true
			case models.SignalExecGrowthGoals:
				hasExecGoals = true
			}
		}
		if hasNewDepartment {
			newDepartment++
		}
		if hasExecGoals {
			execGoals++
		}
		if len(meeting.CompetitorMentions) > 0 {
			comparison++
			for _, name := range meeting.CompetitorMentions {
				key := strings.ToLower(strings.TrimSpace(name))
				if key == "" || seenCompetitor[key] {
					continue
				}
				seenCompetitor[key] = true
				competitors = append(competitors, strings.TrimSpace(name))
			}
		}
	}

	var signals []models.ExpansionSignal
	emit := func(count int, signalType models.SignalType, strength int, description string, meta models.SignalMetadata) {
		if count == 0 {
			return
		}
		meta.MeetingCount = count
		signals = append(signals, models.ExpansionSignal{
			Category:    models.CategoryStakeholder,
			SignalType:  signalType,
			Description: description,
			Strength:    clampStrength(strength),
			Source:      SourceMeetingAnalyses,
			DetectedAt:  now,
			Metadata:    meta,
		})
	}

	emit(budget, models.SignalBudgetDiscussed, d.config.BudgetStrength,
		fmt.Sprintf("Budget discussed in %d meeting(s) in the last %d days", budget, lookbackDays(d.config.MeetingLookback)),
		models.SignalMetadata{})
	emit(newDepartment, models.SignalNewDepartment, d.config.NewDepartmentStrength,
		fmt.Sprintf("New department interest raised in %d meeting(s)", newDepartment),
		models.SignalMetadata{})
	emit(execGoals, models.SignalExecGrowthGoals, d.config.ExecGrowthGoalsStrength,
		fmt.Sprintf("Executive growth goals shared in %d meeting(s)", execGoals),
		models.SignalMetadata{})
	emit(comparison, models.SignalComparisonShopping, d.config.ComparisonShoppingStrength,
		fmt.Sprintf("%d competitor(s) mentioned across %d meeting(s): %s", len(competitors), comparison, strings.Join(competitors, ", ")),
		models.SignalMetadata{Competitors: competitors})

	return signals, nil
}

func mentionsBudget(topics []string) bool {
	for _, topic := range topics {
		if strings.Contains(strings.ToLower(topic), "budget") {
			return true
		}
	}
	return false
}

// classifyHint reads the hint type first and falls back to its free-text
// description when the type is generic.
func classifyHint(hint models.MeetingExpansionSignal) models.SignalType {
	switch t := models.SignalType(normalizeHintType(hint.Type)); t {
	case models.SignalNewDepartment, models.SignalExecGrowthGoals:
		return t
	}
	text := strings.ToLower(hint.Type + " " + hint.Description)
	switch {
	case strings.Contains(text, "new department"), strings.Contains(text, "new team"),
		strings.Contains(text, "another department"):
		return models.SignalNewDepartment
	case strings.Contains(text, "growth goal"), strings.Contains(text, "growth target"),
		strings.Contains(text, "growth plan"):
		return models.SignalExecGrowthGoals
	}
	return ""
}

func normalizeHintType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(t)
}

func meanActiveUsers(rows []models.UsageMetric) float64 {
	if len(rows) == 0 {
		return 0
	}
	var total int
	for _, row := range rows {
		total += row.ActiveUsers
	}
	return float64(total) / float64(len(rows))
}

// termMonths counts whole calendar months between start and end
func termMonths(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if end.Day() < start.Day() {
		months--
	}
	if months < 1 {
		months = 1
	}
	return months
}

func lookbackDays(d time.Duration) int {
	return int(d.Hours() / 24)
}

func percentStrength(ratio float64) int {
	return clampStrength(int(math.Round(ratio * 100)))
}

func clampStrength(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func floatPtr(v float64) *float64 {
	return &v
}
