package expansion

import (
	"math"

	"github.com/prompt-general/cscx/pkg/models"
)

// Value multipliers applied to current ARR per opportunity type
const (
	seatBaseMultiplier    = 0.2
	seatMultiplierSlope   = 3.0
	seatMaxMultiplier     = 0.5
	seatImmediateAbove    = 0.95
	tierUpgradeMultiplier = 0.4
	crossSellMultiplier   = 0.35
	upsellMultiplier      = 0.25
)

// Classification is the type, value and timing chosen for a signal set
type Classification struct {
	Type            models.OpportunityType `json:"type"`
	Multiplier      float64                `json:"multiplier"`
	EstimatedValue  int64                  `json:"estimated_value"`
	Timeline        models.Timeline        `json:"timeline"`
	BaseTimeline    models.Timeline        `json:"base_timeline"`
	RenewalOverride bool                   `json:"renewal_override"`
}

// Classifier maps signals to an opportunity type with a fixed precedence.
// When several types co-occur only the highest-precedence one is kept.
type Classifier struct {
	config Config
}

// NewClassifier creates a new classifier
func NewClassifier(config Config) *Classifier {
	return &Classifier{config: config}
}

// Classify picks type, multiplier and timeline, then applies the renewal override
func (c *Classifier) Classify(signals []models.ExpansionSignal, currentARR float64, daysToRenewal *int) Classification {
	present := make(map[models.SignalType]models.ExpansionSignal, len(signals))
	for _, signal := range signals {
		if _, ok := present[signal.SignalType]; !ok {
			present[signal.SignalType] = signal
		}
	}
	has := func(t models.SignalType) bool {
		_, ok := present[t]
		return ok
	}

	var result Classification
	switch {
	case has(models.SignalSeatUtilizationHigh):
		utilization := c.config.SeatUtilizationThreshold
		if u := present[models.SignalSeatUtilizationHigh].Metadata.Utilization; u != nil {
			utilization = *u
		}
		result.Type = models.OpportunitySeatExpansion
		result.Multiplier = math.Min(seatMaxMultiplier,
			(utilization-c.config.SeatUtilizationThreshold)*seatMultiplierSlope+seatBaseMultiplier)
		result.Timeline = models.Timeline30Days
		if utilization > seatImmediateAbove {
			result.Timeline = models.TimelineImmediate
		}

	case has(models.SignalAPIUsageSurge) || has(models.SignalUsageGrowth):
		result.Type = models.OpportunityTierUpgrade
		result.Multiplier = tierUpgradeMultiplier
		result.Timeline = models.Timeline30Days
		if has(models.SignalAPIUsageSurge) {
			result.Timeline = models.TimelineImmediate
		}

	case has(models.SignalMissingProducts) || has(models.SignalComparisonShopping):
		result.Type = models.OpportunityCrossSell
		result.Multiplier = crossSellMultiplier
		result.Timeline = models.Timeline60Days

	default:
		result.Type = models.OpportunityUpsell
		result.Multiplier = upsellMultiplier
		result.Timeline = models.Timeline60Days
		if has(models.SignalExecGrowthGoals) {
			result.Timeline = models.Timeline30Days
		}
	}

	result.EstimatedValue = int64(math.Round(currentARR * result.Multiplier))
	result.BaseTimeline = result.Timeline

	// Renewal guardrail: always applied last.
	if c.renewalImminent(daysToRenewal) {
		result.Timeline = models.TimelineNextRenewal
		result.RenewalOverride = true
	}

	return result
}

func (c *Classifier) renewalImminent(daysToRenewal *int) bool {
	return daysToRenewal != nil && *daysToRenewal >= 0 && *daysToRenewal <= c.config.RenewalOverrideDays
}
