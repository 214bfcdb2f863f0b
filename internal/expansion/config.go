package expansion

import (
	"math"
	"time"

	"github.com/rotisserie/eris"
)

// Config holds every weight and threshold used by the expansion engine
type Config struct {
	// Usage detector
	SeatUtilizationThreshold float64 `yaml:"seat_utilization_threshold"`
	APIUtilizationThreshold  float64 `yaml:"api_utilization_threshold"`
	UsageGrowthThreshold     float64 `yaml:"usage_growth_threshold"`
	UsageWindow              int     `yaml:"usage_window"`
	GrowthSampleSize         int     `yaml:"growth_sample_size"`

	// Contract detector
	EntitlementThreshold   float64 `yaml:"entitlement_threshold"`
	SingleYearMaxMonths    int     `yaml:"single_year_max_months"`
	MultiYearStrength      int     `yaml:"multi_year_strength"`
	MissingProductStrength int     `yaml:"missing_product_strength"`

	// Stakeholder detector
	MeetingLookback            time.Duration `yaml:"meeting_lookback"`
	BudgetStrength             int           `yaml:"budget_strength"`
	NewDepartmentStrength      int           `yaml:"new_department_strength"`
	ExecGrowthGoalsStrength    int           `yaml:"exec_growth_goals_strength"`
	ComparisonShoppingStrength int           `yaml:"comparison_shopping_strength"`

	// Confidence scoring
	Weights             ConfidenceWeights `yaml:"weights"`
	HighConfidenceMin   int               `yaml:"high_confidence_min"`
	MediumConfidenceMin int               `yaml:"medium_confidence_min"`
	DefaultHealthScore  int               `yaml:"default_health_score"`
	MaxRecentActivities int               `yaml:"max_recent_activities"`

	// Classification and blockers
	RenewalOverrideDays   int `yaml:"renewal_override_days"`
	HealthBlockerBelow    int `yaml:"health_blocker_below"`
	RenewalBlockerDays    int `yaml:"renewal_blocker_days"`
	ChampionSignalMinimum int `yaml:"champion_signal_minimum"`

	// Portfolio
	PortfolioHealthFloor int `yaml:"portfolio_health_floor"`
	QuickWinLimit        int `yaml:"quick_win_limit"`
	Concurrency          int `yaml:"concurrency"`

	// Approach generation
	ApproachTimeout time.Duration `yaml:"approach_timeout"`
}

// ConfidenceWeights are the factor weights of the confidence score. They must sum to 1.
type ConfidenceWeights struct {
	SignalStrength      float64 `yaml:"signal_strength"`
	HealthScore         float64 `yaml:"health_score"`
	ChampionEngagement  float64 `yaml:"champion_engagement"`
	HistoricalExpansion float64 `yaml:"historical_expansion"`
}

// Sum returns the total of all four weights
func (w ConfidenceWeights) Sum() float64 {
	return w.SignalStrength + w.HealthScore + w.ChampionEngagement + w.HistoricalExpansion
}

// DefaultConfig returns the production tuning of the engine
func DefaultConfig() Config {
	return Config{
		SeatUtilizationThreshold: 0.90,
		APIUtilizationThreshold:  0.80,
		UsageGrowthThreshold:     0.30,
		UsageWindow:              30,
		GrowthSampleSize:         7,

		EntitlementThreshold:   0.80,
		SingleYearMaxMonths:    12,
		MultiYearStrength:      65,
		MissingProductStrength: 55,

		MeetingLookback:            30 * 24 * time.Hour,
		BudgetStrength:             70,
		NewDepartmentStrength:      75,
		ExecGrowthGoalsStrength:    80,
		ComparisonShoppingStrength: 65,

		Weights: ConfidenceWeights{
			SignalStrength:      0.35,
			HealthScore:         0.25,
			ChampionEngagement:  0.20,
			HistoricalExpansion: 0.20,
		},
		HighConfidenceMin:   70,
		MediumConfidenceMin: 40,
		DefaultHealthScore:  50,
		MaxRecentActivities: 10,

		RenewalOverrideDays:   90,
		HealthBlockerBelow:    70,
		RenewalBlockerDays:    30,
		ChampionSignalMinimum: 70,

		PortfolioHealthFloor: 50,
		QuickWinLimit:        5,
		Concurrency:          8,

		ApproachTimeout: 10 * time.Second,
	}
}

// Validate checks the invariants the engine relies on
func (c Config) Validate() error {
	if math.Abs(c.Weights.Sum()-1.0) > 1e-9 {
		return eris.Errorf("confidence weights must sum to 1.0, got %.4f", c.Weights.Sum())
	}
	for name, v := range map[string]float64{
		"seat_utilization_threshold": c.SeatUtilizationThreshold,
		"api_utilization_threshold":  c.APIUtilizationThreshold,
		"entitlement_threshold":      c.EntitlementThreshold,
	} {
		if v <= 0 || v > 1 {
			return eris.Errorf("%s must be in (0, 1], got %.2f", name, v)
		}
	}
	if c.UsageGrowthThreshold <= 0 {
		return eris.New("usage_growth_threshold must be positive")
	}
	if c.HighConfidenceMin <= c.MediumConfidenceMin {
		return eris.New("high_confidence_min must be greater than medium_confidence_min")
	}
	if c.GrowthSampleSize <= 0 || c.UsageWindow < 2*c.GrowthSampleSize {
		return eris.New("usage_window must hold two growth samples")
	}
	if c.Concurrency <= 0 {
		return eris.New("concurrency must be greater than 0")
	}
	if c.QuickWinLimit <= 0 {
		return eris.New("quick_win_limit must be greater than 0")
	}
	if c.ApproachTimeout <= 0 {
		return eris.New("approach_timeout must be positive")
	}
	return nil
}
