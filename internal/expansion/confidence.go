package expansion

import (
	"math"

	"github.com/prompt-general/cscx/pkg/models"
)

// baselineFactor is used when a factor's underlying history cannot be read
const baselineFactor = 50.0

// ConfidenceFactors are the four 0-100 inputs to the confidence score
type ConfidenceFactors struct {
	SignalStrength      float64 `json:"signal_strength"`
	HealthScore         float64 `json:"health_score"`
	ChampionEngagement  float64 `json:"champion_engagement"`
	HistoricalExpansion float64 `json:"historical_expansion"`
}

// Confidence is a scored and bucketed factor set
type Confidence struct {
	Score   int                    `json:"score"`
	Level   models.ConfidenceLevel `json:"level"`
	Factors ConfidenceFactors      `json:"factors"`
}

// ConfidenceScorer combines signal strength with account context
type ConfidenceScorer struct {
	config Config
}

// NewConfidenceScorer creates a new confidence scorer
func NewConfidenceScorer(config Config) *ConfidenceScorer {
	return &ConfidenceScorer{config: config}
}

// Score computes the weighted confidence score for a factor set
func (s *ConfidenceScorer) Score(f ConfidenceFactors) Confidence {
	w := s.config.Weights
	factors := []struct {
		name   string
		weight float64
		value  float64
	}{
		{"signal_strength", w.SignalStrength, f.SignalStrength},
		{"health_score", w.HealthScore, f.HealthScore},
		{"champion_engagement", w.ChampionEngagement, f.ChampionEngagement},
		{"historical_expansion", w.HistoricalExpansion, f.HistoricalExpansion},
	}

	var total float64
	for _, factor := range factors {
		total += factor.weight * factor.value
	}

	score := int(math.Round(total))
	return Confidence{
		Score:   score,
		Level:   s.Level(score),
		Factors: f,
	}
}

// Level buckets a score. Lower bounds are inclusive.
func (s *ConfidenceScorer) Level(score int) models.ConfidenceLevel {
	switch {
	case score >= s.config.HighConfidenceMin:
		return models.ConfidenceHigh
	case score >= s.config.MediumConfidenceMin:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// SignalStrengthFactor is the mean strength of the signals
func SignalStrengthFactor(signals []models.ExpansionSignal) float64 {
	if len(signals) == 0 {
		return 0
	}
	var total int
	for _, signal := range signals {
		total += signal.Strength
	}
	return float64(total) / float64(len(signals))
}

// ChampionEngagementFactor scores recent activity, counting at most maxActivities
func ChampionEngagementFactor(activityCount, maxActivities int) float64 {
	if maxActivities > 0 && activityCount > maxActivities {
		activityCount = maxActivities
	}
	if activityCount < 0 {
		activityCount = 0
	}
	return math.Min(100, 40+float64(activityCount)*6)
}

// HistoricalExpansionFactor scores prior closed-won expansions
func HistoricalExpansionFactor(closedWon int) float64 {
	if closedWon < 0 {
		closedWon = 0
	}
	return math.Min(100, 60+float64(closedWon)*10)
}
