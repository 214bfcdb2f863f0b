package models

import (
	"time"
)

// SignalCategory groups expansion signals by the data family that produced them
type SignalCategory string

const (
	CategoryUsage       SignalCategory = "usage"
	CategoryContract    SignalCategory = "contract"
	CategoryStakeholder SignalCategory = "stakeholder"
	CategoryWhitespace  SignalCategory = "whitespace"
)

// SignalType names a specific expansion pattern
type SignalType string

const (
	SignalSeatUtilizationHigh  SignalType = "seat_utilization_high"
	SignalAPIUsageSurge        SignalType = "api_usage_surge"
	SignalUsageGrowth          SignalType = "usage_growth"
	SignalEntitlementNearLimit SignalType = "entitlement_approaching_limit"
	SignalMultiYearAvailable   SignalType = "multi_year_available"
	SignalMissingProducts      SignalType = "missing_products"
	SignalBudgetDiscussed      SignalType = "budget_discussed"
	SignalNewDepartment        SignalType = "new_department"
	SignalExecGrowthGoals      SignalType = "exec_growth_goals"
	SignalComparisonShopping   SignalType = "comparison_shopping"
)

// ExpansionSignal is a single piece of evidence that an account may expand
type ExpansionSignal struct {
	Category    SignalCategory `json:"category"`
	SignalType  SignalType     `json:"signal_type"`
	Description string         `json:"description"`
	Strength    int            `json:"strength"` // 0-100
	Source      string         `json:"source"`
	DetectedAt  time.Time      `json:"detected_at"`
	Metadata    SignalMetadata `json:"metadata,omitempty"`
}

// SignalMetadata carries the measured values behind a signal
type SignalMetadata struct {
	Utilization     *float64 `json:"utilization,omitempty"`
	GrowthRate      *float64 `json:"growth_rate,omitempty"`
	Entitlement     string   `json:"entitlement,omitempty"`
	TermMonths      int      `json:"term_months,omitempty"`
	MissingProducts []string `json:"missing_products,omitempty"`
	MeetingCount    int      `json:"meeting_count,omitempty"`
	Competitors     []string `json:"competitors,omitempty"`
}

// Sentiment of a stakeholder toward the vendor
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
	SentimentUnknown  Sentiment = "unknown"
)

// Stakeholder is a contact selected to anchor an opportunity
type Stakeholder struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	Email      string    `json:"email,omitempty"`
	Sentiment  Sentiment `json:"sentiment"`
	IsChampion bool      `json:"is_champion"`
}

// OpportunityType classifies the expansion motion
type OpportunityType string

const (
	OpportunityUpsell        OpportunityType = "upsell"
	OpportunityCrossSell     OpportunityType = "cross_sell"
	OpportunitySeatExpansion OpportunityType = "seat_expansion"
	OpportunityTierUpgrade   OpportunityType = "tier_upgrade"
)

// Timeline is the recommended engagement window
type Timeline string

const (
	TimelineImmediate   Timeline = "immediate"
	Timeline30Days      Timeline = "30_days"
	Timeline60Days      Timeline = "60_days"
	TimelineNextRenewal Timeline = "next_renewal"
)

// Urgency orders timelines from most to least urgent
func (t Timeline) Urgency() int {
	switch t {
	case TimelineImmediate:
		return 0
	case Timeline30Days:
		return 1
	case Timeline60Days:
		return 2
	case TimelineNextRenewal:
		return 3
	default:
		return 4
	}
}

// ConfidenceLevel buckets a confidence score
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// ExpansionOpportunity is the computed view of one account's expansion potential.
// A new value is built on every computation; callers own any persistence.
type ExpansionOpportunity struct {
	ID           string `json:"id"`
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`

	OpportunityType OpportunityType `json:"opportunity_type"`
	Timeline        Timeline        `json:"timeline"`

	EstimatedValue  int64           `json:"estimated_value"`
	CurrentARR      float64         `json:"current_arr"`
	ConfidenceScore int             `json:"confidence_score"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`

	Signals []ExpansionSignal `json:"signals"`

	SuggestedApproach string       `json:"suggested_approach"`
	Champion          *Stakeholder `json:"champion"`
	Blockers          []string     `json:"blockers"`

	HealthScore   int        `json:"health_score"`
	Segment       string     `json:"segment,omitempty"`
	RenewalDate   *time.Time `json:"renewal_date,omitempty"`
	DaysToRenewal *int       `json:"days_to_renewal,omitempty"`

	DetectedAt  time.Time `json:"detected_at"`
	LastUpdated time.Time `json:"last_updated"`
}
