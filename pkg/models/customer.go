package models

import (
	"time"
)

// CustomerStage is the lifecycle stage of an account
type CustomerStage string

const (
	StageOnboarding CustomerStage = "onboarding"
	StageActive     CustomerStage = "active"
	StageAtRisk     CustomerStage = "at_risk"
	StageChurned    CustomerStage = "churned"
)

// Customer is the account record the engine reads
type Customer struct {
	ID              string        `json:"id" db:"id"`
	Name            string        `json:"name" db:"name"`
	Stage           CustomerStage `json:"stage" db:"stage"`
	ARR             float64       `json:"arr" db:"arr"`
	HealthScore     *int          `json:"health_score,omitempty" db:"health_score"`
	Segment         string        `json:"segment,omitempty" db:"segment"`
	RenewalDate     *time.Time    `json:"renewal_date,omitempty" db:"-"`
	ContractedSeats int           `json:"contracted_seats" db:"contracted_seats"`
	APILimit        int64         `json:"api_limit" db:"api_limit"`
}

// UsageMetric is one daily usage row
type UsageMetric struct {
	Date        time.Time `json:"date"`
	ActiveUsers int       `json:"active_users"`
	APICalls    int64     `json:"api_calls"`
	LoginCount  int       `json:"login_count"`
}

// Contract is the active commercial agreement for a customer
type Contract struct {
	ID           string        `json:"id"`
	StartDate    time.Time     `json:"start_date"`
	EndDate      time.Time     `json:"end_date"`
	Entitlements []Entitlement `json:"entitlements"`
}

// Entitlement is a metered allowance within a contract
type Entitlement struct {
	Type         string  `json:"type" db:"type"`
	UsageCurrent float64 `json:"usage_current" db:"usage_current"`
	UsageLimit   float64 `json:"usage_limit" db:"usage_limit"`
	ProductID    string  `json:"product_id" db:"product_id"`
}

// Product is a catalog entry
type Product struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// StakeholderRecord is a contact as supplied by the data source
type StakeholderRecord struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Role      string `json:"role" db:"role"`
	Title     string `json:"title,omitempty" db:"title"`
	Email     string `json:"email,omitempty" db:"email"`
	Sentiment string `json:"sentiment,omitempty" db:"sentiment"`
	IsPrimary bool   `json:"is_primary,omitempty" db:"is_primary"`
}

// MeetingAnalysis is the analyzed output of one customer meeting
type MeetingAnalysis struct {
	Summary            string                   `json:"summary"`
	KeyTopics          []string                 `json:"key_topics"`
	ExpansionSignals   []MeetingExpansionSignal `json:"expansion_signals"`
	CompetitorMentions []string                 `json:"competitor_mentions"`
	AnalyzedAt         time.Time                `json:"analyzed_at"`
}

// MeetingExpansionSignal is a free-text expansion hint extracted from a meeting
type MeetingExpansionSignal struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}
