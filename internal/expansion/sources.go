package expansion

import (
	"context"
	"time"

	"github.com/prompt-general/cscx/pkg/models"
)

// CustomerSource reads account records
type CustomerSource interface {
	GetCustomer(ctx context.Context, customerID string) (*models.Customer, error)
	ListCustomers(ctx context.Context) ([]models.Customer, error)
}

// UsageSource reads daily usage rows, most recent first
type UsageSource interface {
	FetchUsageMetrics(ctx context.Context, customerID string, limit int) ([]models.UsageMetric, error)
}

// ContractSource reads the active contract and the product catalog.
// FetchContract returns nil when the customer has no active contract.
type ContractSource interface {
	FetchContract(ctx context.Context, customerID string) (*models.Contract, error)
	FetchProductCatalog(ctx context.Context) ([]models.Product, error)
}

// StakeholderSource reads customer contacts in source order
type StakeholderSource interface {
	FetchStakeholders(ctx context.Context, customerID string) ([]models.StakeholderRecord, error)
}

// MeetingSource reads meeting analyses recorded since a point in time
type MeetingSource interface {
	FetchMeetingSignals(ctx context.Context, customerID string, since time.Time) ([]models.MeetingAnalysis, error)
}

// HistorySource reads engagement and expansion history
type HistorySource interface {
	CountRecentActivities(ctx context.Context, customerID string, limit int) (int, error)
	CountClosedWonExpansions(ctx context.Context, customerID string) (int, error)
}

// TextGenerator produces free text from a prompt. Implementations may fail.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Sources bundles the read collaborators of the engine
type Sources struct {
	Customers    CustomerSource
	Usage        UsageSource
	Contracts    ContractSource
	Stakeholders StakeholderSource
	Meetings     MeetingSource
	History      HistorySource
}
