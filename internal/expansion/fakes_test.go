package expansion

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prompt-general/cscx/pkg/models"
)

var errBoom = errors.New("boom")

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type fakeCustomers struct {
	customers map[string]models.Customer
	order     []string
	listErr   error
}

func newFakeCustomers(customers ...models.Customer) *fakeCustomers {
	f := &fakeCustomers{customers: make(map[string]models.Customer)}
	for _, c := range customers {
		f.customers[c.ID] = c
		f.order = append(f.order, c.ID)
	}
	return f
}

func (f *fakeCustomers) GetCustomer(_ context.Context, id string) (*models.Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeCustomers) ListCustomers(context.Context) ([]models.Customer, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Customer, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.customers[id])
	}
	return out, nil
}

type fakeUsage struct {
	rows map[string][]models.UsageMetric
	err  error
}

func (f *fakeUsage) FetchUsageMetrics(_ context.Context, id string, limit int) ([]models.UsageMetric, error) {
	if f.err != nil {
		return nil, f.err
	}
	rows := f.rows[id]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

type fakeContracts struct {
	contracts  map[string]*models.Contract
	catalog    []models.Product
	err        error
	catalogErr error
}

func (f *fakeContracts) FetchContract(_ context.Context, id string) (*models.Contract, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.contracts[id], nil
}

func (f *fakeContracts) FetchProductCatalog(context.Context) ([]models.Product, error) {
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	return f.catalog, nil
}

type fakeStakeholders struct {
	records map[string][]models.StakeholderRecord
	err     error
}

func (f *fakeStakeholders) FetchStakeholders(_ context.Context, id string) ([]models.StakeholderRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records[id], nil
}

type fakeMeetings struct {
	meetings map[string][]models.MeetingAnalysis
	err      error
}

func (f *fakeMeetings) FetchMeetingSignals(_ context.Context, id string, since time.Time) ([]models.MeetingAnalysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.MeetingAnalysis
	for _, m := range f.meetings[id] {
		if !m.AnalyzedAt.Before(since) {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeHistory struct {
	activities int
	closedWon  int
	err        error
}

func (f *fakeHistory) CountRecentActivities(_ context.Context, _ string, limit int) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.activities > limit {
		return limit, nil
	}
	return f.activities, nil
}

func (f *fakeHistory) CountClosedWonExpansions(context.Context, string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.closedWon, nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	text    string
	err     error
	delay   time.Duration
	prompts []string
}

func (f *fakeGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

// usageRows builds daily rows, most recent first, with a constant value per row
func usageRows(activeUsers []int) []models.UsageMetric {
	rows := make([]models.UsageMetric, len(activeUsers))
	for i, n := range activeUsers {
		rows[i] = models.UsageMetric{
			Date:        testNow.AddDate(0, 0, -i),
			ActiveUsers: n,
		}
	}
	return rows
}

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }
