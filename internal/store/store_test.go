package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompt-general/cscx/internal/config"
	"github.com/prompt-general/cscx/pkg/models"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open(context.Background(), config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          ":memory:",
		MaxOpenConns: 1,
		Migrate:      true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func intPtr(v int) *int { return &v }

func seed(t *testing.T, s *SQLStore) {
	t.Helper()
	renewal := now.AddDate(0, 0, 45)
	ds := Dataset{
		Customers: []models.Customer{
			{ID: "c1", Name: "Initech", Stage: models.StageActive, ARR: 180000, HealthScore: intPtr(88), Segment: "enterprise", RenewalDate: &renewal, ContractedSeats: 50, APILimit: 100000},
			{ID: "c2", Name: "Globex", ARR: 50000},
		},
		Products: []models.Product{{ID: "p1", Name: "Core"}, {ID: "p2", Name: "Analytics"}},
		Usage: map[string][]models.UsageMetric{
			"c1": {
				{Date: now.AddDate(0, 0, -2), ActiveUsers: 40},
				{Date: now, ActiveUsers: 48, APICalls: 90000},
				{Date: now.AddDate(0, 0, -1), ActiveUsers: 45},
			},
		},
		Contracts: map[string][]ContractRecord{
			"c1": {
				{Contract: models.Contract{ID: "k-old", StartDate: now.AddDate(-2, 0, 0), EndDate: now.AddDate(-1, 0, 0)}, Status: "expired"},
				{Contract: models.Contract{
					ID:        "k1",
					StartDate: now.AddDate(0, -2, 0),
					EndDate:   now.AddDate(0, 10, 0),
					Entitlements: []models.Entitlement{
						{Type: "storage", UsageCurrent: 85, UsageLimit: 100, ProductID: "p1"},
						{Type: "projects", UsageCurrent: 3, UsageLimit: 10, ProductID: "p1"},
					},
				}},
			},
		},
		Stakeholders: map[string][]models.StakeholderRecord{
			"c1": {
				{ID: "s2", Name: "Zed", Role: "Engineer"},
				{ID: "s1", Name: "Ana", Role: "Executive Sponsor", Sentiment: "positive", IsPrimary: true},
			},
		},
		Meetings: map[string][]models.MeetingAnalysis{
			"c1": {
				{Summary: "QBR", KeyTopics: []string{"budget"}, CompetitorMentions: []string{"Acme"}, AnalyzedAt: now.AddDate(0, 0, -5)},
				{Summary: "Kickoff", AnalyzedAt: now.AddDate(0, 0, -60)},
			},
		},
		Activities: map[string][]ActivityRecord{
			"c1": {
				{ID: "a1", Kind: "call", OccurredAt: "2025-02-01T10:00:00Z"},
				{ID: "a2", Kind: "email", OccurredAt: "2025-02-10T10:00:00Z"},
				{ID: "a3", Kind: "meeting", OccurredAt: "2025-02-20"},
			},
		},
		Expansions: map[string][]ExpansionRecord{
			"c1": {
				{ID: "e1", Status: StatusClosedWon, Amount: 20000},
				{ID: "e2", Status: "closed_lost", Amount: 10000},
				{ID: "e3", Status: StatusClosedWon, Amount: 5000},
			},
		},
	}
	require.NoError(t, s.Import(context.Background(), ds))
}

func TestSQLStore_Customers(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)
	ctx := context.Background()

	c, err := s.GetCustomer(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "Initech", c.Name)
	assert.Equal(t, models.StageActive, c.Stage)
	require.NotNil(t, c.HealthScore)
	assert.Equal(t, 88, *c.HealthScore)
	require.NotNil(t, c.RenewalDate)
	assert.True(t, c.RenewalDate.Equal(now.AddDate(0, 0, 45)))
	assert.Equal(t, 50, c.ContractedSeats)

	c2, err := s.GetCustomer(ctx, "c2")
	require.NoError(t, err)
	assert.Nil(t, c2.HealthScore)
	assert.Nil(t, c2.RenewalDate)
	assert.Equal(t, models.StageActive, c2.Stage)

	missing, err := s.GetCustomer(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := s.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Globex", all[0].Name)
}

func TestSQLStore_UsageMostRecentFirst(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)

	rows, err := s.FetchUsageMetrics(context.Background(), "c1", 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 48, rows[0].ActiveUsers)
	assert.Equal(t, int64(90000), rows[0].APICalls)
	assert.Equal(t, 45, rows[1].ActiveUsers)
	assert.True(t, rows[0].Date.After(rows[1].Date))
}

func TestSQLStore_ActiveContract(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)
	ctx := context.Background()

	contract, err := s.FetchContract(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, contract)
	assert.Equal(t, "k1", contract.ID)
	require.Len(t, contract.Entitlements, 2)
	assert.Equal(t, "storage", contract.Entitlements[0].Type)
	assert.Equal(t, 100.0, contract.Entitlements[0].UsageLimit)

	none, err := s.FetchContract(ctx, "c2")
	require.NoError(t, err)
	assert.Nil(t, none)

	catalog, err := s.FetchProductCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Product{{ID: "p1", Name: "Core"}, {ID: "p2", Name: "Analytics"}}, catalog)
}

func TestSQLStore_StakeholdersKeepSourceOrder(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)

	records, err := s.FetchStakeholders(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "s2", records[0].ID)
	assert.Equal(t, "s1", records[1].ID)
	assert.True(t, records[1].IsPrimary)
}

func TestSQLStore_MeetingsSince(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)

	meetings, err := s.FetchMeetingSignals(context.Background(), "c1", now.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Equal(t, "QBR", meetings[0].Summary)
	assert.Equal(t, []string{"budget"}, meetings[0].KeyTopics)
	assert.Equal(t, []string{"Acme"}, meetings[0].CompetitorMentions)
	assert.Empty(t, meetings[0].ExpansionSignals)
}

func TestSQLStore_History(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)
	ctx := context.Background()

	count, err := s.CountRecentActivities(ctx, "c1", 10)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = s.CountRecentActivities(ctx, "c1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	won, err := s.CountClosedWonExpansions(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, won)

	won, err = s.CountClosedWonExpansions(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, 0, won)
}

func TestSQLStore_Ping(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
