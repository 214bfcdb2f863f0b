// Package store reads customer records for the expansion engine from SQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/prompt-general/cscx/internal/config"
	"github.com/prompt-general/cscx/pkg/models"
)

// Fixed-width UTC layout so TEXT timestamps sort chronologically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Expansion history status counted as a prior win
const StatusClosedWon = "closed_won"

// SQLStore implements every read source of the expansion engine
type SQLStore struct {
	db *sqlx.DB
}

// Open connects to the configured database and applies the schema when enabled
func Open(ctx context.Context, cfg config.DatabaseConfig) (*SQLStore, error) {
	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, eris.Wrap(err, "store: open database")
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	s := New(db)
	if cfg.Migrate {
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// New wraps an existing connection
func New(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate creates missing tables
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return eris.Wrap(err, "store: create schema")
	}
	return nil
}

// Ping checks the connection
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

type customerRow struct {
	ID              string         `db:"id"`
	Name            string         `db:"name"`
	Stage           string         `db:"stage"`
	ARR             float64        `db:"arr"`
	HealthScore     sql.NullInt64  `db:"health_score"`
	Segment         string         `db:"segment"`
	RenewalDate     sql.NullString `db:"renewal_date"`
	ContractedSeats int            `db:"contracted_seats"`
	APILimit        int64          `db:"api_limit"`
}

func (r customerRow) toModel() models.Customer {
	c := models.Customer{
		ID:              r.ID,
		Name:            r.Name,
		Stage:           models.CustomerStage(r.Stage),
		ARR:             r.ARR,
		Segment:         r.Segment,
		ContractedSeats: r.ContractedSeats,
		APILimit:        r.APILimit,
	}
	if r.HealthScore.Valid {
		health := int(r.HealthScore.Int64)
		c.HealthScore = &health
	}
	if r.RenewalDate.Valid && r.RenewalDate.String != "" {
		if t, err := parseTime(r.RenewalDate.String); err == nil {
			c.RenewalDate = &t
		}
	}
	return c
}

const customerColumns = `id, name, stage, arr, health_score, segment, renewal_date, contracted_seats, api_limit`

// GetCustomer returns nil when the customer does not exist
func (s *SQLStore) GetCustomer(ctx context.Context, customerID string) (*models.Customer, error) {
	var row customerRow
	err := s.db.GetContext(ctx, &row, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, customerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: get customer %s", customerID)
	}
	c := row.toModel()
	return &c, nil
}

func (s *SQLStore) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	var rows []customerRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+customerColumns+` FROM customers ORDER BY name, id`); err != nil {
		return nil, eris.Wrap(err, "store: list customers")
	}
	customers := make([]models.Customer, len(rows))
	for i, row := range rows {
		customers[i] = row.toModel()
	}
	return customers, nil
}

type usageRow struct {
	Date        string `db:"date"`
	ActiveUsers int    `db:"active_users"`
	APICalls    int64  `db:"api_calls"`
	LoginCount  int    `db:"login_count"`
}

// FetchUsageMetrics returns at most limit rows, most recent first
func (s *SQLStore) FetchUsageMetrics(ctx context.Context, customerID string, limit int) ([]models.UsageMetric, error) {
	var rows []usageRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT date, active_users, api_calls, login_count
		FROM usage_metrics
		WHERE customer_id = ?
		ORDER BY date DESC
		LIMIT ?`, customerID, limit)
	if err != nil {
		return nil, eris.Wrapf(err, "store: fetch usage metrics for %s", customerID)
	}

	metrics := make([]models.UsageMetric, 0, len(rows))
	for _, row := range rows {
		date, err := parseTime(row.Date)
		if err != nil {
			return nil, eris.Wrapf(err, "store: usage date for %s", customerID)
		}
		metrics = append(metrics, models.UsageMetric{
			Date:        date,
			ActiveUsers: row.ActiveUsers,
			APICalls:    row.APICalls,
			LoginCount:  row.LoginCount,
		})
	}
	return metrics, nil
}

type contractRow struct {
	ID        string `db:"id"`
	StartDate string `db:"start_date"`
	EndDate   string `db:"end_date"`
}

// FetchContract returns the active contract with the latest end date, or nil
func (s *SQLStore) FetchContract(ctx context.Context, customerID string) (*models.Contract, error) {
	var row contractRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, start_date, end_date
		FROM contracts
		WHERE customer_id = ? AND status = 'active'
		ORDER BY end_date DESC
		LIMIT 1`, customerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: fetch contract for %s", customerID)
	}

	start, err := parseTime(row.StartDate)
	if err != nil {
		return nil, eris.Wrapf(err, "store: contract %s start date", row.ID)
	}
	end, err := parseTime(row.EndDate)
	if err != nil {
		return nil, eris.Wrapf(err, "store: contract %s end date", row.ID)
	}

	contract := &models.Contract{ID: row.ID, StartDate: start, EndDate: end}
	err = s.db.SelectContext(ctx, &contract.Entitlements, `
		SELECT type, usage_current, usage_limit, product_id
		FROM entitlements
		WHERE contract_id = ?
		ORDER BY position`, row.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "store: fetch entitlements for %s", row.ID)
	}
	return contract, nil
}

func (s *SQLStore) FetchProductCatalog(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.SelectContext(ctx, &products, `SELECT id, name FROM products ORDER BY position, id`); err != nil {
		return nil, eris.Wrap(err, "store: fetch product catalog")
	}
	return products, nil
}

// FetchStakeholders returns contacts in the order they were recorded
func (s *SQLStore) FetchStakeholders(ctx context.Context, customerID string) ([]models.StakeholderRecord, error) {
	var records []models.StakeholderRecord
	err := s.db.SelectContext(ctx, &records, `
		SELECT id, name, role, title, email, sentiment, is_primary
		FROM stakeholders
		WHERE customer_id = ?
		ORDER BY position, id`, customerID)
	if err != nil {
		return nil, eris.Wrapf(err, "store: fetch stakeholders for %s", customerID)
	}
	return records, nil
}

type meetingRow struct {
	Summary            string `db:"summary"`
	KeyTopics          string `db:"key_topics"`
	ExpansionSignals   string `db:"expansion_signals"`
	CompetitorMentions string `db:"competitor_mentions"`
	AnalyzedAt         string `db:"analyzed_at"`
}

// FetchMeetingSignals returns analyses recorded at or after since, newest first
func (s *SQLStore) FetchMeetingSignals(ctx context.Context, customerID string, since time.Time) ([]models.MeetingAnalysis, error) {
	var rows []meetingRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT summary, key_topics, expansion_signals, competitor_mentions, analyzed_at
		FROM meeting_analyses
		WHERE customer_id = ? AND analyzed_at >= ?
		ORDER BY analyzed_at DESC`, customerID, formatTime(since))
	if err != nil {
		return nil, eris.Wrapf(err, "store: fetch meeting analyses for %s", customerID)
	}

	meetings := make([]models.MeetingAnalysis, 0, len(rows))
	for _, row := range rows {
		m := models.MeetingAnalysis{Summary: row.Summary}
		if err := decodeJSON(row.KeyTopics, &m.KeyTopics); err != nil {
			return nil, eris.Wrap(err, "store: decode key topics")
		}
		if err := decodeJSON(row.ExpansionSignals, &m.ExpansionSignals); err != nil {
			return nil, eris.Wrap(err, "store: decode expansion signals")
		}
		if err := decodeJSON(row.CompetitorMentions, &m.CompetitorMentions); err != nil {
			return nil, eris.Wrap(err, "store: decode competitor mentions")
		}
		analyzedAt, err := parseTime(row.AnalyzedAt)
		if err != nil {
			return nil, eris.Wrap(err, "store: meeting analyzed_at")
		}
		m.AnalyzedAt = analyzedAt
		meetings = append(meetings, m)
	}
	return meetings, nil
}

// CountRecentActivities counts the customer's most recent activities, up to limit
func (s *SQLStore) CountRecentActivities(ctx context.Context, customerID string, limit int) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM (
			SELECT 1 FROM activities
			WHERE customer_id = ?
			ORDER BY occurred_at DESC
			LIMIT ?
		)`, customerID, limit)
	if err != nil {
		return 0, eris.Wrapf(err, "store: count activities for %s", customerID)
	}
	return count, nil
}

func (s *SQLStore) CountClosedWonExpansions(ctx context.Context, customerID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM expansions WHERE customer_id = ? AND status = ?`, customerID, StatusClosedWon)
	if err != nil {
		return 0, eris.Wrapf(err, "store: count expansions for %s", customerID)
	}
	return count, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range []string{timeLayout, time.RFC3339Nano, time.DateOnly} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

func decodeJSON(raw string, v any) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), v)
}
