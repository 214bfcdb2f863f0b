package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rotisserie/eris"

	"github.com/prompt-general/cscx/pkg/models"
)

// Dataset is a bulk load of source records, keyed by customer where it applies
type Dataset struct {
	Customers    []models.Customer                     `json:"customers"`
	Products     []models.Product                      `json:"products"`
	Usage        map[string][]models.UsageMetric       `json:"usage"`
	Contracts    map[string][]ContractRecord           `json:"contracts"`
	Stakeholders map[string][]models.StakeholderRecord `json:"stakeholders"`
	Meetings     map[string][]models.MeetingAnalysis   `json:"meetings"`
	Activities   map[string][]ActivityRecord           `json:"activities"`
	Expansions   map[string][]ExpansionRecord          `json:"expansions"`
}

// ContractRecord is a contract with its lifecycle status
type ContractRecord struct {
	models.Contract
	Status string `json:"status"`
}

// ActivityRecord is one customer engagement touchpoint
type ActivityRecord struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	OccurredAt string `json:"occurred_at"`
}

// ExpansionRecord is one historical expansion deal
type ExpansionRecord struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	Amount   float64 `json:"amount"`
	ClosedAt string  `json:"closed_at"`
}

// Import writes the dataset in a single transaction, replacing rows with the same keys
func (s *SQLStore) Import(ctx context.Context, ds Dataset) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "store: begin import")
	}
	defer tx.Rollback()

	steps := []struct {
		name string
		fn   func(context.Context, *sqlx.Tx, Dataset) error
	}{
		{"customers", importCustomers},
		{"products", importProducts},
		{"usage", importUsage},
		{"contracts", importContracts},
		{"stakeholders", importStakeholders},
		{"meetings", importMeetings},
		{"activities", importActivities},
		{"expansions", importExpansions},
	}
	for _, step := range steps {
		if err := step.fn(ctx, tx, ds); err != nil {
			return eris.Wrapf(err, "store: import %s", step.name)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "store: commit import")
	}
	return nil
}

func importCustomers(ctx context.Context, tx *sqlx.Tx, ds Dataset) error {
	for _, c := range ds.Customers {
		var renewal any
		if c.RenewalDate != nil {
			renewal = formatTime(*c.RenewalDate)
		}
		var health any
		if c.HealthScore != nil {
			health = *c.HealthScore
		}
		stage := c.Stage
		if stage == "" {
			stage = models.StageActive
		}
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO customers (id, name, stage, arr, health_score, segment, renewal_date, contracted_seats, api_limit)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Name, string(stage), c.ARR, health, c.Segment, renewal, c.ContractedSeats, c.APILimit)
		if err != nil {
			return err
		}
	}
	return nil
}

func importProducts(ctx context.Context, tx *sqlx.Tx, ds Dataset) error {
	for i, p := range ds.Products {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO products (id, name, position) VALUES (?, ?, ?)`, p.ID, p.Name, i); err != nil {
			return err
		}
	}
	return nil
}

func importUsage(ctx context.Context, tx *sqlx.Tx, ds Dataset) error {
	for customerID, rows := range ds.Usage {
		for _, u := range rows {
			_, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO usage_metrics (customer_id, date, active_users, api_calls, login_count)
				VALUES (?, ?, ?, ?, ?)`,
				customerID, formatTime(u.Date), u.ActiveUsers, u.APICalls, u.LoginCount)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func importContracts(ctx context.Context, tx *sqlx.Tx, ds Dataset) error {
	for customerID, contracts := range ds.Contracts {
		for _, c := range contracts {
			status := c.Status
			if status == "" {
				status = "active"
			}
			_, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO contracts (id, customer_id, status, start_date, end_date)
				VALUES (?, ?, ?, ?, ?)`,
				c.ID, customerID, status, formatTime(c.StartDate), formatTime(c.EndDate))
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM entitlements WHERE contract_id = ?`, c.ID); err != nil {
				return err
			}
			for i, e := range c.Entitlements {
				_, err := tx.ExecContext(ctx, `
					INSERT INTO entitlements (contract_id, position, type, usage_current, usage_limit, product_id)
					VALUES (?, ?, ?, ?, ?, ?)`,
					c.ID, i, e.Type, e.UsageCurrent, e.UsageLimit, e.ProductID)
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func importStakeholders(ctx context.Context, tx *sqlx.Tx, ds Dataset) error {
	for customerID, records := range ds.Stakeholders {
		for i, r := range records {
			_, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO stakeholders (id, customer_id, position, name, role, title, email, sentiment, is_primary)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				r.ID, customerID, i, r.Name, r.Role, r.Title, r.Email, r.Sentiment, r.IsPrimary)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func importMeetings(ctx context.Context, tx *sqlx.Tx, ds Dataset) error {
	for customerID, meetings := range ds.Meetings {
		for i, m := range meetings {
			topics, err := json.Marshal(nonNil(m.KeyTopics))
			if err != nil {
				return err
			}
			hints, err := json.Marshal(nonNil(m.ExpansionSignals))
			if err != nil {
				return err
			}
			competitors, err := json.Marshal(nonNil(m.CompetitorMentions))
			if err != nil {
				return err
			}
			analyzedAt := formatTime(m.AnalyzedAt)
			_, err = tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO meeting_analyses (id, customer_id, summary, key_topics, expansion_signals, competitor_mentions, analyzed_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				meetingID(customerID, analyzedAt, i), customerID, m.Summary, string(topics), string(hints), string(competitors), analyzedAt)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func importActivities(ctx context.Context, tx *sqlx.Tx, ds Dataset) error {
	for customerID, activities := range ds.Activities {
		for _, a := range activities {
			occurredAt, err := parseTime(a.OccurredAt)
			if err != nil {
				return eris.Wrapf(err, "activity %s", a.ID)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO activities (id, customer_id, kind, occurred_at) VALUES (?, ?, ?, ?)`,
				a.ID, customerID, a.Kind, formatTime(occurredAt))
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func importExpansions(ctx context.Context, tx *sqlx.Tx, ds Dataset) error {
	for customerID, deals := range ds.Expansions {
		for _, d := range deals {
			_, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO expansions (id, customer_id, status, amount, closed_at) VALUES (?, ?, ?, ?, ?)`,
				d.ID, customerID, d.Status, d.Amount, d.ClosedAt)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func meetingID(customerID, analyzedAt string, i int) string {
	return fmt.Sprintf("%s/%s/%d", customerID, analyzedAt, i)
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
