// Package graph reads customer stakeholder networks from Neo4j.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/prompt-general/cscx/internal/config"
	"github.com/prompt-general/cscx/pkg/models"
)

// Constraint is a uniqueness constraint on a node label
type Constraint struct {
	Name     string
	Label    string
	Property string
}

var schema = []Constraint{
	{Name: "customer_id", Label: "Customer", Property: "id"},
	{Name: "stakeholder_id", Label: "Stakeholder", Property: "id"},
}

const stakeholdersQuery = `
	MATCH (c:Customer {id: $customerId})-[r:HAS_STAKEHOLDER]->(s:Stakeholder)
	RETURN s.id AS id, s.name AS name, s.role AS role, s.title AS title,
		s.email AS email, s.sentiment AS sentiment, coalesce(s.is_primary, false) AS is_primary
	ORDER BY r.position, s.id
`

const syncQuery = `
	MERGE (c:Customer {id: $customerId})
	WITH c
	OPTIONAL MATCH (c)-[old:HAS_STAKEHOLDER]->(:Stakeholder)
	DELETE old
	WITH DISTINCT c
	UNWIND $stakeholders AS row
	MERGE (s:Stakeholder {id: row.id})
	SET s.name = row.name, s.role = row.role, s.title = row.title,
		s.email = row.email, s.sentiment = row.sentiment, s.is_primary = row.is_primary,
		s.updated_at = datetime()
	MERGE (c)-[r:HAS_STAKEHOLDER]->(s)
	SET r.position = row.position
`

// StakeholderGraph implements the stakeholder source over Neo4j
type StakeholderGraph struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewStakeholderGraph connects to Neo4j and ensures the schema exists
func NewStakeholderGraph(ctx context.Context, cfg config.GraphConfig) (*StakeholderGraph, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionPoolSize = cfg.MaxPoolSize
			c.MaxConnectionLifetime = time.Hour
			c.ConnectionAcquisitionTimeout = cfg.ConnTimeout
		},
	)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create Neo4j driver")
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		driver.Close(ctx)
		return nil, eris.Wrap(err, "failed to verify Neo4j connectivity")
	}

	g := &StakeholderGraph{
		driver:   driver,
		database: cfg.Database,
	}

	if err := g.initializeSchema(verifyCtx); err != nil {
		zap.L().Warn("graph: failed to initialize schema", zap.Error(err))
	}

	return g, nil
}

func (g *StakeholderGraph) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: g.database})
}

func (g *StakeholderGraph) initializeSchema(ctx context.Context) error {
	session := g.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, c := range schema {
		if _, err := session.Run(ctx, constraintQuery(c), nil); err != nil {
			return eris.Wrapf(err, "failed to create constraint %s", c.Name)
		}
	}
	return nil
}

func constraintQuery(c Constraint) string {
	return fmt.Sprintf("CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE",
		c.Name, c.Label, c.Property)
}

// FetchStakeholders returns the customer's contacts in relationship order
func (g *StakeholderGraph) FetchStakeholders(ctx context.Context, customerID string) ([]models.StakeholderRecord, error) {
	session := g.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, stakeholdersQuery, map[string]any{"customerId": customerID})
		if err != nil {
			return nil, err
		}

		var records []models.StakeholderRecord
		for res.Next(ctx) {
			records = append(records, recordToStakeholder(res.Record().AsMap()))
		}
		return records, res.Err()
	})
	if err != nil {
		return nil, eris.Wrapf(err, "graph: fetch stakeholders for %s", customerID)
	}

	records, _ := result.([]models.StakeholderRecord)
	return records, nil
}

// SyncStakeholders replaces the customer's stakeholder edges with records, in order
func (g *StakeholderGraph) SyncStakeholders(ctx context.Context, customerID string, records []models.StakeholderRecord) error {
	session := g.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, syncQuery, map[string]any{
			"customerId":   customerID,
			"stakeholders": stakeholderParams(records),
		})
		return nil, err
	})
	if err != nil {
		return eris.Wrapf(err, "graph: sync stakeholders for %s", customerID)
	}
	return nil
}

// Ping verifies connectivity for health reporting
func (g *StakeholderGraph) Ping(ctx context.Context) error {
	return g.driver.VerifyConnectivity(ctx)
}

func (g *StakeholderGraph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

func stakeholderParams(records []models.StakeholderRecord) []map[string]any {
	rows := make([]map[string]any, len(records))
	for i, r := range records {
		rows[i] = map[string]any{
			"id":         r.ID,
			"name":       r.Name,
			"role":       r.Role,
			"title":      r.Title,
			"email":      r.Email,
			"sentiment":  r.Sentiment,
			"is_primary": r.IsPrimary,
			"position":   i,
		}
	}
	return rows
}

func recordToStakeholder(m map[string]any) models.StakeholderRecord {
	str := func(key string) string {
		s, _ := m[key].(string)
		return s
	}
	primary, _ := m["is_primary"].(bool)
	return models.StakeholderRecord{
		ID:        str("id"),
		Name:      str("name"),
		Role:      str("role"),
		Title:     str("title"),
		Email:     str("email"),
		Sentiment: str("sentiment"),
		IsPrimary: primary,
	}
}
