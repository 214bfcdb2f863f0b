package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompt-general/cscx/internal/config"
	"github.com/prompt-general/cscx/internal/expansion"
	"github.com/prompt-general/cscx/internal/store"
	"github.com/prompt-general/cscx/pkg/models"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Database.DSN = ":memory:"
	cfg.Database.MaxOpenConns = 1
	cfg.Kafka.Brokers = nil
	return cfg
}

func TestNew_LocalOnly(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig())
	require.NoError(t, err)
	defer a.Close(ctx)

	assert.Nil(t, a.Redis)
	assert.Nil(t, a.Graph)
	require.NotNil(t, a.Engine)

	now := time.Now().UTC()
	health := 85
	require.NoError(t, a.Import(ctx, store.Dataset{
		Customers: []models.Customer{{
			ID: "c1", Name: "Initech", Stage: models.StageActive, ARR: 120000,
			HealthScore: &health, ContractedSeats: 50, APILimit: 100000,
		}},
		Usage: map[string][]models.UsageMetric{
			"c1": {{Date: now, ActiveUsers: 48, APICalls: 1000}},
		},
	}))

	opp, err := a.Engine.GetCustomerOpportunity(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, opp)
	assert.Equal(t, "Initech", opp.CustomerName)
	assert.NotEmpty(t, opp.SuggestedApproach)

	result, err := a.Engine.FindOpportunities(ctx, expansion.PortfolioFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)

	_, err = a.Engine.GetCustomerOpportunity(ctx, "nope")
	assert.ErrorIs(t, err, expansion.ErrCustomerNotFound)
}

func TestHealthChecker_LocalOnly(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig())
	require.NoError(t, err)
	defer a.Close(ctx)

	results := a.HealthChecker().Check(ctx)
	require.Len(t, results, 1)
	assert.Equal(t, "healthy", string(results["database"].Status))
}

func TestNew_BadLLMProvider(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.Provider = config.ProviderOpenAI
	cfg.LLM.OpenAIAPIKey = ""

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}
