package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompt-general/cscx/internal/config"
	"github.com/prompt-general/cscx/internal/expansion"
	"github.com/prompt-general/cscx/pkg/models"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   int
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed++
	return nil
}

func TestPublisher_PublishOpportunities(t *testing.T) {
	writer := &recordingWriter{}
	p := NewPublisherWithWriter(writer)

	opps := []*models.ExpansionOpportunity{
		{ID: "o1", CustomerID: "c1", OpportunityType: models.OpportunitySeatExpansion, EstimatedValue: 68400},
		{ID: "o2", CustomerID: "c2", OpportunityType: models.OpportunityUpsell, EstimatedValue: 25000},
	}
	require.NoError(t, p.PublishOpportunities(context.Background(), opps))
	require.Len(t, writer.messages, 2)

	msg := writer.messages[0]
	assert.Equal(t, TopicOpportunities, msg.Topic)
	assert.Equal(t, []byte("c1"), msg.Key)

	var decoded models.ExpansionOpportunity
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "o1", decoded.ID)
	assert.Equal(t, int64(68400), decoded.EstimatedValue)
}

func TestPublisher_PublishOpportunitiesEmpty(t *testing.T) {
	writer := &recordingWriter{}
	require.NoError(t, NewPublisherWithWriter(writer).PublishOpportunities(context.Background(), nil))
	assert.Empty(t, writer.messages)
}

func TestPublisher_PublishSummary(t *testing.T) {
	writer := &recordingWriter{}
	p := NewPublisherWithWriter(writer)

	generatedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	result := &expansion.PortfolioResult{
		Summary:     expansion.PortfolioSummary{TotalOpportunities: 3, TotalValue: 104400},
		GeneratedAt: generatedAt,
	}
	require.NoError(t, p.PublishSummary(context.Background(), result))
	require.Len(t, writer.messages, 1)
	assert.Equal(t, TopicSummaries, writer.messages[0].Topic)
	assert.Equal(t, []byte("2025-03-01T12:00:00Z"), writer.messages[0].Key)

	var event SummaryEvent
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &event))
	assert.Equal(t, 3, event.Summary.TotalOpportunities)
	assert.Equal(t, int64(104400), event.Summary.TotalValue)
}

func TestPublisher_WriteError(t *testing.T) {
	writer := &recordingWriter{err: errors.New("broker down")}
	err := NewPublisherWithWriter(writer).PublishOpportunities(context.Background(), []*models.ExpansionOpportunity{{ID: "o1", CustomerID: "c1"}})
	assert.Error(t, err)
}

func TestPublisher_Close(t *testing.T) {
	writer := &recordingWriter{}
	p := NewPublisherWithWriter(writer)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, writer.closed)

	err := p.PublishOpportunities(context.Background(), []*models.ExpansionOpportunity{{ID: "o1", CustomerID: "c1"}})
	assert.ErrorIs(t, err, ErrPublisherClosed)
}

func TestNewPublisher_RequiresBrokers(t *testing.T) {
	_, err := NewPublisher(config.KafkaConfig{})
	assert.ErrorIs(t, err, ErrInvalidBrokers)
}

func TestGetTopicConfig(t *testing.T) {
	cfg, err := GetTopicConfig(TopicOpportunities)
	require.NoError(t, err)
	assert.Equal(t, "customer_id", cfg.KeyField)

	_, err = GetTopicConfig("unknown")
	assert.Error(t, err)
}
