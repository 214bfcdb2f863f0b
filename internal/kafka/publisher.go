package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/segmentio/kafka-go"

	"github.com/prompt-general/cscx/internal/config"
	"github.com/prompt-general/cscx/internal/expansion"
	"github.com/prompt-general/cscx/pkg/models"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// SummaryEvent is the payload written to the summaries topic
type SummaryEvent struct {
	Summary     expansion.PortfolioSummary `json:"summary"`
	QuickWins   []expansion.QuickWin       `json:"quick_wins"`
	GeneratedAt time.Time                  `json:"generated_at"`
}

// Publisher fans computed opportunities out to downstream consumers
type Publisher struct {
	writer MessageWriter
	mu     sync.Mutex
	closed bool
}

// NewPublisher creates a publisher backed by a kafka-go writer
func NewPublisher(cfg config.KafkaConfig) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrInvalidBrokers
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		Compression:  kafka.Gzip,
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.Timeout,
	}

	return NewPublisherWithWriter(writer), nil
}

// NewPublisherWithWriter wraps an existing writer. The writer must not have a
// default topic set.
func NewPublisherWithWriter(writer MessageWriter) *Publisher {
	return &Publisher{writer: writer}
}

// PublishOpportunities writes one message per opportunity, keyed by customer id
func (p *Publisher) PublishOpportunities(ctx context.Context, opps []*models.ExpansionOpportunity) error {
	if len(opps) == 0 {
		return nil
	}

	messages := make([]kafka.Message, 0, len(opps))
	for _, opp := range opps {
		value, err := json.Marshal(opp)
		if err != nil {
			return eris.Wrapf(err, "marshal opportunity %s", opp.ID)
		}
		messages = append(messages, kafka.Message{
			Topic: TopicOpportunities,
			Key:   []byte(opp.CustomerID),
			Value: value,
		})
	}
	return p.send(ctx, messages...)
}

// PublishSummary writes the portfolio summary and quick wins
func (p *Publisher) PublishSummary(ctx context.Context, result *expansion.PortfolioResult) error {
	value, err := json.Marshal(SummaryEvent{
		Summary:     result.Summary,
		QuickWins:   result.QuickWins,
		GeneratedAt: result.GeneratedAt,
	})
	if err != nil {
		return eris.Wrap(err, "marshal portfolio summary")
	}
	return p.send(ctx, kafka.Message{
		Topic: TopicSummaries,
		Key:   []byte(result.GeneratedAt.UTC().Format(time.RFC3339)),
		Value: value,
	})
}

func (p *Publisher) send(ctx context.Context, messages ...kafka.Message) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPublisherClosed
	}
	p.mu.Unlock()

	for _, m := range messages {
		if m.Topic == "" {
			return ErrInvalidTopic
		}
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		return eris.Wrapf(err, "write %d message(s)", len(messages))
	}
	return nil
}

// Close closes the publisher
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	return p.writer.Close()
}
