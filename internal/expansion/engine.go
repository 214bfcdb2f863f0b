package expansion

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/prompt-general/cscx/internal/telemetry"
	"github.com/prompt-general/cscx/pkg/models"
)

// ErrCustomerNotFound is returned when the customer record does not exist
var ErrCustomerNotFound = eris.New("customer not found")

// Engine computes expansion opportunities from customer signals. It keeps no
// state between calls; every call builds fresh opportunities.
type Engine struct {
	config     Config
	sources    Sources
	detectors  []Detector
	scorer     *ConfidenceScorer
	classifier *Classifier
	approach   *ApproachGenerator
	now        func() time.Time
}

// Option customizes an Engine
type Option func(*Engine)

// WithClock sets the time source used for detection timestamps and renewal math
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithDetectors replaces the default detector set
func WithDetectors(detectors ...Detector) Option {
	return func(e *Engine) { e.detectors = detectors }
}

// NewEngine creates a new expansion engine. generator may be nil, in which case
// every approach uses the fallback templates.
func NewEngine(config Config, sources Sources, generator TextGenerator, opts ...Option) *Engine {
	engine := &Engine{
		config:     config,
		sources:    sources,
		scorer:     NewConfidenceScorer(config),
		classifier: NewClassifier(config),
		approach:   NewApproachGenerator(generator, config.ApproachTimeout),
		now:        time.Now,
	}

	if sources.Usage != nil {
		engine.detectors = append(engine.detectors, NewUsageDetector(sources.Usage, config))
	}
	if sources.Contracts != nil {
		engine.detectors = append(engine.detectors, NewContractDetector(sources.Contracts, config))
	}
	if sources.Meetings != nil {
		engine.detectors = append(engine.detectors, NewStakeholderDetector(sources.Meetings, config))
	}

	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.config
}

// GetCustomerOpportunity computes the opportunity for one customer. It returns
// nil without error when no signals were detected.
func (e *Engine) GetCustomerOpportunity(ctx context.Context, customerID string) (*models.ExpansionOpportunity, error) {
	customer, err := e.sources.Customers.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, eris.Wrapf(err, "get customer %s", customerID)
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	return e.Assemble(ctx, customer)
}

// Assemble runs the full pipeline for a customer record
func (e *Engine) Assemble(ctx context.Context, customer *models.Customer) (*models.ExpansionOpportunity, error) {
	ctx, span := telemetry.StartSpan(ctx, "expansion.assemble")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", customer.ID))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := e.now()
	log := zap.L().With(zap.String("customer_id", customer.ID))

	signals := e.DetectSignals(ctx, customer, now)
	if len(signals) == 0 {
		log.Debug("expansion: no signals detected")
		return nil, nil
	}
	span.SetAttributes(attribute.Int("expansion.signals", len(signals)))

	healthScore := e.config.DefaultHealthScore
	if customer.HealthScore != nil {
		healthScore = *customer.HealthScore
	}
	daysToRenewal := DaysUntil(customer.RenewalDate, now)

	confidence := e.scorer.Score(ConfidenceFactors{
		SignalStrength:      SignalStrengthFactor(signals),
		HealthScore:         float64(healthScore),
		ChampionEngagement:  e.championEngagement(ctx, customer.ID),
		HistoricalExpansion: e.historicalExpansion(ctx, customer.ID),
	})

	classification := e.classifier.Classify(signals, customer.ARR, daysToRenewal)

	var stakeholders []models.StakeholderRecord
	if e.sources.Stakeholders != nil {
		var err error
		stakeholders, err = e.sources.Stakeholders.FetchStakeholders(ctx, customer.ID)
		if err != nil {
			log.Warn("expansion: stakeholder fetch failed", zap.Error(err))
			stakeholders = nil
		}
	}
	champion := ResolveChampion(stakeholders)

	approach := e.approach.Generate(ctx, ApproachInput{
		CustomerName: customer.Name,
		CurrentARR:   customer.ARR,
		HealthScore:  healthScore,
		Champion:     champion,
		Signals:      signals,
	})

	blockers := IdentifyBlockers(e.config, healthScore, daysToRenewal, signals)

	return &models.ExpansionOpportunity{
		ID:                uuid.NewString(),
		CustomerID:        customer.ID,
		CustomerName:      customer.Name,
		OpportunityType:   classification.Type,
		Timeline:          classification.Timeline,
		EstimatedValue:    classification.EstimatedValue,
		CurrentARR:        customer.ARR,
		ConfidenceScore:   confidence.Score,
		ConfidenceLevel:   confidence.Level,
		Signals:           signals,
		SuggestedApproach: approach,
		Champion:          champion,
		Blockers:          blockers,
		HealthScore:       healthScore,
		Segment:           customer.Segment,
		RenewalDate:       customer.RenewalDate,
		DaysToRenewal:     daysToRenewal,
		DetectedAt:        now,
		LastUpdated:       now,
	}, nil
}

// DetectSignals runs every detector concurrently and unions their output in
// detector order. Detector failures are logged and contribute no signals.
func (e *Engine) DetectSignals(ctx context.Context, customer *models.Customer, now time.Time) []models.ExpansionSignal {
	results := make([][]models.ExpansionSignal, len(e.detectors))

	var g errgroup.Group
	for i, detector := range e.detectors {
		g.Go(func() error {
			start := time.Now()
			signals, err := detector.Detect(ctx, customer, now)
			if err != nil {
				zap.L().Warn("expansion: detector failed",
					zap.String("customer_id", customer.ID),
					zap.String("detector", detector.Name()),
					zap.Duration("duration", time.Since(start)),
					zap.Error(err),
				)
			}
			results[i] = signals
			return nil
		})
	}
	_ = g.Wait()

	var union []models.ExpansionSignal
	for _, signals := range results {
		for _, signal := range signals {
			if signal.Strength <= 0 {
				continue
			}
			union = append(union, signal)
		}
	}
	return union
}

func (e *Engine) championEngagement(ctx context.Context, customerID string) float64 {
	if e.sources.History == nil {
		return baselineFactor
	}
	count, err := e.sources.History.CountRecentActivities(ctx, customerID, e.config.MaxRecentActivities)
	if err != nil {
		zap.L().Warn("expansion: activity count failed", zap.String("customer_id", customerID), zap.Error(err))
		return baselineFactor
	}
	return ChampionEngagementFactor(count, e.config.MaxRecentActivities)
}

func (e *Engine) historicalExpansion(ctx context.Context, customerID string) float64 {
	if e.sources.History == nil {
		return baselineFactor
	}
	count, err := e.sources.History.CountClosedWonExpansions(ctx, customerID)
	if err != nil {
		zap.L().Warn("expansion: expansion history failed", zap.String("customer_id", customerID), zap.Error(err))
		return baselineFactor
	}
	return HistoricalExpansionFactor(count)
}

// DaysUntil returns the whole days, rounded up, from now until date
func DaysUntil(date *time.Time, now time.Time) *int {
	if date == nil {
		return nil
	}
	days := int(math.Ceil(date.Sub(now).Hours() / 24))
	return &days
}
