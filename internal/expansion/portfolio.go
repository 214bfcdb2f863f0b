package expansion

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/prompt-general/cscx/pkg/models"
)

// Quick-win point allocation: value up to 40, confidence up to 40, timing 15 or 20
const (
	quickWinValuePoints      = 40.0
	quickWinValueScale       = 200000.0
	quickWinConfidencePoints = 40.0
	quickWinImmediatePoints  = 20.0
	quickWin30DayPoints      = 15.0

	quickWinStrongConfidence = 80
	quickWinStrongValue      = 50000
)

// SortField selects the ordering of the opportunity list
type SortField string

const (
	SortByValue      SortField = "value"
	SortByConfidence SortField = "confidence"
	SortByTimeline   SortField = "timeline"
	SortByCustomer   SortField = "customer"
)

// SortOrder is ascending or descending
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// PortfolioFilters narrow, order and page the opportunity list
type PortfolioFilters struct {
	Types            []models.OpportunityType `json:"types,omitempty"`
	MinValue         int64                    `json:"min_value,omitempty"`
	ConfidenceLevels []models.ConfidenceLevel `json:"confidence_levels,omitempty"`
	Timelines        []models.Timeline        `json:"timelines,omitempty"`
	Search           string                   `json:"search,omitempty"`
	SortBy           SortField                `json:"sort_by,omitempty"`
	SortOrder        SortOrder                `json:"sort_order,omitempty"`
	Offset           int                      `json:"offset,omitempty"`
	Limit            int                      `json:"limit,omitempty"`
}

// BucketSummary counts opportunities and their summed value
type BucketSummary struct {
	Count int   `json:"count"`
	Value int64 `json:"value"`
}

// TypeSummary adds the mean confidence score to a bucket
type TypeSummary struct {
	Count         int     `json:"count"`
	Value         int64   `json:"value"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// PortfolioSummary aggregates opportunities by confidence, timeline and type
type PortfolioSummary struct {
	TotalOpportunities int                                      `json:"total_opportunities"`
	TotalValue         int64                                    `json:"total_value"`
	ByConfidence       map[models.ConfidenceLevel]BucketSummary `json:"by_confidence"`
	ByTimeline         map[models.Timeline]BucketSummary        `json:"by_timeline"`
	ByType             map[models.OpportunityType]TypeSummary   `json:"by_type"`
}

// QuickWin is a high-confidence, near-term opportunity selected for priority action
type QuickWin struct {
	Opportunity *models.ExpansionOpportunity `json:"opportunity"`
	Score       float64                      `json:"score"`
	Reason      string                       `json:"reason"`
}

// PortfolioResult is the output of one portfolio computation
type PortfolioResult struct {
	Summary       PortfolioSummary               `json:"summary"`
	Opportunities []*models.ExpansionOpportunity `json:"opportunities"`
	QuickWins     []QuickWin                     `json:"quick_wins"`
	Total         int                            `json:"total"`
	GeneratedAt   time.Time                      `json:"generated_at"`
}

// FindOpportunities computes opportunities for every eligible customer, summarizes
// them, selects quick wins and returns the filtered, sorted, paginated list.
// Summary and quick wins cover the whole portfolio, not just the filtered page.
func (e *Engine) FindOpportunities(ctx context.Context, filters PortfolioFilters) (*PortfolioResult, error) {
	start := time.Now()
	customers, err := e.sources.Customers.ListCustomers(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "list customers")
	}

	eligible := e.eligibleCustomers(customers)
	results := make([]*models.ExpansionOpportunity, len(eligible))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Concurrency)
	for i := range eligible {
		customer := &eligible[i]
		g.Go(func() error {
			opp, err := e.Assemble(gctx, customer)
			if err != nil {
				zap.L().Warn("expansion: skipping customer",
					zap.String("customer_id", customer.ID),
					zap.Error(err),
				)
				return nil
			}
			results[i] = opp
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "portfolio computation cancelled")
	}

	all := make([]*models.ExpansionOpportunity, 0, len(results))
	for _, opp := range results {
		if opp != nil {
			all = append(all, opp)
		}
	}

	filtered := ApplyFilters(all, filters)
	SortOpportunities(filtered, filters.SortBy, filters.SortOrder)

	zap.L().Info("expansion: portfolio computed",
		zap.Int("customers", len(customers)),
		zap.Int("eligible", len(eligible)),
		zap.Int("opportunities", len(all)),
		zap.Duration("duration", time.Since(start)),
	)

	return &PortfolioResult{
		Summary:       Summarize(all),
		Opportunities: Paginate(filtered, filters.Offset, filters.Limit),
		QuickWins:     SelectQuickWins(all, e.config.QuickWinLimit),
		Total:         len(filtered),
		GeneratedAt:   e.now(),
	}, nil
}

// eligibleCustomers keeps active accounts at or above the health floor
func (e *Engine) eligibleCustomers(customers []models.Customer) []models.Customer {
	eligible := make([]models.Customer, 0, len(customers))
	for _, c := range customers {
		if c.Stage != models.StageActive {
			continue
		}
		health := e.config.DefaultHealthScore
		if c.HealthScore != nil {
			health = *c.HealthScore
		}
		if health < e.config.PortfolioHealthFloor {
			continue
		}
		eligible = append(eligible, c)
	}
	return eligible
}

// Summarize aggregates opportunities by confidence, timeline and type
func Summarize(opps []*models.ExpansionOpportunity) PortfolioSummary {
	summary := PortfolioSummary{
		ByConfidence: make(map[models.ConfidenceLevel]BucketSummary),
		ByTimeline:   make(map[models.Timeline]BucketSummary),
		ByType:       make(map[models.OpportunityType]TypeSummary),
	}
	confidenceTotals := make(map[models.OpportunityType]int)

	for _, opp := range opps {
		summary.TotalOpportunities++
		summary.TotalValue += opp.EstimatedValue

		c := summary.ByConfidence[opp.ConfidenceLevel]
		c.Count++
		c.Value += opp.EstimatedValue
		summary.ByConfidence[opp.ConfidenceLevel] = c

		t := summary.ByTimeline[opp.Timeline]
		t.Count++
		t.Value += opp.EstimatedValue
		summary.ByTimeline[opp.Timeline] = t

		ty := summary.ByType[opp.OpportunityType]
		ty.Count++
		ty.Value += opp.EstimatedValue
		summary.ByType[opp.OpportunityType] = ty
		confidenceTotals[opp.OpportunityType] += opp.ConfidenceScore
	}

	for oppType, ty := range summary.ByType {
		ty.AvgConfidence = float64(confidenceTotals[oppType]) / float64(ty.Count)
		summary.ByType[oppType] = ty
	}
	return summary
}

// IsQuickWinCandidate reports whether an opportunity is high confidence and near term
func IsQuickWinCandidate(opp *models.ExpansionOpportunity) bool {
	if opp.ConfidenceLevel != models.ConfidenceHigh {
		return false
	}
	return opp.Timeline == models.TimelineImmediate || opp.Timeline == models.Timeline30Days
}

// QuickWinScore ranks a quick-win candidate on a 100 point scale
func QuickWinScore(opp *models.ExpansionOpportunity) float64 {
	value := math.Min(quickWinValuePoints, float64(opp.EstimatedValue)/quickWinValueScale*quickWinValuePoints)
	confidence := float64(opp.ConfidenceScore) / 100 * quickWinConfidencePoints
	timing := quickWin30DayPoints
	if opp.Timeline == models.TimelineImmediate {
		timing = quickWinImmediatePoints
	}
	return value + confidence + timing
}

// QuickWinReason explains which parts of a quick win are strong
func QuickWinReason(opp *models.ExpansionOpportunity) string {
	var reasons []string
	if opp.ConfidenceScore >= quickWinStrongConfidence {
		reasons = append(reasons, fmt.Sprintf("very high confidence (%d)", opp.ConfidenceScore))
	}
	if opp.Timeline == models.TimelineImmediate {
		reasons = append(reasons, "ready for immediate outreach")
	}
	if opp.EstimatedValue >= quickWinStrongValue {
		reasons = append(reasons, fmt.Sprintf("estimated value $%d", opp.EstimatedValue))
	}
	if opp.Champion != nil {
		reasons = append(reasons, fmt.Sprintf("champion %s identified", opp.Champion.Name))
	}
	if len(reasons) == 0 {
		return "High confidence, near-term opportunity"
	}
	reason := strings.Join(reasons, "; ")
	return strings.ToUpper(reason[:1]) + reason[1:]
}

// SelectQuickWins ranks quick-win candidates and returns at most limit of them
func SelectQuickWins(opps []*models.ExpansionOpportunity, limit int) []QuickWin {
	wins := []QuickWin{}
	for _, opp := range opps {
		if !IsQuickWinCandidate(opp) {
			continue
		}
		wins = append(wins, QuickWin{
			Opportunity: opp,
			Score:       QuickWinScore(opp),
			Reason:      QuickWinReason(opp),
		})
	}
	sort.SliceStable(wins, func(i, j int) bool {
		return wins[i].Score > wins[j].Score
	})
	if limit >= 0 && len(wins) > limit {
		wins = wins[:limit]
	}
	return wins
}

// ApplyFilters returns the opportunities matching every set filter
func ApplyFilters(opps []*models.ExpansionOpportunity, filters PortfolioFilters) []*models.ExpansionOpportunity {
	search := strings.ToLower(strings.TrimSpace(filters.Search))
	out := make([]*models.ExpansionOpportunity, 0, len(opps))
	for _, opp := range opps {
		if len(filters.Types) > 0 && !contains(filters.Types, opp.OpportunityType) {
			continue
		}
		if filters.MinValue > 0 && opp.EstimatedValue < filters.MinValue {
			continue
		}
		if len(filters.ConfidenceLevels) > 0 && !contains(filters.ConfidenceLevels, opp.ConfidenceLevel) {
			continue
		}
		if len(filters.Timelines) > 0 && !contains(filters.Timelines, opp.Timeline) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(opp.CustomerName), search) {
			continue
		}
		out = append(out, opp)
	}
	return out
}

// SortOpportunities orders opportunities in place. The default is value, descending;
// timeline and customer default to ascending.
func SortOpportunities(opps []*models.ExpansionOpportunity, field SortField, order SortOrder) {
	if field == "" {
		field = SortByValue
	}
	if order == "" {
		order = SortDesc
		if field == SortByTimeline || field == SortByCustomer {
			order = SortAsc
		}
	}

	less := func(a, b *models.ExpansionOpportunity) bool {
		switch field {
		case SortByConfidence:
			return a.ConfidenceScore < b.ConfidenceScore
		case SortByTimeline:
			return a.Timeline.Urgency() < b.Timeline.Urgency()
		case SortByCustomer:
			return strings.ToLower(a.CustomerName) < strings.ToLower(b.CustomerName)
		default:
			return a.EstimatedValue < b.EstimatedValue
		}
	}

	sort.SliceStable(opps, func(i, j int) bool {
		if order == SortAsc {
			return less(opps[i], opps[j])
		}
		return less(opps[j], opps[i])
	})
}

// Paginate applies offset and limit. A non-positive limit returns everything after offset.
func Paginate(opps []*models.ExpansionOpportunity, offset, limit int) []*models.ExpansionOpportunity {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(opps) {
		return []*models.ExpansionOpportunity{}
	}
	end := len(opps)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return opps[offset:end]
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
