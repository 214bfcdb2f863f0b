package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/prompt-general/cscx/internal/expansion"
	"github.com/prompt-general/cscx/pkg/models"
)

const maxPageSize = 500

// Expansion handlers

func (g *Gateway) handleListOpportunities(w http.ResponseWriter, r *http.Request) {
	filters, err := parsePortfolioFilters(r.URL.Query())
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid query parameters", err.Error())
		return
	}

	result, err := g.service.FindOpportunities(r.Context(), filters)
	if err != nil {
		g.logger.Error("portfolio computation failed", zap.Error(err))
		writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute opportunities", err.Error())
		return
	}

	meta := &APIMeta{
		Total:   result.Total,
		Limit:   filters.Limit,
		Offset:  filters.Offset,
		HasMore: filters.Limit > 0 && filters.Offset+len(result.Opportunities) < result.Total,
	}
	writeSuccessResponse(w, result, meta)
}

func (g *Gateway) handleGetCustomerOpportunity(w http.ResponseWriter, r *http.Request) {
	customerID := mux.Vars(r)["id"]

	opp, err := g.service.GetCustomerOpportunity(r.Context(), customerID)
	switch {
	case errors.Is(err, expansion.ErrCustomerNotFound):
		writeErrorResponse(w, http.StatusNotFound, "NOT_FOUND", "Customer not found", customerID)
		return
	case err != nil:
		g.logger.Error("opportunity computation failed", zap.String("customer_id", customerID), zap.Error(err))
		writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute opportunity", err.Error())
		return
	case opp == nil:
		writeErrorResponse(w, http.StatusNotFound, "NO_OPPORTUNITY", "No expansion signals for customer", customerID)
		return
	}

	writeSuccessResponse(w, opp, nil)
}

// Metrics and admin handlers

func (g *Gateway) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeSuccessResponse(w, map[string]interface{}{"gateway": g.GetMetrics()}, nil)
}

func (g *Gateway) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if g.cache == nil {
		writeSuccessResponse(w, map[string]interface{}{"enabled": false}, nil)
		return
	}
	writeSuccessResponse(w, g.cache.Stats(), nil)
}

// parsePortfolioFilters reads list filters from the query string. Repeated
// parameters and comma-separated values are both accepted.
func parsePortfolioFilters(q url.Values) (expansion.PortfolioFilters, error) {
	var f expansion.PortfolioFilters

	for _, t := range splitValues(q["types"]) {
		ot := models.OpportunityType(t)
		switch ot {
		case models.OpportunityUpsell, models.OpportunityCrossSell, models.OpportunitySeatExpansion, models.OpportunityTierUpgrade:
			f.Types = append(f.Types, ot)
		default:
			return f, eris.Errorf("unknown opportunity type: %s", t)
		}
	}
	for _, c := range splitValues(q["confidence"]) {
		level := models.ConfidenceLevel(c)
		switch level {
		case models.ConfidenceHigh, models.ConfidenceMedium, models.ConfidenceLow:
			f.ConfidenceLevels = append(f.ConfidenceLevels, level)
		default:
			return f, eris.Errorf("unknown confidence level: %s", c)
		}
	}
	for _, t := range splitValues(q["timeline"]) {
		tl := models.Timeline(t)
		if tl.Urgency() > models.TimelineNextRenewal.Urgency() {
			return f, eris.Errorf("unknown timeline: %s", t)
		}
		f.Timelines = append(f.Timelines, tl)
	}

	if v := q.Get("min_value"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return f, eris.New("min_value must be a non-negative integer")
		}
		f.MinValue = n
	}

	f.Search = q.Get("search")

	if v := q.Get("sort_by"); v != "" {
		field := expansion.SortField(v)
		switch field {
		case expansion.SortByValue, expansion.SortByConfidence, expansion.SortByTimeline, expansion.SortByCustomer:
			f.SortBy = field
		default:
			return f, eris.Errorf("unknown sort_by: %s", v)
		}
	}
	if v := q.Get("sort_order"); v != "" {
		order := expansion.SortOrder(strings.ToLower(v))
		if order != expansion.SortAsc && order != expansion.SortDesc {
			return f, eris.New("sort_order must be asc or desc")
		}
		f.SortOrder = order
	}

	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, eris.New("offset must be a non-negative integer")
		}
		f.Offset = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, eris.New("limit must be a non-negative integer")
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		f.Limit = n
	}

	return f, nil
}

func splitValues(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
