package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/zaloga/internal/metrics"
	"github.com/erazemk/zaloga/internal/pricing"
	"github.com/erazemk/zaloga/internal/store"
)

// RepricingHandler serves the two-phase bulk re-pricing protocol.
type RepricingHandler struct {
	DB         *sql.DB
	Policy     *PolicySource
	SampleSize int
	Metrics    *metrics.Metrics
}

// repricingRequest is the body shared by preview and apply.
type repricingRequest struct {
	Filter            store.ItemFilter `json:"filter"`
	TargetMode        string           `json:"target_mode"`
	TargetManualPrice *int64           `json:"target_manual_price"`
}

// parse validates the request and returns its typed target and the policy.
func (h *RepricingHandler) parse(w http.ResponseWriter, r *http.Request, phase string) (*repricingRequest, pricing.Target, pricing.Policy, bool) {
	h.Metrics.RepricingRequests.WithLabelValues(phase).Inc()

	var req repricingRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return nil, nil, pricing.Policy{}, false
	}

	target, err := pricing.ParseTarget(req.TargetMode, req.TargetManualPrice)
	if err != nil {
		domainError(w, r, err, phase+" repricing")
		return nil, nil, pricing.Policy{}, false
	}

	policy, err := h.Policy.Current(r.Context())
	if err != nil {
		domainError(w, r, err, "load pricing policy")
		return nil, nil, pricing.Policy{}, false
	}
	return &req, target, policy, true
}

// Preview handles POST /api/repricing/preview.
func (h *RepricingHandler) Preview(w http.ResponseWriter, r *http.Request) {
	req, target, policy, ok := h.parse(w, r, "preview")
	if !ok {
		return
	}

	preview, err := store.PreviewRepricing(r.Context(), h.DB, req.Filter, target, policy)
	if err != nil {
		domainError(w, r, err, "preview repricing")
		return
	}
	jsonResponse(w, http.StatusOK, preview)
}

// Apply handles POST /api/repricing/apply.
func (h *RepricingHandler) Apply(w http.ResponseWriter, r *http.Request) {
	req, target, policy, ok := h.parse(w, r, "apply")
	if !ok {
		return
	}

	result, err := store.ApplyRepricing(r.Context(), h.DB, req.Filter, target, policy, h.SampleSize)
	if err != nil {
		domainError(w, r, err, "apply repricing")
		return
	}

	h.Metrics.RepricingItemsUpdated.Add(float64(result.Updated))
	slog.Info("repricing applied",
		"target", target.Mode(),
		"matched", result.Matched,
		"updated", result.Updated,
		"operator", operatorName(r.Context()),
	)
	jsonResponse(w, http.StatusOK, result)
}
