package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/zaloga/internal/pricing"
	"github.com/erazemk/zaloga/internal/store"
)

// PolicySource yields the pricing policy in force: stored settings over
// the configured defaults.
type PolicySource struct {
	DB       *sql.DB
	Defaults pricing.Policy
}

// Current returns the policy to price with right now.
func (p *PolicySource) Current(ctx context.Context) (pricing.Policy, error) {
	return store.GetPricingPolicy(ctx, p.DB, p.Defaults)
}

// SettingsHandler exposes runtime-tunable settings.
type SettingsHandler struct {
	Policy *PolicySource
}

// GetPricing handles GET /api/settings/pricing.
func (h *SettingsHandler) GetPricing(w http.ResponseWriter, r *http.Request) {
	policy, err := h.Policy.Current(r.Context())
	if err != nil {
		domainError(w, r, err, "load pricing policy")
		return
	}
	jsonResponse(w, http.StatusOK, policy)
}

// PutPricing handles PUT /api/settings/pricing.
func (h *SettingsHandler) PutPricing(w http.ResponseWriter, r *http.Request) {
	var policy pricing.Policy
	if err := decodeJSON(r, &policy); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := store.SetPricingPolicy(r.Context(), h.Policy.DB, policy); err != nil {
		domainError(w, r, err, "store pricing policy")
		return
	}

	slog.Info("pricing policy changed",
		"adjustment_bp", policy.AdjustmentBP,
		"min_margin", policy.MinMargin,
		"operator", operatorName(r.Context()),
	)
	jsonResponse(w, http.StatusOK, policy)
}
