package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/pricing"
	"github.com/erazemk/zaloga/internal/store"
)

// ItemsHandler handles inventory item endpoints.
type ItemsHandler struct {
	DB     *sql.DB
	Policy *PolicySource
}

type createItemRequest struct {
	ProductID    int64  `json:"product_id"`
	SKU          string `json:"sku"`
	Condition    string `json:"condition"`
	PurchaseCost int64  `json:"purchase_cost"`
	ExtraCosts   int64  `json:"extra_costs"`
	PricingMode  string `json:"pricing_mode"`
	ManualPrice  *int64 `json:"manual_price"`
}

type setPricingRequest struct {
	PricingMode string `json:"pricing_mode"`
	ManualPrice *int64 `json:"manual_price"`
}

type snapshotRequest struct {
	ConditionPrice *int64     `json:"condition_price"`
	GenericPrice   *int64     `json:"generic_price"`
	OfferCount     int        `json:"offer_count"`
	SalesRank      *int64     `json:"sales_rank"`
	CapturedAt     *time.Time `json:"captured_at"`
}

type itemDetail struct {
	*model.InventoryItem
	Snapshot *model.MarketSnapshot `json:"snapshot,omitempty"`
}

// splitParam splits a comma-separated query parameter, dropping empty parts.
func splitParam(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// List handles GET /api/items?status=&mode=&q=.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ItemFilter{Search: q.Get("q")}
	for _, s := range splitParam(q.Get("status")) {
		filter.Statuses = append(filter.Statuses, model.ItemStatus(s))
	}
	for _, m := range splitParam(q.Get("mode")) {
		filter.Modes = append(filter.Modes, model.PricingMode(m))
	}

	filter, err := filter.Normalize()
	if err != nil {
		domainError(w, r, err, "list items")
		return
	}

	items, err := store.ListItems(r.Context(), h.DB, filter)
	if err != nil {
		domainError(w, r, err, "list items")
		return
	}
	if items == nil {
		items = []model.InventoryItem{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var target pricing.Target = pricing.Auto{}
	if req.PricingMode != "" || req.ManualPrice != nil {
		mode := req.PricingMode
		if mode == "" {
			mode = string(model.PricingManual)
		}
		t, err := pricing.ParseTarget(mode, req.ManualPrice)
		if err != nil {
			domainError(w, r, err, "create item")
			return
		}
		target = t
	}

	policy, err := h.Policy.Current(r.Context())
	if err != nil {
		domainError(w, r, err, "load pricing policy")
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, store.NewItem{
		ProductID:    req.ProductID,
		SKU:          req.SKU,
		Condition:    req.Condition,
		PurchaseCost: req.PurchaseCost,
		ExtraCosts:   req.ExtraCosts,
		Target:       target,
	}, policy)
	if err != nil {
		domainError(w, r, err, "create item")
		return
	}

	slog.Info("item created", "item", item.ID, "sku", item.SKU, "operator", operatorName(r.Context()))
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		domainError(w, r, err, "get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	snap, err := store.GetMarketSnapshot(r.Context(), h.DB, id)
	if err != nil {
		domainError(w, r, err, "get item")
		return
	}

	jsonResponse(w, http.StatusOK, itemDetail{InventoryItem: item, Snapshot: snap})
}

// Price handles GET /api/items/{id}/price.
func (h *ItemsHandler) Price(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	policy, err := h.Policy.Current(r.Context())
	if err != nil {
		domainError(w, r, err, "load pricing policy")
		return
	}

	res, err := store.ExplainItemPrice(r.Context(), h.DB, id, policy)
	if err != nil {
		domainError(w, r, err, "explain price")
		return
	}
	if res == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// SetPricing handles PUT /api/items/{id}/pricing.
func (h *ItemsHandler) SetPricing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req setPricingRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target, err := pricing.ParseTarget(req.PricingMode, req.ManualPrice)
	if err != nil {
		domainError(w, r, err, "set pricing")
		return
	}

	policy, err := h.Policy.Current(r.Context())
	if err != nil {
		domainError(w, r, err, "load pricing policy")
		return
	}

	item, err := store.SetItemPricing(r.Context(), h.DB, id, target, policy)
	if err != nil {
		domainError(w, r, err, "set pricing")
		return
	}

	slog.Info("item repriced",
		"item", item.ID,
		"mode", item.PricingMode,
		"source", item.PriceSource,
		"operator", operatorName(r.Context()),
	)
	jsonResponse(w, http.StatusOK, item)
}

// SetSnapshot handles PUT /api/items/{id}/snapshot.
func (h *ItemsHandler) SetSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req snapshotRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap := model.MarketSnapshot{
		ItemID:         id,
		ConditionPrice: req.ConditionPrice,
		GenericPrice:   req.GenericPrice,
		OfferCount:     req.OfferCount,
		SalesRank:      req.SalesRank,
	}
	if req.CapturedAt != nil {
		snap.CapturedAt = req.CapturedAt.UTC()
	}

	stored, err := store.SetMarketSnapshot(r.Context(), h.DB, snap)
	if err != nil {
		domainError(w, r, err, "store market snapshot")
		return
	}
	jsonResponse(w, http.StatusOK, stored)
}
