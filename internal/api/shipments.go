package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/zaloga/internal/fulfillment"
	"github.com/erazemk/zaloga/internal/idempotency"
	"github.com/erazemk/zaloga/internal/metrics"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// ShipmentsHandler handles inbound shipment drafts and their lifecycle.
type ShipmentsHandler struct {
	DB      *sql.DB
	Guard   idempotency.Guard
	Metrics *metrics.Metrics
}

type createShipmentRequest struct {
	Label        string  `json:"label"`
	ItemIDs      []int64 `json:"item_ids"`
	ShippingCost int64   `json:"shipping_cost"`
	Distribution string  `json:"distribution"`
}

type addItemsRequest struct {
	ItemIDs []int64 `json:"item_ids"`
}

type receiveRequest struct {
	Receipts []fulfillment.Receipt `json:"receipts"`
}

// Create handles POST /api/shipments.
func (h *ShipmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createShipmentRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	method := model.DistributionMethod(strings.ToUpper(strings.TrimSpace(req.Distribution)))
	s, err := store.CreateShipment(r.Context(), h.DB, req.Label, req.ItemIDs, req.ShippingCost, method)
	if err != nil {
		domainError(w, r, err, "create shipment")
		return
	}

	slog.Info("shipment drafted",
		"shipment", s.ID,
		"items", len(s.Lines),
		"shipping_cost", s.ShippingCost,
		"operator", operatorName(r.Context()),
	)
	jsonResponse(w, http.StatusCreated, s)
}

// List handles GET /api/shipments?status=.
func (h *ShipmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	status := model.ShipmentStatus(strings.ToUpper(r.URL.Query().Get("status")))
	shipments, err := store.ListShipments(r.Context(), h.DB, status)
	if err != nil {
		domainError(w, r, err, "list shipments")
		return
	}
	jsonResponse(w, http.StatusOK, shipments)
}

// Get handles GET /api/shipments/{id}.
func (h *ShipmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid shipment id")
		return
	}

	s, err := store.GetShipment(r.Context(), h.DB, id)
	if err != nil {
		domainError(w, r, err, "get shipment")
		return
	}
	if s == nil {
		jsonError(w, http.StatusNotFound, "shipment not found")
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// Update handles PUT /api/shipments/{id}.
func (h *ShipmentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid shipment id")
		return
	}

	var upd store.ShipmentUpdate
	if err := decodeJSON(r, &upd); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s, err := store.UpdateShipment(r.Context(), h.DB, id, upd)
	if err != nil {
		domainError(w, r, err, "update shipment")
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// AddItems handles POST /api/shipments/{id}/items.
func (h *ShipmentsHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid shipment id")
		return
	}

	var req addItemsRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s, err := store.AddShipmentItems(r.Context(), h.DB, id, req.ItemIDs)
	if err != nil {
		domainError(w, r, err, "add shipment items")
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// RemoveItem handles DELETE /api/shipments/{id}/items/{itemID}.
func (h *ShipmentsHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid shipment id")
		return
	}
	itemID, ok := pathID(r, "itemID")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	s, err := store.RemoveShipmentItem(r.Context(), h.DB, id, itemID)
	if err != nil {
		domainError(w, r, err, "remove shipment item")
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// Delete handles DELETE /api/shipments/{id}.
func (h *ShipmentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid shipment id")
		return
	}

	if err := store.DeleteShipment(r.Context(), h.DB, id); err != nil {
		domainError(w, r, err, "delete shipment")
		return
	}

	slog.Info("shipment deleted", "shipment", id, "operator", operatorName(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// Ship handles POST /api/shipments/{id}/ship.
func (h *ShipmentsHandler) Ship(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid shipment id")
		return
	}

	h.transition(w, r, fulfillment.ActionShip, id, func() (*model.Shipment, error) {
		return store.ShipShipment(r.Context(), h.DB, id)
	})
}

// Receive handles POST /api/shipments/{id}/receive. An empty body receives
// every line as RECEIVED.
func (h *ShipmentsHandler) Receive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid shipment id")
		return
	}

	var req receiveRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.transition(w, r, fulfillment.ActionReceive, id, func() (*model.Shipment, error) {
		return store.ReceiveShipment(r.Context(), h.DB, id, req.Receipts)
	})
}

// transition runs a non-idempotent shipment action. When the caller sends an
// Idempotency-Key, a repeated key is refused before any state is touched and
// a failed action frees its key for retry.
func (h *ShipmentsHandler) transition(w http.ResponseWriter, r *http.Request, action fulfillment.Action, id int64, run func() (*model.Shipment, error)) {
	ctx := r.Context()
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		key = fmt.Sprintf("%s:%d:%s", action, id, key)
		claimed, err := h.Guard.Claim(ctx, key)
		if err != nil {
			domainError(w, r, fmt.Errorf("claiming idempotency key: %w", err), string(action)+" shipment")
			return
		}
		if !claimed {
			jsonError(w, http.StatusConflict, "duplicate request: idempotency key already used")
			return
		}
	}

	s, err := run()
	if err != nil {
		if key != "" {
			if rerr := h.Guard.Release(ctx, key); rerr != nil {
				slog.Error("releasing idempotency key", "key", key, "error", rerr)
			}
		}
		domainError(w, r, err, string(action)+" shipment")
		return
	}

	h.Metrics.ShipmentTransitions.WithLabelValues(string(action)).Inc()
	slog.Info("shipment "+string(action),
		"shipment", s.ID,
		"status", s.Status,
		"items", len(s.Lines),
		"operator", operatorName(ctx),
		"request_id", RequestID(ctx),
	)
	jsonResponse(w, http.StatusOK, s)
}
