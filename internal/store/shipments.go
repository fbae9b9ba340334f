package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/erazemk/zaloga/internal/fulfillment"
	"github.com/erazemk/zaloga/internal/model"
)

// shipmentHeader is a shipment row without its lines.
type shipmentHeader struct {
	id     int64
	status model.ShipmentStatus
	cost   int64
	method model.DistributionMethod
}

func getShipmentHeader(ctx context.Context, q querier, id int64) (*shipmentHeader, error) {
	h := &shipmentHeader{id: id}
	err := q.QueryRowContext(ctx,
		`SELECT status, shipping_cost, distribution FROM shipments WHERE id = ?`, id,
	).Scan(&h.status, &h.cost, &h.method)
	if err == sql.ErrNoRows {
		return nil, model.NotFoundf("shipment %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting shipment: %w", err)
	}
	return h, nil
}

func loadItems(ctx context.Context, q querier, ids []int64) ([]model.InventoryItem, error) {
	items := make([]model.InventoryItem, 0, len(ids))
	for _, id := range ids {
		pi, err := getPricedItem(ctx, q, id)
		if err != nil {
			return nil, err
		}
		if pi == nil {
			return nil, model.NotFoundf("item %d not found", id)
		}
		items = append(items, pi.item)
	}
	return items, nil
}

// checkNotOnOpenShipment fails if any item is on a shipment that has not
// been received yet.
func checkNotOnOpenShipment(ctx context.Context, q querier, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, string(model.ShipmentReceived))
	for _, id := range ids {
		args = append(args, id)
	}

	var itemID, shipmentID int64
	err := q.QueryRowContext(ctx,
		`SELECT sl.item_id, sl.shipment_id
		 FROM shipment_lines sl
		 JOIN shipments s ON s.id = sl.shipment_id
		 WHERE s.status != ? AND sl.item_id IN (`+placeholders(len(ids))+`)
		 ORDER BY sl.item_id LIMIT 1`, args...,
	).Scan(&itemID, &shipmentID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking open shipments: %w", err)
	}
	return model.Conflictf("item %d is already on open shipment %d", itemID, shipmentID)
}

func insertLines(ctx context.Context, q querier, shipmentID int64, lines []model.ShipmentLine, offset int) error {
	for _, l := range lines {
		_, err := q.ExecContext(ctx,
			`INSERT INTO shipment_lines (shipment_id, item_id, position, allocated_cost) VALUES (?, ?, ?, ?)`,
			shipmentID, l.ItemID, l.Position+offset, l.AllocatedCost,
		)
		if err != nil {
			return fmt.Errorf("adding item %d to shipment: %w", l.ItemID, err)
		}
	}
	return nil
}

// reallocate recomputes every line's share of the shipment's cost.
func reallocate(ctx context.Context, q querier, h *shipmentHeader) error {
	lines, err := getLines(ctx, q, h.id)
	if err != nil {
		return err
	}
	weights := make([]int64, len(lines))
	for i, l := range lines {
		weights[i] = l.PurchaseCost
	}
	shares, err := fulfillment.Allocate(h.method, h.cost, weights)
	if err != nil {
		return err
	}
	for i, l := range lines {
		_, err := q.ExecContext(ctx,
			`UPDATE shipment_lines SET allocated_cost = ? WHERE shipment_id = ? AND item_id = ?`,
			shares[i], h.id, l.ItemID,
		)
		if err != nil {
			return fmt.Errorf("updating allocation for item %d: %w", l.ItemID, err)
		}
	}
	return nil
}

func getLines(ctx context.Context, q querier, shipmentID int64) ([]model.ShipmentLine, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT sl.shipment_id, sl.item_id, sl.position, sl.allocated_cost, sl.disposition, sl.note,
		        i.sku, p.title, i.purchase_cost, i.status
		 FROM shipment_lines sl
		 JOIN items i ON i.id = sl.item_id
		 JOIN products p ON p.id = i.product_id
		 WHERE sl.shipment_id = ?
		 ORDER BY sl.position`, shipmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting shipment lines: %w", err)
	}
	defer rows.Close()

	lines := []model.ShipmentLine{}
	for rows.Next() {
		var l model.ShipmentLine
		var disposition sql.NullString
		if err := rows.Scan(&l.ShipmentID, &l.ItemID, &l.Position, &l.AllocatedCost, &disposition, &l.Note,
			&l.SKU, &l.ProductTitle, &l.PurchaseCost, &l.ItemStatus); err != nil {
			return nil, fmt.Errorf("scanning shipment line: %w", err)
		}
		if disposition.Valid {
			d := model.Disposition(disposition.String)
			l.Disposition = &d
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// CreateShipment drafts a shipment for the given items, in order. Every item
// must be AVAILABLE and not on another open shipment. Item statuses do not
// change until the shipment is shipped.
func CreateShipment(ctx context.Context, db *sql.DB, label string, itemIDs []int64, cost int64, method model.DistributionMethod) (*model.Shipment, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		label = "Inbound " + uuid.NewString()[:8]
	}
	if cost < 0 {
		return nil, model.Validationf("shipping cost must not be negative")
	}
	if method == "" {
		method = model.DistributeEqual
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	items, err := loadItems(ctx, tx, itemIDs)
	if err != nil {
		return nil, err
	}
	lines, err := fulfillment.Build(items, cost, method)
	if err != nil {
		return nil, err
	}
	if err := checkNotOnOpenShipment(ctx, tx, itemIDs); err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO shipments (label, shipping_cost, distribution) VALUES (?, ?, ?)`,
		label, cost, method,
	)
	if err != nil {
		return nil, fmt.Errorf("creating shipment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting shipment id: %w", err)
	}

	if err := insertLines(ctx, tx, id, lines, 0); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing shipment: %w", err)
	}
	return GetShipment(ctx, db, id)
}

// GetShipment returns a shipment with its lines.
func GetShipment(ctx context.Context, db *sql.DB, id int64) (*model.Shipment, error) {
	s := &model.Shipment{}
	err := db.QueryRowContext(ctx,
		`SELECT id, label, status, shipping_cost, distribution, created_at, shipped_at, received_at
		 FROM shipments WHERE id = ?`, id,
	).Scan(&s.ID, &s.Label, &s.Status, &s.ShippingCost, &s.Distribution, &s.CreatedAt, &s.ShippedAt, &s.ReceivedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting shipment: %w", err)
	}

	s.Lines, err = getLines(ctx, db, id)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListShipments returns all shipments, newest first, optionally filtered by status.
func ListShipments(ctx context.Context, db *sql.DB, status model.ShipmentStatus) ([]model.Shipment, error) {
	query := `SELECT id, label, status, shipping_cost, distribution, created_at, shipped_at, received_at
	          FROM shipments`
	var args []any
	if status != "" {
		if !status.IsValid() {
			return nil, model.Validationf("invalid shipment status %q", status)
		}
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing shipments: %w", err)
	}
	defer rows.Close()

	shipments := []model.Shipment{}
	for rows.Next() {
		var s model.Shipment
		if err := rows.Scan(&s.ID, &s.Label, &s.Status, &s.ShippingCost, &s.Distribution, &s.CreatedAt, &s.ShippedAt, &s.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scanning shipment: %w", err)
		}
		shipments = append(shipments, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range shipments {
		if shipments[i].Lines, err = getLines(ctx, db, shipments[i].ID); err != nil {
			return nil, err
		}
	}
	return shipments, nil
}

// AddShipmentItems appends items to a DRAFT shipment and recomputes allocations.
func AddShipmentItems(ctx context.Context, db *sql.DB, shipmentID int64, itemIDs []int64) (*model.Shipment, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	h, err := getShipmentHeader(ctx, tx, shipmentID)
	if err != nil {
		return nil, err
	}
	if err := fulfillment.Editable(h.status); err != nil {
		return nil, err
	}

	items, err := loadItems(ctx, tx, itemIDs)
	if err != nil {
		return nil, err
	}
	// Shares are recomputed over the whole shipment below.
	lines, err := fulfillment.Build(items, 0, h.method)
	if err != nil {
		return nil, err
	}
	if err := checkNotOnOpenShipment(ctx, tx, itemIDs); err != nil {
		return nil, err
	}

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM shipment_lines WHERE shipment_id = ?`, shipmentID,
	).Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("getting next line position: %w", err)
	}

	if err := insertLines(ctx, tx, shipmentID, lines, next); err != nil {
		return nil, err
	}
	if err := reallocate(ctx, tx, h); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing shipment items: %w", err)
	}
	return GetShipment(ctx, db, shipmentID)
}

// RemoveShipmentItem takes an item off a DRAFT shipment and recomputes
// allocations. The last line cannot be removed; delete the shipment instead.
func RemoveShipmentItem(ctx context.Context, db *sql.DB, shipmentID, itemID int64) (*model.Shipment, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	h, err := getShipmentHeader(ctx, tx, shipmentID)
	if err != nil {
		return nil, err
	}
	if err := fulfillment.Editable(h.status); err != nil {
		return nil, err
	}

	var onShipment bool
	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(item_id = ?), 0) > 0, COUNT(*) FROM shipment_lines WHERE shipment_id = ?`,
		itemID, shipmentID,
	).Scan(&onShipment, &count)
	if err != nil {
		return nil, fmt.Errorf("checking shipment line: %w", err)
	}
	if !onShipment {
		return nil, model.NotFoundf("item %d is not on shipment %d", itemID, shipmentID)
	}
	if count == 1 {
		return nil, model.Validationf("cannot remove the last item, delete the shipment instead")
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM shipment_lines WHERE shipment_id = ? AND item_id = ?`, shipmentID, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("removing shipment line: %w", err)
	}
	if err := reallocate(ctx, tx, h); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing shipment line removal: %w", err)
	}
	return GetShipment(ctx, db, shipmentID)
}

// ShipmentUpdate holds the editable DRAFT fields. Nil fields are left unchanged.
type ShipmentUpdate struct {
	Label        *string                   `json:"label"`
	ShippingCost *int64                    `json:"shipping_cost"`
	Distribution *model.DistributionMethod `json:"distribution"`
}

// UpdateShipment edits a DRAFT shipment's label, cost or distribution method
// and recomputes allocations.
func UpdateShipment(ctx context.Context, db *sql.DB, shipmentID int64, upd ShipmentUpdate) (*model.Shipment, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	h, err := getShipmentHeader(ctx, tx, shipmentID)
	if err != nil {
		return nil, err
	}
	if err := fulfillment.Editable(h.status); err != nil {
		return nil, err
	}

	if upd.ShippingCost != nil {
		if *upd.ShippingCost < 0 {
			return nil, model.Validationf("shipping cost must not be negative")
		}
		h.cost = *upd.ShippingCost
	}
	if upd.Distribution != nil {
		m := model.DistributionMethod(strings.ToUpper(strings.TrimSpace(string(*upd.Distribution))))
		if !m.IsValid() {
			return nil, model.Validationf("invalid distribution method %q", *upd.Distribution)
		}
		h.method = m
	}

	var label sql.NullString
	if upd.Label != nil {
		label.String = strings.TrimSpace(*upd.Label)
		label.Valid = true
		if label.String == "" {
			return nil, model.Validationf("label must not be empty")
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE shipments SET label = COALESCE(?, label), shipping_cost = ?, distribution = ? WHERE id = ?`,
		label, h.cost, h.method, shipmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating shipment: %w", err)
	}
	if err := reallocate(ctx, tx, h); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing shipment update: %w", err)
	}
	return GetShipment(ctx, db, shipmentID)
}

// DeleteShipment discards a DRAFT shipment and its lines.
func DeleteShipment(ctx context.Context, db *sql.DB, shipmentID int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	h, err := getShipmentHeader(ctx, tx, shipmentID)
	if err != nil {
		return err
	}
	if err := fulfillment.Editable(h.status); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM shipment_lines WHERE shipment_id = ?`, shipmentID); err != nil {
		return fmt.Errorf("deleting shipment lines: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM shipments WHERE id = ?`, shipmentID); err != nil {
		return fmt.Errorf("deleting shipment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing shipment deletion: %w", err)
	}
	return nil
}

// advance moves the shipment from h.status to the next state, failing with a
// conflict if another writer got there first.
func advance(ctx context.Context, q querier, h *shipmentHeader, to model.ShipmentStatus, stampColumn string) error {
	result, err := q.ExecContext(ctx,
		`UPDATE shipments SET status = ?, `+stampColumn+` = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`,
		to, h.id, h.status,
	)
	if err != nil {
		return fmt.Errorf("updating shipment status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return model.Conflictf("shipment %d changed concurrently", h.id)
	}
	return nil
}

// moveItem sets an item's status, failing with a conflict if it is no longer
// in the expected status. extra is added to the item's extra costs.
func moveItem(ctx context.Context, q querier, itemID int64, from, to model.ItemStatus, extra int64) error {
	result, err := q.ExecContext(ctx,
		`UPDATE items SET status = ?, extra_costs = extra_costs + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		to, extra, itemID, from,
	)
	if err != nil {
		return fmt.Errorf("updating item %d status: %w", itemID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return model.Conflictf("item %d is no longer %s", itemID, from)
	}
	return nil
}

// ShipShipment locks a DRAFT shipment's lines and moves every item to
// FBA_INBOUND. Each line's allocated cost is added to its item's extra costs.
// Nothing changes unless every item is still AVAILABLE.
func ShipShipment(ctx context.Context, db *sql.DB, shipmentID int64) (*model.Shipment, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	h, err := getShipmentHeader(ctx, tx, shipmentID)
	if err != nil {
		return nil, err
	}
	to, err := fulfillment.Transition(h.status, fulfillment.ActionShip)
	if err != nil {
		return nil, err
	}

	// Finalize allocations against the current purchase costs.
	if err := reallocate(ctx, tx, h); err != nil {
		return nil, err
	}
	lines, err := getLines(ctx, tx, shipmentID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, model.Validationf("shipment %d has no items", shipmentID)
	}
	for _, l := range lines {
		if l.ItemStatus != model.ItemStatusAvailable {
			return nil, model.Conflictf("item %d is %s, only AVAILABLE items can be shipped", l.ItemID, l.ItemStatus)
		}
	}

	if err := advance(ctx, tx, h, to, "shipped_at"); err != nil {
		return nil, err
	}
	for _, l := range lines {
		if err := moveItem(ctx, tx, l.ItemID, model.ItemStatusAvailable, model.ItemStatusFBAInbound, l.AllocatedCost); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing shipment: %w", err)
	}
	return GetShipment(ctx, db, shipmentID)
}

// ReceiveShipment records a disposition for every line of a SHIPPED shipment
// and moves each item to the matching status. Lines without a receipt are
// RECEIVED. The shipment becomes RECEIVED and can no longer change.
func ReceiveShipment(ctx context.Context, db *sql.DB, shipmentID int64, receipts []fulfillment.Receipt) (*model.Shipment, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	h, err := getShipmentHeader(ctx, tx, shipmentID)
	if err != nil {
		return nil, err
	}
	to, err := fulfillment.Transition(h.status, fulfillment.ActionReceive)
	if err != nil {
		return nil, err
	}

	lines, err := getLines(ctx, tx, shipmentID)
	if err != nil {
		return nil, err
	}
	outcomes, err := fulfillment.Reconcile(lines, receipts)
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		if l.ItemStatus != model.ItemStatusFBAInbound {
			return nil, model.Conflictf("item %d is %s, expected %s", l.ItemID, l.ItemStatus, model.ItemStatusFBAInbound)
		}
	}

	if err := advance(ctx, tx, h, to, "received_at"); err != nil {
		return nil, err
	}
	for _, out := range outcomes {
		_, err := tx.ExecContext(ctx,
			`UPDATE shipment_lines SET disposition = ?, note = ? WHERE shipment_id = ? AND item_id = ?`,
			out.Disposition, out.Note, shipmentID, out.ItemID,
		)
		if err != nil {
			return nil, fmt.Errorf("recording disposition for item %d: %w", out.ItemID, err)
		}
		if err := moveItem(ctx, tx, out.ItemID, model.ItemStatusFBAInbound, out.Status, 0); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing receipt: %w", err)
	}
	return GetShipment(ctx, db, shipmentID)
}
