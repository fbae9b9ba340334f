package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/pricing"
)

// itemSelect reads an item with its product title and, when present, its
// market snapshot. Columns must stay in step with scanItem.
const itemSelect = `SELECT i.id, i.product_id, i.sku, i.item_condition, i.purchase_cost, i.extra_costs,
        i.status, i.pricing_mode, i.manual_price, i.recommended_price, i.effective_price,
        i.price_source, i.created_at, i.updated_at, p.title,
        s.item_id, s.condition_price, s.generic_price, s.offer_count, s.sales_rank, s.captured_at
 FROM items i
 JOIN products p ON p.id = i.product_id
 LEFT JOIN market_snapshots s ON s.item_id = i.id`

// pricedItem is an item together with the snapshot its price resolves against.
type pricedItem struct {
	item model.InventoryItem
	snap *model.MarketSnapshot
}

func scanItem(row scanner) (*pricedItem, error) {
	var (
		pi                             pricedItem
		manual, recommended, effective sql.NullInt64
		snapItem, condPrice, genPrice  sql.NullInt64
		offerCount, salesRank          sql.NullInt64
		capturedAt                     sql.NullTime
	)
	it := &pi.item
	err := row.Scan(
		&it.ID, &it.ProductID, &it.SKU, &it.Condition, &it.PurchaseCost, &it.ExtraCosts,
		&it.Status, &it.PricingMode, &manual, &recommended, &effective,
		&it.PriceSource, &it.CreatedAt, &it.UpdatedAt, &it.ProductTitle,
		&snapItem, &condPrice, &genPrice, &offerCount, &salesRank, &capturedAt,
	)
	if err != nil {
		return nil, err
	}
	it.ManualPrice = intPtr(manual)
	it.RecommendedPrice = intPtr(recommended)
	it.EffectivePrice = intPtr(effective)

	if snapItem.Valid {
		pi.snap = &model.MarketSnapshot{
			ItemID:         snapItem.Int64,
			ConditionPrice: intPtr(condPrice),
			GenericPrice:   intPtr(genPrice),
			OfferCount:     int(offerCount.Int64),
			SalesRank:      intPtr(salesRank),
			CapturedAt:     capturedAt.Time,
		}
	}
	return &pi, nil
}

func getPricedItem(ctx context.Context, q querier, id int64) (*pricedItem, error) {
	pi, err := scanItem(q.QueryRowContext(ctx, itemSelect+` WHERE i.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return pi, nil
}

// NewItem holds the fields for creating an inventory item. A nil Target
// means AUTO pricing.
type NewItem struct {
	ProductID    int64
	SKU          string
	Condition    string
	PurchaseCost int64
	ExtraCosts   int64
	Target       pricing.Target
}

// CreateItem adds a unit of stock in AVAILABLE status and prices it.
func CreateItem(ctx context.Context, db *sql.DB, in NewItem, policy pricing.Policy) (*model.InventoryItem, error) {
	if in.PurchaseCost < 0 || in.ExtraCosts < 0 {
		return nil, model.Validationf("costs must not be negative")
	}
	target := in.Target
	if target == nil {
		target = pricing.Auto{}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE id = ?)`, in.ProductID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking product: %w", err)
	}
	if !exists {
		return nil, model.NotFoundf("product %d not found", in.ProductID)
	}

	// A new item has no snapshot yet, so AUTO resolves to unpriced.
	unitCost := in.PurchaseCost + in.ExtraCosts
	res := pricing.Resolve(target, unitCost, nil, policy)
	rec := pricing.Recommend(unitCost, nil, policy)

	result, err := tx.ExecContext(ctx,
		`INSERT INTO items (product_id, sku, item_condition, purchase_cost, extra_costs,
		                    pricing_mode, manual_price, recommended_price, effective_price, price_source)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ProductID, strings.TrimSpace(in.SKU), strings.TrimSpace(in.Condition), in.PurchaseCost, in.ExtraCosts,
		target.Mode(), nullInt(pricing.ManualPrice(target)), nullInt(rec.Price), nullInt(res.Price), res.Source,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.InventoryItem, error) {
	pi, err := getPricedItem(ctx, db, id)
	if err != nil || pi == nil {
		return nil, err
	}
	return &pi.item, nil
}

// ListItems returns the items matching filter, ordered by ID.
func ListItems(ctx context.Context, db *sql.DB, filter ItemFilter) ([]model.InventoryItem, error) {
	matched, err := matchItems(ctx, db, filter)
	if err != nil {
		return nil, err
	}
	items := make([]model.InventoryItem, len(matched))
	for i, pi := range matched {
		items[i] = pi.item
	}
	return items, nil
}

// matchItems runs the filter against q. The filter must be normalized.
func matchItems(ctx context.Context, q querier, filter ItemFilter) ([]pricedItem, error) {
	where, args := filter.where()
	query := itemSelect
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY i.id"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("matching items: %w", err)
	}
	defer rows.Close()

	var matched []pricedItem
	for rows.Next() {
		pi, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		matched = append(matched, *pi)
	}
	return matched, rows.Err()
}

// SetMarketSnapshot records the latest market data for an item, replacing
// any previous snapshot. Stored prices are left alone until the item is
// next re-priced.
func SetMarketSnapshot(ctx context.Context, db *sql.DB, snap model.MarketSnapshot) (*model.MarketSnapshot, error) {
	if negative(snap.ConditionPrice) || negative(snap.GenericPrice) {
		return nil, model.Validationf("market prices must not be negative")
	}
	if snap.OfferCount < 0 {
		return nil, model.Validationf("offer count must not be negative")
	}
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now().UTC()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM items WHERE id = ?)`, snap.ItemID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking item: %w", err)
	}
	if !exists {
		return nil, model.NotFoundf("item %d not found", snap.ItemID)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO market_snapshots (item_id, condition_price, generic_price, offer_count, sales_rank, captured_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (item_id) DO UPDATE SET
		     condition_price = excluded.condition_price,
		     generic_price   = excluded.generic_price,
		     offer_count     = excluded.offer_count,
		     sales_rank      = excluded.sales_rank,
		     captured_at     = excluded.captured_at`,
		snap.ItemID, nullInt(snap.ConditionPrice), nullInt(snap.GenericPrice),
		snap.OfferCount, nullInt(snap.SalesRank), snap.CapturedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("storing market snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing market snapshot: %w", err)
	}

	return GetMarketSnapshot(ctx, db, snap.ItemID)
}

// GetMarketSnapshot returns an item's snapshot, or nil if none was recorded.
func GetMarketSnapshot(ctx context.Context, db *sql.DB, itemID int64) (*model.MarketSnapshot, error) {
	s := &model.MarketSnapshot{}
	var condPrice, genPrice, salesRank sql.NullInt64
	err := db.QueryRowContext(ctx,
		`SELECT item_id, condition_price, generic_price, offer_count, sales_rank, captured_at
		 FROM market_snapshots WHERE item_id = ?`, itemID,
	).Scan(&s.ItemID, &condPrice, &genPrice, &s.OfferCount, &salesRank, &s.CapturedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting market snapshot: %w", err)
	}
	s.ConditionPrice = intPtr(condPrice)
	s.GenericPrice = intPtr(genPrice)
	s.SalesRank = intPtr(salesRank)
	return s, nil
}

// SetItemPricing switches an item to target and stores the resolved price.
func SetItemPricing(ctx context.Context, db *sql.DB, itemID int64, target pricing.Target, policy pricing.Policy) (*model.InventoryItem, error) {
	if target == nil {
		return nil, model.Validationf("pricing_mode is required")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	pi, err := getPricedItem(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	if pi == nil {
		return nil, model.NotFoundf("item %d not found", itemID)
	}

	if err := writePricing(ctx, tx, pi, target, policy); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item pricing: %w", err)
	}

	return GetItem(ctx, db, itemID)
}

// ExplainItemPrice resolves the item's current target against its latest
// snapshot without writing anything. Returns nil if the item does not exist.
func ExplainItemPrice(ctx context.Context, db *sql.DB, itemID int64, policy pricing.Policy) (*pricing.Result, error) {
	pi, err := getPricedItem(ctx, db, itemID)
	if err != nil || pi == nil {
		return nil, err
	}
	target, err := pricing.CurrentTarget(&pi.item)
	if err != nil {
		return nil, err
	}
	res := pricing.Resolve(target, pi.item.UnitCost(), pi.snap, policy)
	return &res, nil
}

// writePricing resolves target for pi and persists mode, manual price,
// recommended price, effective price and source.
func writePricing(ctx context.Context, q querier, pi *pricedItem, target pricing.Target, policy pricing.Policy) error {
	unitCost := pi.item.UnitCost()
	res := pricing.Resolve(target, unitCost, pi.snap, policy)
	rec := pricing.Recommend(unitCost, pi.snap, policy)

	_, err := q.ExecContext(ctx,
		`UPDATE items SET pricing_mode = ?, manual_price = ?, recommended_price = ?,
		                  effective_price = ?, price_source = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		target.Mode(), nullInt(pricing.ManualPrice(target)), nullInt(rec.Price),
		nullInt(res.Price), res.Source, pi.item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating pricing for item %d: %w", pi.item.ID, err)
	}
	return nil
}

func negative(p *int64) bool {
	return p != nil && *p < 0
}
