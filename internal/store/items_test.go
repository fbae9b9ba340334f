package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/pricing"
)

var testPolicy = pricing.Policy{AdjustmentBP: -100, MinMargin: 200}

func ptr(v int64) *int64 { return &v }

func seedProduct(t *testing.T, database *sql.DB, title string) *model.Product {
	t.Helper()
	p, err := CreateProduct(context.Background(), database, title, "", "")
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	return p
}

func seedItem(t *testing.T, database *sql.DB, productID int64, sku string, cost int64) *model.InventoryItem {
	t.Helper()
	item, err := CreateItem(context.Background(), database, NewItem{
		ProductID:    productID,
		SKU:          sku,
		PurchaseCost: cost,
	}, testPolicy)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	return item
}

func seedSnapshot(t *testing.T, database *sql.DB, itemID int64, condition, generic *int64) {
	t.Helper()
	_, err := SetMarketSnapshot(context.Background(), database, model.MarketSnapshot{
		ItemID:         itemID,
		ConditionPrice: condition,
		GenericPrice:   generic,
		OfferCount:     3,
	})
	if err != nil {
		t.Fatalf("SetMarketSnapshot: %v", err)
	}
}

func TestCreateItemStartsAvailableAndUnpriced(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	p := seedProduct(t, database, "Lego 42115")

	item := seedItem(t, database, p.ID, "LEGO-1", 1200)
	if item.Status != model.ItemStatusAvailable {
		t.Errorf("expected AVAILABLE, got %s", item.Status)
	}
	if item.PricingMode != model.PricingAuto || item.PriceSource != model.SourceUnpriced {
		t.Errorf("expected AUTO/UNPRICED, got %s/%s", item.PricingMode, item.PriceSource)
	}
	if item.EffectivePrice != nil {
		t.Errorf("expected no effective price, got %d", *item.EffectivePrice)
	}
	if item.ProductTitle != "Lego 42115" {
		t.Errorf("expected joined title, got %q", item.ProductTitle)
	}

	manual, err := CreateItem(ctx, database, NewItem{
		ProductID:    p.ID,
		PurchaseCost: 500,
		Target:       pricing.Manual{Price: 1999},
	}, testPolicy)
	if err != nil {
		t.Fatalf("CreateItem manual: %v", err)
	}
	if manual.EffectivePrice == nil || *manual.EffectivePrice != 1999 || manual.PriceSource != model.SourceManual {
		t.Errorf("expected MANUAL 1999, got %+v", manual)
	}
}

func TestCreateItemRejects(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	p := seedProduct(t, database, "Widget")

	if _, err := CreateItem(ctx, database, NewItem{ProductID: 999, PurchaseCost: 1}, testPolicy); !model.IsNotFound(err) {
		t.Errorf("unknown product: expected not found, got %v", err)
	}
	if _, err := CreateItem(ctx, database, NewItem{ProductID: p.ID, PurchaseCost: -1}, testPolicy); !model.IsValidation(err) {
		t.Errorf("negative cost: expected validation error, got %v", err)
	}
}

func TestSetMarketSnapshotDoesNotReprice(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	p := seedProduct(t, database, "Widget")
	item := seedItem(t, database, p.ID, "W-1", 1200)

	seedSnapshot(t, database, item.ID, ptr(2500), ptr(3000))

	snap, err := GetMarketSnapshot(ctx, database, item.ID)
	if err != nil || snap == nil {
		t.Fatalf("GetMarketSnapshot: %v %v", snap, err)
	}
	if *snap.ConditionPrice != 2500 || *snap.GenericPrice != 3000 || snap.OfferCount != 3 {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.EffectivePrice != nil {
		t.Error("snapshot ingest must not write prices")
	}

	// Upsert replaces.
	seedSnapshot(t, database, item.ID, nil, ptr(2000))
	snap, _ = GetMarketSnapshot(ctx, database, item.ID)
	if snap.ConditionPrice != nil || *snap.GenericPrice != 2000 {
		t.Errorf("expected replaced snapshot, got %+v", snap)
	}

	_, err = SetMarketSnapshot(ctx, database, model.MarketSnapshot{ItemID: 999})
	if !model.IsNotFound(err) {
		t.Errorf("expected not found for unknown item, got %v", err)
	}
	_, err = SetMarketSnapshot(ctx, database, model.MarketSnapshot{ItemID: item.ID, GenericPrice: ptr(-5)})
	if !model.IsValidation(err) {
		t.Errorf("expected validation error for negative price, got %v", err)
	}
}

func TestSetItemPricing(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	p := seedProduct(t, database, "Widget")
	item := seedItem(t, database, p.ID, "W-1", 1200)
	seedSnapshot(t, database, item.ID, ptr(2500), nil)

	got, err := SetItemPricing(ctx, database, item.ID, pricing.Auto{}, testPolicy)
	if err != nil {
		t.Fatalf("SetItemPricing: %v", err)
	}
	if got.EffectivePrice == nil || *got.EffectivePrice != 2475 || got.PriceSource != model.SourceAutoMarket {
		t.Errorf("expected 2475 AUTO_MARKET, got %v %s", got.EffectivePrice, got.PriceSource)
	}
	if got.RecommendedPrice == nil || *got.RecommendedPrice != 2475 {
		t.Errorf("expected recommended 2475, got %v", got.RecommendedPrice)
	}

	got, err = SetItemPricing(ctx, database, item.ID, pricing.Manual{Price: 1999}, testPolicy)
	if err != nil {
		t.Fatalf("SetItemPricing manual: %v", err)
	}
	if got.PricingMode != model.PricingManual || *got.ManualPrice != 1999 || *got.EffectivePrice != 1999 {
		t.Errorf("expected MANUAL 1999, got %+v", got)
	}
	// Recommended price still follows the market.
	if got.RecommendedPrice == nil || *got.RecommendedPrice != 2475 {
		t.Errorf("expected recommended 2475, got %v", got.RecommendedPrice)
	}

	if _, err := SetItemPricing(ctx, database, 999, pricing.Auto{}, testPolicy); !model.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestExplainItemPrice(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	p := seedProduct(t, database, "Widget")
	item := seedItem(t, database, p.ID, "W-1", 1200)

	res, err := ExplainItemPrice(ctx, database, item.ID, testPolicy)
	if err != nil {
		t.Fatalf("ExplainItemPrice: %v", err)
	}
	want := "no market anchor; floor 14.00 (cost 12.00 + margin 2.00); unpriced"
	if res.Explanation != want {
		t.Errorf("expected %q, got %q", want, res.Explanation)
	}

	seedSnapshot(t, database, item.ID, ptr(2500), nil)
	res, _ = ExplainItemPrice(ctx, database, item.ID, testPolicy)
	want = "anchor 25.00 (condition-matched); adjustment -100bp -> 24.75; floor 14.00 (cost 12.00 + margin 2.00) not binding; price 24.75"
	if res.Explanation != want {
		t.Errorf("expected %q, got %q", want, res.Explanation)
	}

	res, err = ExplainItemPrice(ctx, database, 999, testPolicy)
	if err != nil || res != nil {
		t.Errorf("expected nil for unknown item, got %v %v", res, err)
	}
}
