package model

import "time"

// Product is a master-catalog entry. It only supplies display labels.
type Product struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	ASIN      string    `json:"asin,omitempty"`
	Brand     string    `json:"brand,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemStatus is where a physical unit currently is in its life.
type ItemStatus string

// Item statuses.
const (
	ItemStatusAvailable    ItemStatus = "AVAILABLE"
	ItemStatusFBAInbound   ItemStatus = "FBA_INBOUND"
	ItemStatusFBAWarehouse ItemStatus = "FBA_WAREHOUSE"
	ItemStatusReserved     ItemStatus = "RESERVED"
	ItemStatusSold         ItemStatus = "SOLD"
	ItemStatusReturned     ItemStatus = "RETURNED"
	ItemStatusDiscrepancy  ItemStatus = "DISCREPANCY"
	ItemStatusLost         ItemStatus = "LOST"
)

// ItemStatuses lists every item status in display order.
var ItemStatuses = []ItemStatus{
	ItemStatusAvailable,
	ItemStatusFBAInbound,
	ItemStatusFBAWarehouse,
	ItemStatusReserved,
	ItemStatusSold,
	ItemStatusReturned,
	ItemStatusDiscrepancy,
	ItemStatusLost,
}

// IsValid reports whether s is a known item status.
func (s ItemStatus) IsValid() bool {
	for _, known := range ItemStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// PricingMode says whether an item's price follows the market or is fixed.
type PricingMode string

// Pricing modes.
const (
	PricingAuto   PricingMode = "AUTO"
	PricingManual PricingMode = "MANUAL"
)

// IsValid reports whether m is a known pricing mode.
func (m PricingMode) IsValid() bool {
	return m == PricingAuto || m == PricingManual
}

// PriceSource tags where an effective price came from.
type PriceSource string

// Price sources.
const (
	SourceAutoMarket PriceSource = "AUTO_MARKET"
	SourceAutoFloor  PriceSource = "AUTO_FLOOR"
	SourceManual     PriceSource = "MANUAL"
	SourceUnpriced   PriceSource = "UNPRICED"
)

// InventoryItem is one physical unit of stock. Amounts are in cents.
type InventoryItem struct {
	ID               int64       `json:"id"`
	ProductID        int64       `json:"product_id"`
	SKU              string      `json:"sku"`
	Condition        string      `json:"condition,omitempty"`
	PurchaseCost     int64       `json:"purchase_cost"`
	ExtraCosts       int64       `json:"extra_costs"`
	Status           ItemStatus  `json:"status"`
	PricingMode      PricingMode `json:"pricing_mode"`
	ManualPrice      *int64      `json:"manual_price,omitempty"`
	RecommendedPrice *int64      `json:"recommended_price,omitempty"`
	EffectivePrice   *int64      `json:"effective_price,omitempty"`
	PriceSource      PriceSource `json:"price_source"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`

	// Joined fields (not always populated).
	ProductTitle string `json:"product_title,omitempty"`
}

// UnitCost is the purchase cost plus every cost allocated to the unit since.
func (i *InventoryItem) UnitCost() int64 {
	return i.PurchaseCost + i.ExtraCosts
}

// MarketSnapshot is the externally supplied, point-in-time pricing input for an item.
// Offer count and sales rank are shown to operators but never used for pricing.
type MarketSnapshot struct {
	ItemID         int64     `json:"item_id"`
	ConditionPrice *int64    `json:"condition_price,omitempty"`
	GenericPrice   *int64    `json:"generic_price,omitempty"`
	OfferCount     int       `json:"offer_count"`
	SalesRank      *int64    `json:"sales_rank,omitempty"`
	CapturedAt     time.Time `json:"captured_at"`
}
