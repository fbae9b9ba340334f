package model

import "time"

// ShipmentStatus is the lifecycle state of an inbound shipment.
type ShipmentStatus string

// Shipment statuses. RECEIVED is terminal.
const (
	ShipmentDraft    ShipmentStatus = "DRAFT"
	ShipmentShipped  ShipmentStatus = "SHIPPED"
	ShipmentReceived ShipmentStatus = "RECEIVED"
)

// IsValid reports whether s is a known shipment status.
func (s ShipmentStatus) IsValid() bool {
	switch s {
	case ShipmentDraft, ShipmentShipped, ShipmentReceived:
		return true
	}
	return false
}

// DistributionMethod decides how shared shipping cost is split across lines.
type DistributionMethod string

// Distribution methods.
const (
	DistributeEqual         DistributionMethod = "EQUAL"
	DistributePurchasePrice DistributionMethod = "PURCHASE_PRICE_WEIGHTED"
)

// IsValid reports whether m is a known distribution method.
func (m DistributionMethod) IsValid() bool {
	return m == DistributeEqual || m == DistributePurchasePrice
}

// Disposition is the outcome recorded for a line when a shipment is received.
type Disposition string

// Line dispositions.
const (
	DispositionReceived    Disposition = "RECEIVED"
	DispositionDiscrepancy Disposition = "DISCREPANCY"
	DispositionLost        Disposition = "LOST"
)

// IsValid reports whether d is a known disposition.
func (d Disposition) IsValid() bool {
	switch d {
	case DispositionReceived, DispositionDiscrepancy, DispositionLost:
		return true
	}
	return false
}

// Shipment is one consignment of units sent to the fulfillment warehouse.
type Shipment struct {
	ID           int64              `json:"id"`
	Label        string             `json:"label"`
	Status       ShipmentStatus     `json:"status"`
	ShippingCost int64              `json:"shipping_cost"`
	Distribution DistributionMethod `json:"distribution"`
	CreatedAt    time.Time          `json:"created_at"`
	ShippedAt    *time.Time         `json:"shipped_at,omitempty"`
	ReceivedAt   *time.Time         `json:"received_at,omitempty"`
	Lines        []ShipmentLine     `json:"lines"`
}

// ShipmentLine is one item's participation in a shipment.
type ShipmentLine struct {
	ShipmentID    int64        `json:"shipment_id"`
	ItemID        int64        `json:"item_id"`
	Position      int          `json:"position"`
	AllocatedCost int64        `json:"allocated_cost"`
	Disposition   *Disposition `json:"disposition,omitempty"`
	Note          string       `json:"note,omitempty"`

	// Joined fields (not always populated).
	SKU          string     `json:"sku,omitempty"`
	ProductTitle string     `json:"product_title,omitempty"`
	PurchaseCost int64      `json:"purchase_cost"`
	ItemStatus   ItemStatus `json:"item_status,omitempty"`
}

// AllocatedTotal sums the allocated cost over all lines.
func (s *Shipment) AllocatedTotal() int64 {
	var total int64
	for _, l := range s.Lines {
		total += l.AllocatedCost
	}
	return total
}
