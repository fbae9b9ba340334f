// Package pricing computes the price an inventory unit should be offered at.
//
// Resolve is the only place prices are derived. Single-item edits, bulk
// previews and bulk applies all go through it.
package pricing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/erazemk/zaloga/internal/model"
)

// bpScale is one whole in basis points.
const bpScale = 10000

// Policy limits. An adjustment may at most double the anchor and the margin
// is capped at 1,000,000.00.
const (
	MaxAdjustmentBP = bpScale
	MaxMinMargin    = 100_000_000
)

var maxCents = decimal.NewFromInt(math.MaxInt64)

// Policy holds the configured AUTO pricing parameters.
type Policy struct {
	// AdjustmentBP is applied to the anchor price, e.g. -100 undercuts by 1%.
	AdjustmentBP int64 `json:"adjustment_bp"`
	// MinMargin in cents is added to unit cost to get the margin floor.
	MinMargin int64 `json:"min_margin"`
}

// Validate checks the policy is usable.
func (p Policy) Validate() error {
	if p.AdjustmentBP <= -bpScale {
		return model.Validationf("adjustment must be greater than -%dbp", bpScale)
	}
	if p.AdjustmentBP > MaxAdjustmentBP {
		return model.Validationf("adjustment must be at most +%dbp", MaxAdjustmentBP)
	}
	if p.MinMargin < 0 {
		return model.Validationf("minimum margin must not be negative")
	}
	if p.MinMargin > MaxMinMargin {
		return model.Validationf("minimum margin must be at most %s", FormatCents(MaxMinMargin))
	}
	return nil
}

// AnchorSource tags which market price was used as the AUTO basis.
type AnchorSource string

// Anchor sources in order of preference.
const (
	AnchorConditionMatched AnchorSource = "condition-matched"
	AnchorGeneric          AnchorSource = "generic"
)

// Anchor is the market price AUTO pricing starts from.
type Anchor struct {
	Price  int64        `json:"price"`
	Source AnchorSource `json:"source"`
}

// Result is one resolved price together with how it was derived.
type Result struct {
	Mode         model.PricingMode `json:"mode"`
	Price        *int64            `json:"price"`
	Source       model.PriceSource `json:"source"`
	Anchor       *Anchor           `json:"anchor,omitempty"`
	Adjusted     *int64            `json:"adjusted,omitempty"`
	Floor        *int64            `json:"floor,omitempty"`
	FloorBinding bool              `json:"floor_binding"`
	Explanation  string            `json:"explanation"`
}

// SelectAnchor picks the condition-matched price if there is one, else the
// generic price. It returns nil when the snapshot has neither.
func SelectAnchor(snap *model.MarketSnapshot) *Anchor {
	if snap == nil {
		return nil
	}
	if snap.ConditionPrice != nil && *snap.ConditionPrice >= 0 {
		return &Anchor{Price: *snap.ConditionPrice, Source: AnchorConditionMatched}
	}
	if snap.GenericPrice != nil && *snap.GenericPrice >= 0 {
		return &Anchor{Price: *snap.GenericPrice, Source: AnchorGeneric}
	}
	return nil
}

// Adjust applies an adjustment in basis points, rounding half up to a whole
// cent. The result is clamped to [0, math.MaxInt64].
func Adjust(price, bp int64) int64 {
	adjusted := decimal.NewFromInt(price).
		Mul(decimal.NewFromInt(bpScale + bp)).
		Shift(-4).
		Round(0)
	switch {
	case adjusted.IsNegative():
		return 0
	case adjusted.GreaterThan(maxCents):
		return math.MaxInt64
	}
	return adjusted.IntPart()
}

// marginFloor is unitCost plus margin, saturating at math.MaxInt64.
func marginFloor(unitCost, margin int64) int64 {
	if margin > 0 && unitCost > math.MaxInt64-margin {
		return math.MaxInt64
	}
	return unitCost + margin
}

// Resolve computes the effective price for target. A nil Price in the result
// means the item is unpriced, which is a normal outcome when AUTO has no
// market data. Resolve panics on a nil target; callers get targets from
// ParseTarget or CurrentTarget.
func Resolve(target Target, unitCost int64, snap *model.MarketSnapshot, policy Policy) Result {
	switch t := target.(type) {
	case Auto:
		return resolveAuto(unitCost, snap, policy)
	case Manual:
		price := t.Price
		return Result{
			Mode:        model.PricingManual,
			Price:       &price,
			Source:      model.SourceManual,
			Explanation: "manual price " + FormatCents(price),
		}
	default:
		// Target is closed over Auto and Manual, so only a nil target gets here.
		panic(fmt.Sprintf("pricing: resolve called with target %#v", target))
	}
}

// Recommend returns what AUTO pricing would pick for the item right now,
// regardless of its current mode.
func Recommend(unitCost int64, snap *model.MarketSnapshot, policy Policy) Result {
	return resolveAuto(unitCost, snap, policy)
}

func resolveAuto(unitCost int64, snap *model.MarketSnapshot, policy Policy) Result {
	floor := marginFloor(unitCost, policy.MinMargin)
	floorText := fmt.Sprintf("floor %s (cost %s + margin %s)",
		FormatCents(floor), FormatCents(unitCost), FormatCents(policy.MinMargin))

	res := Result{
		Mode:  model.PricingAuto,
		Floor: &floor,
	}

	anchor := SelectAnchor(snap)
	if anchor == nil {
		res.Source = model.SourceUnpriced
		res.Explanation = "no market anchor; " + floorText + "; unpriced"
		return res
	}

	adjusted := Adjust(anchor.Price, policy.AdjustmentBP)
	res.Anchor = anchor
	res.Adjusted = &adjusted

	price := adjusted
	res.Source = model.SourceAutoMarket
	binding := "not binding"
	if floor > adjusted {
		price = floor
		res.Source = model.SourceAutoFloor
		res.FloorBinding = true
		binding = "binding"
	}
	res.Price = &price

	res.Explanation = fmt.Sprintf("anchor %s (%s); adjustment %+dbp -> %s; %s %s; price %s",
		FormatCents(anchor.Price), anchor.Source,
		policy.AdjustmentBP, FormatCents(adjusted),
		floorText, binding,
		FormatCents(price))
	return res
}

// FormatCents renders an amount in cents with two decimals, e.g. 1999 -> "19.99".
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// SamePrice reports whether two optional prices are equal. Two unpriced
// values are equal.
func SamePrice(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Diff returns after - before when both are priced.
func Diff(before, after *int64) *int64 {
	if before == nil || after == nil {
		return nil
	}
	d := *after - *before
	return &d
}
