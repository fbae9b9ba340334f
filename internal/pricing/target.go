package pricing

import (
	"strings"

	"github.com/erazemk/zaloga/internal/model"
)

// Target is the pricing mode an item should be put into. It is either Auto or
// Manual; a Manual target always carries its price and an Auto target never does.
type Target interface {
	Mode() model.PricingMode
	isTarget()
}

// Auto prices the item from market data.
type Auto struct{}

// Manual fixes the item's price in cents.
type Manual struct {
	Price int64
}

func (Auto) Mode() model.PricingMode   { return model.PricingAuto }
func (Manual) Mode() model.PricingMode { return model.PricingManual }

func (Auto) isTarget()   {}
func (Manual) isTarget() {}

// ManualPrice returns the target's price, or nil for Auto.
func ManualPrice(t Target) *int64 {
	if m, ok := t.(Manual); ok {
		p := m.Price
		return &p
	}
	return nil
}

// ParseTarget builds a Target from loosely typed request input.
func ParseTarget(mode string, price *int64) (Target, error) {
	switch model.PricingMode(strings.ToUpper(strings.TrimSpace(mode))) {
	case model.PricingAuto:
		if price != nil {
			return nil, model.Validationf("target_manual_price must be empty when target_mode is AUTO")
		}
		return Auto{}, nil
	case model.PricingManual:
		if price == nil {
			return nil, model.Validationf("target_manual_price is required when target_mode is MANUAL")
		}
		if *price < 0 {
			return nil, model.Validationf("target_manual_price must not be negative")
		}
		return Manual{Price: *price}, nil
	case "":
		return nil, model.Validationf("target_mode is required")
	default:
		return nil, model.Validationf("invalid target_mode %q", mode)
	}
}

// CurrentTarget returns the target an item is already priced with.
func CurrentTarget(item *model.InventoryItem) (Target, error) {
	switch item.PricingMode {
	case model.PricingAuto:
		return Auto{}, nil
	case model.PricingManual:
		if item.ManualPrice == nil || *item.ManualPrice < 0 {
			return nil, model.Validationf("item %d is MANUAL without a valid manual price", item.ID)
		}
		return Manual{Price: *item.ManualPrice}, nil
	default:
		return nil, model.Validationf("item %d has invalid pricing mode %q", item.ID, item.PricingMode)
	}
}
