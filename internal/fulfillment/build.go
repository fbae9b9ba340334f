package fulfillment

import "github.com/erazemk/zaloga/internal/model"

// Build drafts one line per item, in the order given, with its share of the
// shipping cost. Every item must be AVAILABLE. Building a draft does not change
// any item's status.
func Build(items []model.InventoryItem, total int64, method model.DistributionMethod) ([]model.ShipmentLine, error) {
	if len(items) == 0 {
		return nil, model.Validationf("a shipment needs at least one item")
	}
	if !method.IsValid() {
		return nil, model.Validationf("invalid distribution method %q", method)
	}

	seen := make(map[int64]bool, len(items))
	for _, item := range items {
		if seen[item.ID] {
			return nil, model.Validationf("item %d listed more than once", item.ID)
		}
		seen[item.ID] = true

		if item.Status != model.ItemStatusAvailable {
			return nil, model.Conflictf("item %d is %s, only AVAILABLE items can be shipped", item.ID, item.Status)
		}
	}

	weights := make([]int64, len(items))
	for i, item := range items {
		weights[i] = item.PurchaseCost
	}
	shares, err := Allocate(method, total, weights)
	if err != nil {
		return nil, err
	}

	lines := make([]model.ShipmentLine, len(items))
	for i, item := range items {
		lines[i] = model.ShipmentLine{
			ItemID:        item.ID,
			Position:      i,
			AllocatedCost: shares[i],
			SKU:           item.SKU,
			ProductTitle:  item.ProductTitle,
			PurchaseCost:  item.PurchaseCost,
			ItemStatus:    item.Status,
		}
	}
	return lines, nil
}
