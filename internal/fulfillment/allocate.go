// Package fulfillment holds the pure rules for inbound shipments: how shared
// shipping cost is split across units and which lifecycle transitions are legal.
// Persistence lives in the store package.
package fulfillment

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/erazemk/zaloga/internal/model"
)

// Allocate splits total cents across len(weights) lines. The returned shares
// always sum to total exactly.
//
// EQUAL ignores weights. PURCHASE_PRICE_WEIGHTED splits proportionally to the
// weights using the largest-remainder method, and falls back to EQUAL when
// every weight is zero.
func Allocate(method model.DistributionMethod, total int64, weights []int64) ([]int64, error) {
	if len(weights) == 0 {
		return nil, model.Validationf("cannot allocate shipping cost over zero items")
	}
	if total < 0 {
		return nil, model.Validationf("shipping cost must not be negative")
	}

	switch method {
	case model.DistributeEqual:
		return allocateEqual(total, len(weights)), nil
	case model.DistributePurchasePrice:
		sum := decimal.Zero
		for _, w := range weights {
			if w < 0 {
				return nil, model.Validationf("purchase price must not be negative")
			}
			sum = sum.Add(decimal.NewFromInt(w))
		}
		if sum.IsZero() {
			return allocateEqual(total, len(weights)), nil
		}
		return allocateWeighted(total, weights, sum), nil
	default:
		return nil, model.Validationf("invalid distribution method %q", method)
	}
}

// allocateEqual gives every line total/n and hands the remainder out one cent
// at a time to the first lines in input order.
func allocateEqual(total int64, n int) []int64 {
	shares := make([]int64, n)
	base := total / int64(n)
	rem := total % int64(n)
	for i := range shares {
		shares[i] = base
		if int64(i) < rem {
			shares[i]++
		}
	}
	return shares
}

// allocateWeighted works in exact decimals so total*weight cannot overflow.
// Every share is at most total, so it fits back into int64.
func allocateWeighted(total int64, weights []int64, sum decimal.Decimal) []int64 {
	shares := make([]int64, len(weights))
	remainders := make([]decimal.Decimal, len(weights))
	t := decimal.NewFromInt(total)

	var allocated int64
	for i, w := range weights {
		q, r := t.Mul(decimal.NewFromInt(w)).QuoRem(sum, 0)
		shares[i] = q.IntPart()
		remainders[i] = r
		allocated += shares[i]
	}

	// Largest fractional remainder first; ties go to the earlier line.
	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]].GreaterThan(remainders[order[b]])
	})

	for k := int64(0); k < total-allocated; k++ {
		shares[order[k]]++
	}
	return shares
}
