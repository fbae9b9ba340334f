package fulfillment

import (
	"math"
	"testing"

	"github.com/erazemk/zaloga/internal/model"
)

func sum(shares []int64) int64 {
	var s int64
	for _, v := range shares {
		s += v
	}
	return s
}

func equalSlices(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAllocateEqualRemainderGoesFirst(t *testing.T) {
	shares, err := Allocate(model.DistributeEqual, 103, make([]int64, 5))
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	want := []int64{21, 21, 21, 20, 20}
	if !equalSlices(shares, want) {
		t.Errorf("expected %v, got %v", want, shares)
	}
}

func TestAllocateWeightedExact(t *testing.T) {
	shares, err := Allocate(model.DistributePurchasePrice, 600, []int64{1000, 2000, 3000})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	want := []int64{100, 200, 300}
	if !equalSlices(shares, want) {
		t.Errorf("expected %v, got %v", want, shares)
	}
}

func TestAllocateWeightedLargestRemainder(t *testing.T) {
	// Exact shares are 33.33, 33.33, 33.33 -> one leftover cent to the first.
	shares, _ := Allocate(model.DistributePurchasePrice, 100, []int64{500, 500, 500})
	if !equalSlices(shares, []int64{34, 33, 33}) {
		t.Errorf("expected [34 33 33], got %v", shares)
	}

	// Exact shares are 14.28, 28.57, 57.14 -> leftover goes to the .57 line.
	shares, _ = Allocate(model.DistributePurchasePrice, 100, []int64{100, 200, 400})
	if !equalSlices(shares, []int64{14, 29, 57}) {
		t.Errorf("expected [14 29 57], got %v", shares)
	}
}

func TestAllocateWeightedAllZeroFallsBackToEqual(t *testing.T) {
	shares, err := Allocate(model.DistributePurchasePrice, 10, []int64{0, 0, 0})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if !equalSlices(shares, []int64{4, 3, 3}) {
		t.Errorf("expected [4 3 3], got %v", shares)
	}
}

func TestAllocateSumAlwaysExact(t *testing.T) {
	weightSets := [][]int64{
		{1},
		{0, 1},
		{1, 1, 1, 1, 1, 1, 1},
		{999, 1, 37, 4500, 12},
		{1, 0, 0, 0},
		{3333, 3333, 3334},
	}
	totals := []int64{0, 1, 7, 99, 100, 101, 12345, 999999}

	for _, method := range []model.DistributionMethod{model.DistributeEqual, model.DistributePurchasePrice} {
		for _, weights := range weightSets {
			for _, total := range totals {
				shares, err := Allocate(method, total, weights)
				if err != nil {
					t.Fatalf("Allocate(%s, %d, %v): %v", method, total, weights, err)
				}
				if len(shares) != len(weights) {
					t.Fatalf("expected %d shares, got %d", len(weights), len(shares))
				}
				if got := sum(shares); got != total {
					t.Errorf("Allocate(%s, %d, %v) sums to %d", method, total, weights, got)
				}
				for _, s := range shares {
					if s < 0 {
						t.Errorf("Allocate(%s, %d, %v) produced negative share %v", method, total, weights, shares)
					}
				}
			}
		}
	}
}

func TestAllocateWeightedLargeAmounts(t *testing.T) {
	tests := []struct {
		total   int64
		weights []int64
		want    []int64
	}{
		// total*weight is far beyond int64.
		{100_000_000_000, []int64{20_000_000_000, 1}, []int64{99_999_999_995, 5}},
		{math.MaxInt64, []int64{math.MaxInt64, math.MaxInt64}, []int64{math.MaxInt64/2 + 1, math.MaxInt64 / 2}},
	}
	for _, tt := range tests {
		shares, err := Allocate(model.DistributePurchasePrice, tt.total, tt.weights)
		if err != nil {
			t.Fatalf("Allocate(%d, %v): %v", tt.total, tt.weights, err)
		}
		if !equalSlices(shares, tt.want) {
			t.Errorf("Allocate(%d, %v) = %v, want %v", tt.total, tt.weights, shares, tt.want)
		}
		if got := sum(shares); got != tt.total {
			t.Errorf("Allocate(%d, %v) sums to %d", tt.total, tt.weights, got)
		}
	}
}

func TestAllocateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		method  model.DistributionMethod
		total   int64
		weights []int64
	}{
		{"no items", model.DistributeEqual, 100, nil},
		{"negative total", model.DistributeEqual, -1, []int64{1}},
		{"negative weight", model.DistributePurchasePrice, 100, []int64{10, -5}},
		{"unknown method", "BY_WEIGHT", 100, []int64{1}},
	}
	for _, tt := range tests {
		_, err := Allocate(tt.method, tt.total, tt.weights)
		if !model.IsValidation(err) {
			t.Errorf("%s: expected validation error, got %v", tt.name, err)
		}
	}
}
