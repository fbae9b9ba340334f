package pricing

import (
	"math"
	"testing"

	"github.com/erazemk/zaloga/internal/model"
)

func cents(v int64) *int64 { return &v }

var testPolicy = Policy{AdjustmentBP: -100, MinMargin: 200}

func TestResolveManual(t *testing.T) {
	res := Resolve(Manual{Price: 1999}, 1200, nil, testPolicy)
	if res.Price == nil || *res.Price != 1999 {
		t.Fatalf("expected price 1999, got %v", res.Price)
	}
	if res.Source != model.SourceManual {
		t.Errorf("expected source MANUAL, got %s", res.Source)
	}
	if res.Explanation != "manual price 19.99" {
		t.Errorf("unexpected explanation %q", res.Explanation)
	}
}

func TestResolveManualIgnoresMarket(t *testing.T) {
	snap := &model.MarketSnapshot{ConditionPrice: cents(5000)}
	res := Resolve(Manual{Price: 0}, 1200, snap, testPolicy)
	if res.Price == nil || *res.Price != 0 {
		t.Fatalf("expected price 0, got %v", res.Price)
	}
}

func TestResolveAutoMarketWins(t *testing.T) {
	snap := &model.MarketSnapshot{ConditionPrice: cents(2500), GenericPrice: cents(3000)}
	res := Resolve(Auto{}, 1200, snap, testPolicy)

	if res.Price == nil || *res.Price != 2475 {
		t.Fatalf("expected price 2475, got %v", res.Price)
	}
	if res.Source != model.SourceAutoMarket {
		t.Errorf("expected AUTO_MARKET, got %s", res.Source)
	}
	if res.FloorBinding {
		t.Error("expected floor not to be binding")
	}
	want := "anchor 25.00 (condition-matched); adjustment -100bp -> 24.75; floor 14.00 (cost 12.00 + margin 2.00) not binding; price 24.75"
	if res.Explanation != want {
		t.Errorf("explanation:\n got %q\nwant %q", res.Explanation, want)
	}
}

func TestResolveAutoFallsBackToGeneric(t *testing.T) {
	snap := &model.MarketSnapshot{GenericPrice: cents(3000)}
	res := Resolve(Auto{}, 1200, snap, testPolicy)

	if res.Anchor == nil || res.Anchor.Source != AnchorGeneric {
		t.Fatalf("expected generic anchor, got %+v", res.Anchor)
	}
	if *res.Price != 2970 {
		t.Errorf("expected 2970, got %d", *res.Price)
	}
}

func TestResolveAutoFloorBinding(t *testing.T) {
	snap := &model.MarketSnapshot{ConditionPrice: cents(1000)}
	res := Resolve(Auto{}, 1200, snap, testPolicy)

	if res.Price == nil || *res.Price != 1200+testPolicy.MinMargin {
		t.Fatalf("expected floor price 1400, got %v", res.Price)
	}
	if res.Source != model.SourceAutoFloor {
		t.Errorf("expected AUTO_FLOOR, got %s", res.Source)
	}
	if !res.FloorBinding {
		t.Error("expected floor to be binding")
	}
	want := "anchor 10.00 (condition-matched); adjustment -100bp -> 9.90; floor 14.00 (cost 12.00 + margin 2.00) binding; price 14.00"
	if res.Explanation != want {
		t.Errorf("explanation:\n got %q\nwant %q", res.Explanation, want)
	}
}

func TestResolveAutoTieIsMarket(t *testing.T) {
	// 1414 * 0.99 = 1399.86 -> 1400, equal to the floor.
	snap := &model.MarketSnapshot{ConditionPrice: cents(1414)}
	res := Resolve(Auto{}, 1200, snap, testPolicy)
	if *res.Price != 1400 || res.Source != model.SourceAutoMarket {
		t.Errorf("expected 1400 AUTO_MARKET, got %d %s", *res.Price, res.Source)
	}
}

func TestResolveAutoUnpriced(t *testing.T) {
	for _, snap := range []*model.MarketSnapshot{nil, {OfferCount: 4}} {
		res := Resolve(Auto{}, 1200, snap, testPolicy)
		if res.Price != nil {
			t.Errorf("expected unpriced, got %d", *res.Price)
		}
		if res.Source != model.SourceUnpriced {
			t.Errorf("expected UNPRICED, got %s", res.Source)
		}
		want := "no market anchor; floor 14.00 (cost 12.00 + margin 2.00); unpriced"
		if res.Explanation != want {
			t.Errorf("explanation:\n got %q\nwant %q", res.Explanation, want)
		}
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	snap := &model.MarketSnapshot{ConditionPrice: cents(4321), OfferCount: 7, SalesRank: cents(1500)}
	a := Resolve(Auto{}, 999, snap, testPolicy)
	b := Resolve(Auto{}, 999, snap, testPolicy)
	if a.Explanation != b.Explanation || *a.Price != *b.Price {
		t.Errorf("same inputs gave %q and %q", a.Explanation, b.Explanation)
	}

	// Competitive signals do not move the price.
	other := *snap
	other.OfferCount = 99
	other.SalesRank = cents(1)
	c := Resolve(Auto{}, 999, &other, testPolicy)
	if *c.Price != *a.Price {
		t.Errorf("offer count changed price: %d vs %d", *c.Price, *a.Price)
	}
}

func TestAdjust(t *testing.T) {
	tests := []struct {
		price, bp, want int64
	}{
		{2500, -100, 2475},
		{2500, 0, 2500},
		{2500, 250, 2563}, // 2562.5 rounds half up
		{1, -100, 1},      // 0.99 rounds to 1
		{0, -100, 0},
		{1000, -9999, 0}, // 0.1 rounds to 0
	}
	for _, tt := range tests {
		if got := Adjust(tt.price, tt.bp); got != tt.want {
			t.Errorf("Adjust(%d, %d) = %d, want %d", tt.price, tt.bp, got, tt.want)
		}
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		mode    string
		price   *int64
		want    Target
		wantErr bool
	}{
		{"AUTO", nil, Auto{}, false},
		{"auto", nil, Auto{}, false},
		{"MANUAL", cents(1500), Manual{Price: 1500}, false},
		{"MANUAL", cents(0), Manual{Price: 0}, false},
		{"MANUAL", nil, nil, true},
		{"MANUAL", cents(-1), nil, true},
		{"AUTO", cents(100), nil, true},
		{"", nil, nil, true},
		{"FLOOR", nil, nil, true},
	}
	for _, tt := range tests {
		got, err := ParseTarget(tt.mode, tt.price)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTarget(%q) error = %v, wantErr %v", tt.mode, err, tt.wantErr)
			continue
		}
		if err != nil {
			if !model.IsValidation(err) {
				t.Errorf("ParseTarget(%q) error %v is not a validation error", tt.mode, err)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTarget(%q) = %#v, want %#v", tt.mode, got, tt.want)
		}
	}
}

func TestFormatCents(t *testing.T) {
	tests := map[int64]string{
		0:      "0.00",
		5:      "0.05",
		1999:   "19.99",
		100000: "1000.00",
		-150:   "-1.50",
	}
	for in, want := range tests {
		if got := FormatCents(in); got != want {
			t.Errorf("FormatCents(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestSamePriceAndDiff(t *testing.T) {
	if !SamePrice(nil, nil) {
		t.Error("two unpriced values should be equal")
	}
	if SamePrice(nil, cents(1)) || SamePrice(cents(1), nil) {
		t.Error("unpriced and priced should differ")
	}
	if !SamePrice(cents(5), cents(5)) {
		t.Error("equal prices should be equal")
	}
	if d := Diff(cents(1000), cents(900)); d == nil || *d != -100 {
		t.Errorf("expected diff -100, got %v", d)
	}
	if Diff(nil, cents(900)) != nil {
		t.Error("expected nil diff when one side is unpriced")
	}
}

func TestResolveNilTargetPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for nil target")
		}
	}()
	Resolve(nil, 1200, nil, testPolicy)
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		policy Policy
		ok     bool
	}{
		{Policy{AdjustmentBP: -100, MinMargin: 200}, true},
		{Policy{AdjustmentBP: MaxAdjustmentBP, MinMargin: MaxMinMargin}, true},
		{Policy{AdjustmentBP: -9999}, true},
		{Policy{AdjustmentBP: -10000}, false},
		{Policy{AdjustmentBP: MaxAdjustmentBP + 1}, false},
		{Policy{MinMargin: -1}, false},
		{Policy{MinMargin: MaxMinMargin + 1}, false},
		{Policy{MinMargin: math.MaxInt64}, false},
	}
	for _, tt := range tests {
		err := tt.policy.Validate()
		if tt.ok && err != nil {
			t.Errorf("%+v: unexpected error %v", tt.policy, err)
		}
		if !tt.ok && !model.IsValidation(err) {
			t.Errorf("%+v: expected validation error, got %v", tt.policy, err)
		}
	}
}

func TestResolveAutoSaturatesOnHugeAmounts(t *testing.T) {
	snap := &model.MarketSnapshot{ConditionPrice: cents(math.MaxInt64)}
	policy := Policy{AdjustmentBP: MaxAdjustmentBP, MinMargin: MaxMinMargin}

	if got := Adjust(math.MaxInt64, MaxAdjustmentBP); got != math.MaxInt64 {
		t.Errorf("Adjust should clamp to MaxInt64, got %d", got)
	}

	res := Resolve(Auto{}, math.MaxInt64-1, snap, policy)
	if *res.Floor != math.MaxInt64 {
		t.Errorf("floor should saturate, got %d", *res.Floor)
	}
	if res.Price == nil || *res.Price != math.MaxInt64 || *res.Price < 0 {
		t.Errorf("expected saturated price, got %v", res.Price)
	}
}
