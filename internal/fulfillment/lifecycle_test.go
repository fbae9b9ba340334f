package fulfillment

import (
	"testing"

	"github.com/erazemk/zaloga/internal/model"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from     model.ShipmentStatus
		action   Action
		want     model.ShipmentStatus
		conflict bool
	}{
		{model.ShipmentDraft, ActionShip, model.ShipmentShipped, false},
		{model.ShipmentShipped, ActionReceive, model.ShipmentReceived, false},
		{model.ShipmentShipped, ActionShip, model.ShipmentShipped, true},
		{model.ShipmentReceived, ActionShip, model.ShipmentReceived, true},
		{model.ShipmentDraft, ActionReceive, model.ShipmentDraft, true},
		{model.ShipmentReceived, ActionReceive, model.ShipmentReceived, true},
	}
	for _, tt := range tests {
		got, err := Transition(tt.from, tt.action)
		if tt.conflict {
			if !model.IsConflict(err) {
				t.Errorf("Transition(%s, %s): expected conflict, got %v", tt.from, tt.action, err)
			}
		} else if err != nil {
			t.Errorf("Transition(%s, %s): %v", tt.from, tt.action, err)
		}
		if got != tt.want {
			t.Errorf("Transition(%s, %s) = %s, want %s", tt.from, tt.action, got, tt.want)
		}
	}
}

func TestEditable(t *testing.T) {
	if err := Editable(model.ShipmentDraft); err != nil {
		t.Errorf("draft should be editable: %v", err)
	}
	for _, s := range []model.ShipmentStatus{model.ShipmentShipped, model.ShipmentReceived} {
		if err := Editable(s); !model.IsConflict(err) {
			t.Errorf("%s: expected conflict, got %v", s, err)
		}
	}
}

func TestBuild(t *testing.T) {
	items := []model.InventoryItem{
		{ID: 1, PurchaseCost: 1000, Status: model.ItemStatusAvailable},
		{ID: 2, PurchaseCost: 2000, Status: model.ItemStatusAvailable},
		{ID: 3, PurchaseCost: 3000, Status: model.ItemStatusAvailable},
	}
	lines, err := Build(items, 600, model.DistributePurchasePrice)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []int64{100, 200, 300}
	for i, l := range lines {
		if l.ItemID != items[i].ID || l.Position != i {
			t.Errorf("line %d: unexpected item %d at position %d", i, l.ItemID, l.Position)
		}
		if l.AllocatedCost != want[i] {
			t.Errorf("line %d: expected %d, got %d", i, want[i], l.AllocatedCost)
		}
		if l.Disposition != nil {
			t.Errorf("line %d: draft line should have no disposition", i)
		}
	}
}

func TestBuildRejects(t *testing.T) {
	avail := model.InventoryItem{ID: 1, Status: model.ItemStatusAvailable}
	sold := model.InventoryItem{ID: 2, Status: model.ItemStatusSold}

	if _, err := Build(nil, 100, model.DistributeEqual); !model.IsValidation(err) {
		t.Errorf("empty: expected validation error, got %v", err)
	}
	if _, err := Build([]model.InventoryItem{avail, avail}, 100, model.DistributeEqual); !model.IsValidation(err) {
		t.Errorf("duplicate: expected validation error, got %v", err)
	}
	if _, err := Build([]model.InventoryItem{avail}, 100, "SOMETHING"); !model.IsValidation(err) {
		t.Errorf("bad method: expected validation error, got %v", err)
	}
	if _, err := Build([]model.InventoryItem{avail, sold}, 100, model.DistributeEqual); !model.IsConflict(err) {
		t.Errorf("sold item: expected conflict, got %v", err)
	}
}

func TestReconcile(t *testing.T) {
	lines := []model.ShipmentLine{{ItemID: 10}, {ItemID: 11}, {ItemID: 12}}

	outcomes, err := Reconcile(lines, []Receipt{
		{ItemID: 11, Disposition: model.DispositionLost, Note: " never arrived "},
		{ItemID: 12, Disposition: "discrepancy"},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	want := []LineOutcome{
		{ItemID: 10, Disposition: model.DispositionReceived, Status: model.ItemStatusFBAWarehouse},
		{ItemID: 11, Disposition: model.DispositionLost, Note: "never arrived", Status: model.ItemStatusLost},
		{ItemID: 12, Disposition: model.DispositionDiscrepancy, Status: model.ItemStatusDiscrepancy},
	}
	for i := range want {
		if outcomes[i] != want[i] {
			t.Errorf("outcome %d: got %+v, want %+v", i, outcomes[i], want[i])
		}
	}
}

func TestReconcileRejects(t *testing.T) {
	lines := []model.ShipmentLine{{ItemID: 10}, {ItemID: 11}}

	tests := []struct {
		name     string
		receipts []Receipt
	}{
		{"foreign item", []Receipt{{ItemID: 99}}},
		{"duplicate", []Receipt{{ItemID: 10}, {ItemID: 10, Disposition: model.DispositionLost}}},
		{"bad disposition", []Receipt{{ItemID: 10, Disposition: "DAMAGED"}}},
	}
	for _, tt := range tests {
		if _, err := Reconcile(lines, tt.receipts); !model.IsValidation(err) {
			t.Errorf("%s: expected validation error, got %v", tt.name, err)
		}
	}
}
