package fulfillment

import (
	"strings"

	"github.com/erazemk/zaloga/internal/model"
)

// Action is a workflow step that moves a shipment forward.
type Action string

// Shipment actions.
const (
	ActionShip    Action = "ship"
	ActionReceive Action = "receive"
)

// transitions is the complete set of legal moves. DRAFT -> SHIPPED -> RECEIVED.
var transitions = map[model.ShipmentStatus]map[Action]model.ShipmentStatus{
	model.ShipmentDraft:   {ActionShip: model.ShipmentShipped},
	model.ShipmentShipped: {ActionReceive: model.ShipmentReceived},
}

// Transition returns the status a shipment in from moves to under action, or
// a state-conflict error when the move is not allowed.
func Transition(from model.ShipmentStatus, action Action) (model.ShipmentStatus, error) {
	if to, ok := transitions[from][action]; ok {
		return to, nil
	}
	switch action {
	case ActionShip:
		return from, model.Conflictf("cannot ship a %s shipment, only DRAFT shipments can be shipped", from)
	case ActionReceive:
		return from, model.Conflictf("cannot receive a %s shipment, only SHIPPED shipments can be received", from)
	default:
		return from, model.Validationf("unknown shipment action %q", action)
	}
}

// Editable reports whether lines and cost fields may still change.
func Editable(status model.ShipmentStatus) error {
	if status != model.ShipmentDraft {
		return model.Conflictf("shipment is %s, only DRAFT shipments can be edited", status)
	}
	return nil
}

// Receipt is the operator's verdict for one line when receiving.
type Receipt struct {
	ItemID      int64             `json:"item_id"`
	Disposition model.Disposition `json:"disposition"`
	Note        string            `json:"note,omitempty"`
}

// LineOutcome is a reconciled line and the status its item moves to.
type LineOutcome struct {
	ItemID      int64
	Disposition model.Disposition
	Note        string
	Status      model.ItemStatus
}

// TargetStatus maps a line disposition to the resulting item status.
func TargetStatus(d model.Disposition) model.ItemStatus {
	switch d {
	case model.DispositionDiscrepancy:
		return model.ItemStatusDiscrepancy
	case model.DispositionLost:
		return model.ItemStatusLost
	default:
		return model.ItemStatusFBAWarehouse
	}
}

// Reconcile matches receipts against the shipment's lines. Lines without a
// receipt default to RECEIVED. Outcomes follow line order.
func Reconcile(lines []model.ShipmentLine, receipts []Receipt) ([]LineOutcome, error) {
	onShipment := make(map[int64]bool, len(lines))
	for _, l := range lines {
		onShipment[l.ItemID] = true
	}

	byItem := make(map[int64]Receipt, len(receipts))
	for _, r := range receipts {
		if !onShipment[r.ItemID] {
			return nil, model.Validationf("item %d is not on this shipment", r.ItemID)
		}
		if _, dup := byItem[r.ItemID]; dup {
			return nil, model.Validationf("item %d has more than one receipt", r.ItemID)
		}
		r.Disposition = model.Disposition(strings.ToUpper(strings.TrimSpace(string(r.Disposition))))
		if r.Disposition == "" {
			r.Disposition = model.DispositionReceived
		}
		if !r.Disposition.IsValid() {
			return nil, model.Validationf("invalid disposition %q for item %d", r.Disposition, r.ItemID)
		}
		r.Note = strings.TrimSpace(r.Note)
		byItem[r.ItemID] = r
	}

	outcomes := make([]LineOutcome, len(lines))
	for i, l := range lines {
		out := LineOutcome{ItemID: l.ItemID, Disposition: model.DispositionReceived}
		if r, ok := byItem[l.ItemID]; ok {
			out.Disposition = r.Disposition
			out.Note = r.Note
		}
		out.Status = TargetStatus(out.Disposition)
		outcomes[i] = out
	}
	return outcomes, nil
}
