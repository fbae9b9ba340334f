package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/pricing"
)

// ItemFilter selects inventory items. Dimensions are ANDed together and an
// empty dimension matches everything.
type ItemFilter struct {
	Statuses []model.ItemStatus  `json:"statuses,omitempty"`
	Modes    []model.PricingMode `json:"modes,omitempty"`
	// Search is a case-insensitive substring of product title, SKU or item ID.
	Search string `json:"search,omitempty"`
}

// Normalize upper-cases and validates the filter.
func (f ItemFilter) Normalize() (ItemFilter, error) {
	out := ItemFilter{Search: strings.TrimSpace(f.Search)}
	for _, s := range f.Statuses {
		s = model.ItemStatus(strings.ToUpper(strings.TrimSpace(string(s))))
		if !s.IsValid() {
			return ItemFilter{}, model.Validationf("invalid status %q in filter", s)
		}
		out.Statuses = append(out.Statuses, s)
	}
	for _, m := range f.Modes {
		m = model.PricingMode(strings.ToUpper(strings.TrimSpace(string(m))))
		if !m.IsValid() {
			return ItemFilter{}, model.Validationf("invalid pricing mode %q in filter", m)
		}
		out.Modes = append(out.Modes, m)
	}
	return out, nil
}

func (f ItemFilter) where() (string, []any) {
	var clauses []string
	var args []any

	if len(f.Statuses) > 0 {
		clauses = append(clauses, "i.status IN ("+placeholders(len(f.Statuses))+")")
		for _, s := range f.Statuses {
			args = append(args, string(s))
		}
	}
	if len(f.Modes) > 0 {
		clauses = append(clauses, "i.pricing_mode IN ("+placeholders(len(f.Modes))+")")
		for _, m := range f.Modes {
			args = append(args, string(m))
		}
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(f.Search) + "%"
		clauses = append(clauses,
			`(p.title LIKE ? ESCAPE '\' OR i.sku LIKE ? ESCAPE '\' OR CAST(i.id AS TEXT) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	return strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// RepricingRow is one matched item in a preview.
type RepricingRow struct {
	ItemID       int64             `json:"item_id"`
	SKU          string            `json:"sku"`
	Title        string            `json:"title"`
	BeforeMode   model.PricingMode `json:"before_mode"`
	AfterMode    model.PricingMode `json:"after_mode"`
	BeforePrice  *int64            `json:"before_price"`
	AfterPrice   *int64            `json:"after_price"`
	BeforeSource model.PriceSource `json:"before_source"`
	AfterSource  model.PriceSource `json:"after_source"`
	// Diff is after minus before, set only when both sides are priced.
	Diff        *int64 `json:"diff"`
	Changed     bool   `json:"changed"`
	Explanation string `json:"explanation"`
}

// RepricingPreview is the read-only outcome of a bulk re-price.
type RepricingPreview struct {
	Matched int            `json:"matched"`
	Changed int            `json:"changed"`
	Rows    []RepricingRow `json:"rows"`
}

// RepricingResult reports what a bulk apply wrote.
type RepricingResult struct {
	Matched   int     `json:"matched"`
	Updated   int     `json:"updated"`
	SampleIDs []int64 `json:"sample_ids"`
}

// repriceRow compares the item's current resolution with the target's.
func repriceRow(pi *pricedItem, target pricing.Target, policy pricing.Policy) (RepricingRow, error) {
	current, err := pricing.CurrentTarget(&pi.item)
	if err != nil {
		return RepricingRow{}, err
	}
	unitCost := pi.item.UnitCost()
	before := pricing.Resolve(current, unitCost, pi.snap, policy)
	after := pricing.Resolve(target, unitCost, pi.snap, policy)

	return RepricingRow{
		ItemID:       pi.item.ID,
		SKU:          pi.item.SKU,
		Title:        pi.item.ProductTitle,
		BeforeMode:   current.Mode(),
		AfterMode:    target.Mode(),
		BeforePrice:  before.Price,
		AfterPrice:   after.Price,
		BeforeSource: before.Source,
		AfterSource:  after.Source,
		Diff:         pricing.Diff(before.Price, after.Price),
		Changed:      !pricing.SamePrice(before.Price, after.Price),
		Explanation:  after.Explanation,
	}, nil
}

// PreviewRepricing shows what applying target to every item matching filter
// would do. Nothing is written.
func PreviewRepricing(ctx context.Context, db *sql.DB, filter ItemFilter, target pricing.Target, policy pricing.Policy) (*RepricingPreview, error) {
	if target == nil {
		return nil, model.Validationf("target_mode is required")
	}
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}

	matched, err := matchItems(ctx, db, filter)
	if err != nil {
		return nil, err
	}

	preview := &RepricingPreview{Matched: len(matched), Rows: make([]RepricingRow, 0, len(matched))}
	for i := range matched {
		row, err := repriceRow(&matched[i], target, policy)
		if err != nil {
			return nil, err
		}
		if row.Changed {
			preview.Changed++
		}
		preview.Rows = append(preview.Rows, row)
	}
	return preview, nil
}

// ApplyRepricing re-matches filter and writes target to every matched item
// in one transaction. It does not reuse a previous preview, so the matched
// set reflects inventory at apply time. Updated counts items whose stored
// effective price differs from the one written, which includes prices gone
// stale since the last write. At most sampleSize updated IDs are returned.
func ApplyRepricing(ctx context.Context, db *sql.DB, filter ItemFilter, target pricing.Target, policy pricing.Policy, sampleSize int) (*RepricingResult, error) {
	if target == nil {
		return nil, model.Validationf("target_mode is required")
	}
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	matched, err := matchItems(ctx, tx, filter)
	if err != nil {
		return nil, err
	}

	// Every row is checked before the first write.
	rows := make([]RepricingRow, len(matched))
	for i := range matched {
		if rows[i], err = repriceRow(&matched[i], target, policy); err != nil {
			return nil, err
		}
	}

	result := &RepricingResult{Matched: len(matched), SampleIDs: []int64{}}
	for i := range matched {
		if err := writePricing(ctx, tx, &matched[i], target, policy); err != nil {
			return nil, err
		}
		if !pricing.SamePrice(matched[i].item.EffectivePrice, rows[i].AfterPrice) {
			result.Updated++
			if len(result.SampleIDs) < sampleSize {
				result.SampleIDs = append(result.SampleIDs, rows[i].ItemID)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing repricing: %w", err)
	}
	return result, nil
}
