package inventory

import (
	"fmt"
	"math"
	"strings"
)

// quantityTolerance absorbs float noise when comparing a new quantity with the old one
const quantityTolerance = 1e-9

// ApplyMove applies a quantity/location change to the selected drums of one lot and returns the
// updated ledger with one log entry per processed drum, in selection order.
// Drums that are not in the ledger are skipped. No selection is a no-op.
// Every new quantity must satisfy 0 <= after <= before; a violation returns a ValidationError and
// nothing is changed. Timestamps and actors are stamped later by AppendLog.
// 選択されたドラムに数量・位置変更を適用し、ドラムごとの履歴エントリを返す
func ApplyMove(ledger Ledger, req MoveRequest) (Ledger, []MoveLogEntry, error) {
	numbers := uniqueDrumNumbers(req.DrumNumbers)
	if len(numbers) == 0 {
		return ledger, nil, nil
	}

	destination := strings.TrimSpace(req.Destination)
	if destination == "" {
		return ledger, nil, NewValidationError("destination", "移動先が指定されていません", req.Destination)
	}

	type planned struct {
		index  int
		number int
		after  float64
	}

	// 変更前にすべて検証する
	plan := make([]planned, 0, len(numbers))
	for _, n := range numbers {
		idx := ledger.Find(req.Lot, n)
		if idx < 0 {
			continue
		}
		before := ledger[idx].QuantityKg
		after, ok := req.NewQuantities[n]
		if !ok {
			after = before
		}
		if err := validateNewQuantity(n, before, after); err != nil {
			return ledger, nil, err
		}
		plan = append(plan, planned{index: idx, number: n, after: after})
	}

	if len(plan) == 0 {
		return ledger, nil, nil
	}

	out := ledger.Clone()
	entries := make([]MoveLogEntry, 0, len(plan))
	for _, p := range plan {
		row := &out[p.index]
		entry := MoveLogEntry{
			ID:             NewEntryID(),
			ItemCode:       row.ItemCode,
			ItemName:       row.ItemName,
			Lot:            row.Lot,
			DrumNumber:     row.DrumNumber,
			QtyBefore:      row.QuantityKg,
			QtyAfter:       p.after,
			Delta:          row.QuantityKg - p.after,
			LocationBefore: row.Location,
			LocationAfter:  destination,
		}

		row.QuantityKg = p.after
		row.Location = destination
		row.Status = nextStatus(destination, req.StatusOverride, row.Status)

		entries = append(entries, entry)
	}

	return out, entries, nil
}

// nextStatus applies the status transition rule of a move.
// An outsourced destination always forces the outsourced status.
// 移動後ステータスを決定（外注先なら常に外注）
func nextStatus(destination, override, current string) string {
	if destination == LocationOutsourced {
		return StatusOutsourced
	}
	if s := strings.TrimSpace(override); s != "" {
		return s
	}
	return current
}

func validateNewQuantity(drumNumber int, before, after float64) error {
	field := fmt.Sprintf("new_quantities[%d]", drumNumber)
	value := fmt.Sprintf("%g", after)
	switch {
	case math.IsNaN(after) || math.IsInf(after, 0):
		return NewValidationError(field, "数量が数値ではありません", value)
	case after < 0:
		return NewValidationError(field, "数量は0以上である必要があります", value)
	case after > before+quantityTolerance:
		return NewValidationError(field, fmt.Sprintf("移動後の数量は移動前の数量(%g)以下である必要があります", before), value)
	}
	return nil
}

func uniqueDrumNumbers(numbers []int) []int {
	seen := make(map[int]bool, len(numbers))
	out := make([]int, 0, len(numbers))
	for _, n := range numbers {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
