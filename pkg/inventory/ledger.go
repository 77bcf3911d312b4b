package inventory

import (
	"sort"
	"strings"
)

// HasLot reports whether the ledger holds at least one row whose stored lot equals lot exactly
// 保存値と完全一致するロットの行が存在するか
func (l Ledger) HasLot(lot string) bool {
	for _, r := range l {
		if r.Lot == lot {
			return true
		}
	}
	return false
}

// Find returns the index of the (lot, drum number) row, matching lot case-insensitively, or -1
// （ロット, ドラム番号）の行インデックスを返す（ロットは大文字小文字を区別しない）
func (l Ledger) Find(lot string, drumNumber int) int {
	key := LotKey(lot)
	for i, r := range l {
		if r.DrumNumber == drumNumber && LotKey(r.Lot) == key {
			return i
		}
	}
	return -1
}

// LotRows returns copies of the lot's rows sorted by drum number
// ロットの行をドラム番号順で返す
func (l Ledger) LotRows(lot string) []DrumRecord {
	key := LotKey(lot)
	var rows []DrumRecord
	for _, r := range l {
		if LotKey(r.Lot) == key {
			rows = append(rows, r)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].DrumNumber < rows[j].DrumNumber
	})
	return rows
}

// Search returns rows whose lot, item code or location contains query (case-folded).
// An empty query returns every row.
// ロット・品目コード・ロケーションの部分一致で検索
func (l Ledger) Search(query string) []DrumRecord {
	q := LotKey(query)
	if q == "" {
		return append([]DrumRecord(nil), l...)
	}
	var rows []DrumRecord
	for _, r := range l {
		if strings.Contains(LotKey(r.Lot), q) ||
			strings.Contains(LotKey(r.ItemCode), q) ||
			strings.Contains(LotKey(r.Location), q) {
			rows = append(rows, r)
		}
	}
	return rows
}

// DuplicateKeys returns (lot, drum number) pairs that occur more than once
// 重複している（ロット, ドラム番号）を返す
func (l Ledger) DuplicateKeys() []DrumKey {
	seen := make(map[DrumKey]int, len(l))
	var dups []DrumKey
	for _, r := range l {
		k := r.Key().matchKey()
		seen[k]++
		if seen[k] == 2 {
			dups = append(dups, r.Key())
		}
	}
	return dups
}

// LotView is the lot as presented to an operator picking drums
// 作業者がドラムを選択するためのロット表示
type LotView struct {
	Lot             string       `json:"lot"`
	ItemCode        string       `json:"item_code"`
	ItemName        string       `json:"item_name"`
	ProductLine     string       `json:"product_line"`
	MfgDate         string       `json:"mfg_date"`
	CurrentLocation string       `json:"current_location"`
	TotalKg         float64      `json:"total_kg"`
	Items           []ItemRef    `json:"items"`
	Drums           []DrumRecord `json:"drums"`
}

// ItemRef is one distinct (item code, item name) pair within a lot
type ItemRef struct {
	ItemCode string `json:"item_code"`
	ItemName string `json:"item_name"`
}

// BuildLotView assembles the view of a lot. When item is non-nil the drums are narrowed to that item.
// Returns ErrLotNotFound when nothing matches.
// ロット表示を組み立てる（itemが指定された場合はその品目に絞り込む）
func BuildLotView(ledger Ledger, lot string, item *ItemRef) (*LotView, error) {
	rows := ledger.LotRows(lot)
	if len(rows) == 0 {
		return nil, ErrLotNotFound
	}

	view := &LotView{Lot: rows[0].Lot}
	seen := make(map[ItemRef]bool)
	for _, r := range rows {
		ref := ItemRef{ItemCode: r.ItemCode, ItemName: r.ItemName}
		if !seen[ref] {
			seen[ref] = true
			view.Items = append(view.Items, ref)
		}
	}

	selected := view.Items[0]
	if item != nil {
		selected = *item
		var narrowed []DrumRecord
		for _, r := range rows {
			if r.ItemCode == item.ItemCode && r.ItemName == item.ItemName {
				narrowed = append(narrowed, r)
			}
		}
		if len(narrowed) == 0 {
			return nil, ErrLotNotFound
		}
		rows = narrowed
	}
	view.ItemCode = selected.ItemCode
	view.ItemName = selected.ItemName
	view.Drums = rows

	locations := make(map[string]bool)
	for _, r := range rows {
		if view.MfgDate == "" && strings.TrimSpace(r.MfgDate) != "" {
			view.MfgDate = r.MfgDate
		}
		if view.ProductLine == "" && strings.TrimSpace(r.ProductLine) != "" {
			view.ProductLine = r.ProductLine
		}
		if loc := strings.TrimSpace(r.Location); loc != "" {
			locations[loc] = true
		}
		view.TotalKg += r.QuantityKg
	}

	switch len(locations) {
	case 0:
		view.CurrentLocation = LocationUnassigned
	case 1:
		for loc := range locations {
			view.CurrentLocation = loc
		}
	default:
		view.CurrentLocation = LocationMixed
	}

	return view, nil
}
