package inventory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Zone volume levels shown on the floor map
// フロアマップのゾーン充填レベル
const (
	LevelEmpty  = "empty"
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"
)

// LocationSummary aggregates drums at one location
// ロケーション別のドラム集計
type LocationSummary struct {
	Location string  `json:"location"`
	Drums    int     `json:"drums"`
	TotalKg  float64 `json:"total_kg"`
}

// SummarizeByLocation groups rows by location, sorted by location
// ロケーション別にドラム数と総量を集計
func SummarizeByLocation(rows []DrumRecord) []LocationSummary {
	counts := make(map[string]int)
	totals := make(map[string]decimal.Decimal)
	for _, r := range rows {
		loc := strings.TrimSpace(r.Location)
		counts[loc]++
		totals[loc] = totals[loc].Add(decimal.NewFromFloat(r.QuantityKg))
	}

	out := make([]LocationSummary, 0, len(counts))
	for loc, n := range counts {
		out = append(out, LocationSummary{
			Location: loc,
			Drums:    n,
			TotalKg:  totals[loc].InexactFloat64(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Location < out[j].Location
	})
	return out
}

// Floors returns the sorted distinct floor tokens of all locations
// 全ロケーションのフロア一覧（重複なし・ソート済み）
func Floors(ledger Ledger) []string {
	seen := make(map[string]bool)
	var floors []string
	for _, r := range ledger {
		floor, _ := SplitLocation(r.Location)
		if floor == "" || seen[floor] {
			continue
		}
		seen[floor] = true
		floors = append(floors, floor)
	}
	sort.Strings(floors)
	return floors
}

// ZoneStat is the load of one zone on a floor
// フロア内1ゾーンの集計
type ZoneStat struct {
	Zone    string  `json:"zone"`
	Drums   int     `json:"drums"`
	TotalKg float64 `json:"total_kg"`
	Level   string  `json:"level"`
}

// FloorMapView is the per-zone picture of one floor. A special location is a single bucket
// whose drums are listed in Rows.
// 1フロアのゾーン別状況（特殊ロケーションは単一区画として一覧を返す）
type FloorMapView struct {
	Floor   string       `json:"floor"`
	Special bool         `json:"special"`
	Drums   int          `json:"drums"`
	TotalKg float64      `json:"total_kg"`
	Zones   []ZoneStat   `json:"zones,omitempty"`
	Rows    []DrumRecord `json:"rows,omitempty"`
}

// FloorMap builds the zone map of a floor using the scheme's zone labels
// フロアのゾーンマップを作成
func FloorMap(ledger Ledger, floor string, scheme LocationScheme) FloorMapView {
	floor = strings.TrimSpace(floor)
	view := FloorMapView{Floor: floor, Special: IsSpecialLocation(floor)}

	byZone := make(map[string][]DrumRecord)
	var all []DrumRecord
	for _, r := range ledger {
		f, zone := SplitLocation(r.Location)
		if f != floor {
			continue
		}
		all = append(all, r)
		byZone[zone] = append(byZone[zone], r)
	}
	view.Drums = len(all)
	view.TotalKg = sumKg(all)

	if view.Special {
		view.Rows = sortByLotDrum(all)
		return view
	}

	var max float64
	stats := make([]ZoneStat, 0, len(scheme.Zones))
	for _, zone := range scheme.Zones {
		rows := byZone[zone]
		st := ZoneStat{Zone: zone, Drums: len(rows), TotalKg: sumKg(rows)}
		if st.TotalKg > max {
			max = st.TotalKg
		}
		stats = append(stats, st)
	}
	for i := range stats {
		stats[i].Level = zoneLevel(stats[i].TotalKg, max)
	}
	view.Zones = stats
	return view
}

// ZoneDrums lists the drums in one zone of a floor sorted by (lot, drum number)
// ゾーン内のドラム一覧
func ZoneDrums(ledger Ledger, floor, zone string) []DrumRecord {
	var rows []DrumRecord
	for _, r := range ledger {
		f, z := SplitLocation(r.Location)
		if f == strings.TrimSpace(floor) && z == strings.TrimSpace(zone) {
			rows = append(rows, r)
		}
	}
	return sortByLotDrum(rows)
}

func zoneLevel(volume, max float64) string {
	if volume <= 0 {
		return LevelEmpty
	}
	if max <= 0 {
		return LevelLow
	}
	ratio := volume / max
	switch {
	case ratio > 0.7:
		return LevelHigh
	case ratio > 0.3:
		return LevelMedium
	default:
		return LevelLow
	}
}

func sumKg(rows []DrumRecord) float64 {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(decimal.NewFromFloat(r.QuantityKg))
	}
	return total.InexactFloat64()
}

func sortByLotDrum(rows []DrumRecord) []DrumRecord {
	out := append([]DrumRecord(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Lot != out[j].Lot {
			return out[i].Lot < out[j].Lot
		}
		return out[i].DrumNumber < out[j].DrumNumber
	})
	return out
}

// StockRecord is one row of the ERP stock snapshot
// ERP在庫スナップショットの1行
type StockRecord struct {
	WarehouseCode string  `json:"warehouse_code"`
	WarehouseName string  `json:"warehouse_name"`
	ItemCode      string  `json:"item_code"`
	Lot           string  `json:"lot"`
	Quantity      float64 `json:"quantity"`
}

// StockGroup is the stock of an item/lot at one warehouse
// 倉庫別の在庫集計
type StockGroup struct {
	Category      string  `json:"category"`
	WarehouseCode string  `json:"warehouse_code"`
	WarehouseName string  `json:"warehouse_name"`
	TotalKg       float64 `json:"total_kg"`
}

// StockReport is the ERP stock of one item and lot
// 品目・ロットのERP在庫
type StockReport struct {
	ItemCode string       `json:"item_code"`
	Lot      string       `json:"lot"`
	Groups   []StockGroup `json:"groups"`
	Summary  string       `json:"summary"`
}

// SummarizeStock groups positive stock rows of an item and lot by (category, warehouse),
// sorted by total descending. Matching on item code and lot is exact.
// 品目・ロットの在庫を倉庫区分別に集計
func SummarizeStock(records []StockRecord, itemCode, lot string, rules ClassificationRules) *StockReport {
	type groupKey struct {
		category, code, name string
	}
	totals := make(map[groupKey]decimal.Decimal)
	var keys []groupKey
	for _, r := range records {
		if strings.TrimSpace(r.ItemCode) != itemCode || strings.TrimSpace(r.Lot) != lot || r.Quantity <= 0 {
			continue
		}
		k := groupKey{
			category: rules.WarehouseCategory(r.WarehouseCode),
			code:     strings.TrimSpace(r.WarehouseCode),
			name:     strings.TrimSpace(r.WarehouseName),
		}
		if _, ok := totals[k]; !ok {
			keys = append(keys, k)
		}
		totals[k] = totals[k].Add(decimal.NewFromFloat(r.Quantity))
	}

	report := &StockReport{ItemCode: itemCode, Lot: lot, Groups: make([]StockGroup, 0, len(keys))}
	for _, k := range keys {
		report.Groups = append(report.Groups, StockGroup{
			Category:      k.category,
			WarehouseCode: k.code,
			WarehouseName: k.name,
			TotalKg:       totals[k].InexactFloat64(),
		})
	}
	sort.SliceStable(report.Groups, func(i, j int) bool {
		return report.Groups[i].TotalKg > report.Groups[j].TotalKg
	})

	parts := make([]string, 0, len(report.Groups))
	for _, g := range report.Groups {
		parts = append(parts, fmt.Sprintf("%s(%s %s): %dkg", g.Category, g.WarehouseName, g.WarehouseCode, int64(g.TotalKg)))
	}
	report.Summary = strings.Join(parts, ", ")
	return report
}
