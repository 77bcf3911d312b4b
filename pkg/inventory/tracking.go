package inventory

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultAgeBuckets are the upper bounds (days, exclusive) of the aging report
// 経過日数レポートの既定区分（日数、上限は含まない）
var DefaultAgeBuckets = []int{30, 90, 180, 365}

// excelEpoch is day zero of spreadsheet serial dates
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

var mfgDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"20060102",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	time.RFC3339,
	"2006-1-2",
	"2006/1/2",
}

// ParseMfgDate parses a manufacture date loosely. Spreadsheet serial day numbers are accepted.
// 製造日をゆるく解析（Excelのシリアル値も可）
func ParseMfgDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range mfgDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= 1 && serial < 100000 {
		days := math.Floor(serial)
		t := excelEpoch.AddDate(0, 0, int(days))
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local), true
	}
	return time.Time{}, false
}

// DrumAgeDays returns whole days between the drum's manufacture date and now
// ドラムの製造日からの経過日数
func DrumAgeDays(rec DrumRecord, now time.Time) (int, bool) {
	mfg, ok := ParseMfgDate(rec.MfgDate)
	if !ok {
		return 0, false
	}
	days := int(now.Sub(mfg).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return days, true
}

// AgeBucket counts drums whose age falls in [MinDays, MaxDays). MaxDays 0 means open-ended.
// 経過日数区分ごとの集計
type AgeBucket struct {
	Label   string  `json:"label"`
	MinDays int     `json:"min_days"`
	MaxDays int     `json:"max_days,omitempty"`
	Drums   int     `json:"drums"`
	TotalKg float64 `json:"total_kg"`
}

// AgingReport groups drums still in stock by age
// 在庫中ドラムの経過日数レポート
type AgingReport struct {
	GeneratedAt time.Time   `json:"generated_at"`
	Buckets     []AgeBucket `json:"buckets"`
	Unknown     AgeBucket   `json:"unknown"` // 製造日を解析できないドラム
}

// BuildAgingReport groups drums by age. Consumed and disposed drums are excluded.
// bounds are ascending upper bounds in days; nil uses DefaultAgeBuckets.
// 経過日数レポートを作成（消費済み・廃棄は除外）
func BuildAgingReport(ledger Ledger, now time.Time, bounds []int) (*AgingReport, error) {
	if bounds == nil {
		bounds = DefaultAgeBuckets
	}
	for i, b := range bounds {
		if b <= 0 || (i > 0 && b <= bounds[i-1]) {
			return nil, NewValidationError("buckets", "区分は正の昇順である必要があります", fmt.Sprint(bounds))
		}
	}

	buckets := make([]AgeBucket, 0, len(bounds)+1)
	lower := 0
	for _, b := range bounds {
		buckets = append(buckets, AgeBucket{Label: fmt.Sprintf("%d-%dd", lower, b-1), MinDays: lower, MaxDays: b})
		lower = b
	}
	buckets = append(buckets, AgeBucket{Label: fmt.Sprintf("%dd+", lower), MinDays: lower})

	totals := make([]decimal.Decimal, len(buckets))
	unknownTotal := decimal.Zero
	report := &AgingReport{GeneratedAt: now, Unknown: AgeBucket{Label: "unknown"}}

	for _, r := range ledger {
		loc := strings.TrimSpace(r.Location)
		if loc == LocationConsumed || loc == LocationDisposed {
			continue
		}
		qty := decimal.NewFromFloat(r.QuantityKg)
		days, ok := DrumAgeDays(r, now)
		if !ok {
			report.Unknown.Drums++
			unknownTotal = unknownTotal.Add(qty)
			continue
		}
		i := bucketIndex(buckets, days)
		buckets[i].Drums++
		totals[i] = totals[i].Add(qty)
	}

	for i := range buckets {
		buckets[i].TotalKg = totals[i].InexactFloat64()
	}
	report.Unknown.TotalKg = unknownTotal.InexactFloat64()
	report.Buckets = buckets
	return report, nil
}

func bucketIndex(buckets []AgeBucket, days int) int {
	for i, b := range buckets {
		if b.MaxDays == 0 || days < b.MaxDays {
			return i
		}
	}
	return len(buckets) - 1
}
