package inventory

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// DrumCapacityKg is the hard cap for one full drum
	// 1ドラムの上限容量(kg)
	DrumCapacityKg = 1000

	// SmallBatchKg is the threshold below which a batch stays in a single drum
	// この量未満のバッチは分割しない
	SmallBatchKg = 200
)

var drumCapacity = decimal.NewFromInt(DrumCapacityKg)

// GenerateDrums splits a manufactured or received quantity into drums.
// Non-positive, NaN and infinite quantities produce no drums.
// 製造量・入荷量をドラムに分割する（0以下・NaN・無限大は空）
func GenerateDrums(totalQuantity float64) []DrumSpec {
	if math.IsNaN(totalQuantity) || math.IsInf(totalQuantity, 0) || totalQuantity <= 0 {
		return nil
	}

	if totalQuantity < SmallBatchKg {
		return []DrumSpec{{Number: 1, Quantity: totalQuantity}}
	}

	total := decimal.NewFromFloat(totalQuantity)
	full := int(total.Div(drumCapacity).Floor().IntPart())
	remainder := total.Mod(drumCapacity)

	drums := make([]DrumSpec, 0, full+1)
	for i := 0; i < full; i++ {
		drums = append(drums, DrumSpec{Number: i + 1, Quantity: DrumCapacityKg})
	}
	if remainder.IsPositive() {
		drums = append(drums, DrumSpec{Number: full + 1, Quantity: remainder.InexactFloat64()})
	}

	return drums
}

// ParseQuantity parses a loosely formatted quantity such as "1,250" or " 300kg".
// The boolean is false when the text holds no number.
// 「1,250」「300kg」のような数量文字列を解析
func ParseQuantity(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimSuffix(s, "kg"), "KG")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
