package inventory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestGenerateDrums はドラム分割のテスト
func TestGenerateDrums(t *testing.T) {
	tests := []struct {
		name  string
		total float64
		want  []DrumSpec
	}{
		{"ゼロ", 0, nil},
		{"負数", -5, nil},
		{"NaN", math.NaN(), nil},
		{"無限大", math.Inf(1), nil},
		{"小バッチ", 150, []DrumSpec{{Number: 1, Quantity: 150}}},
		{"閾値ちょうど", 200, []DrumSpec{{Number: 1, Quantity: 200}}},
		{"端数あり", 2500, []DrumSpec{{1, 1000}, {2, 1000}, {3, 500}}},
		{"端数なし", 3000, []DrumSpec{{1, 1000}, {2, 1000}, {3, 1000}}},
		{"小数の端数", 1000.5, []DrumSpec{{1, 1000}, {2, 0.5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateDrums(tt.total))
		})
	}
}

func TestGenerateDrums_SumsToTotal(t *testing.T) {
	for _, total := range []float64{200, 999.9, 1000, 4321.25} {
		var sum float64
		for _, d := range GenerateDrums(total) {
			assert.LessOrEqual(t, d.Quantity, float64(DrumCapacityKg))
			sum += d.Quantity
		}
		assert.InDelta(t, total, sum, 1e-9)
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1,250", 1250, true},
		{" 300kg", 300, true},
		{"300 KG", 300, true},
		{"12.5", 12.5, true},
		{"", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseQuantity(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
