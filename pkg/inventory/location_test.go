package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocationScheme_Normalize(t *testing.T) {
	scheme := DefaultLocationScheme()

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  4F A1 ", "4F A1"},
		{"4F-A1", "4F A1"},
		{"4F", "4F unassigned"},
		{"consumed", LocationConsumed},
		{"warehouse", LocationWarehouse},
		{"소진", LocationConsumed},
		{"미지정", LocationUnassigned},
		{"외주", LocationOutsourced},
		{"4층 A1", "4F A1"},
		{"4층", "4F unassigned"},
		{"7F B1", "7F B1"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, scheme.Normalize(tt.in), tt.in)
	}
}

func TestLocationScheme_Format(t *testing.T) {
	scheme := DefaultLocationScheme()

	assert.Equal(t, "4F A1", scheme.Format("4F", "A1"))
	assert.Equal(t, LocationConsumed, scheme.Format("consumed", "A1"))
	assert.Equal(t, "4F unassigned", scheme.Format("4F", ""))
}

func TestSplitLocation(t *testing.T) {
	tests := []struct {
		in          string
		floor, zone string
	}{
		{"4F A1", "4F", "A1"},
		{"4F unassigned", "4F", LocationUnassigned},
		{"consumed", "consumed", ""},
		{"", "", ""},
		{"7F", "7F", ""},
	}

	for _, tt := range tests {
		floor, zone := SplitLocation(tt.in)
		assert.Equal(t, tt.floor, floor, tt.in)
		assert.Equal(t, tt.zone, zone, tt.in)
	}
}

func TestSameLot(t *testing.T) {
	assert.True(t, SameLot("l240101", "L240101"))
	assert.True(t, SameLot(" L240101", "L240101 "))
	assert.True(t, SameLot("Ｌ２４０１０１", "L240101"))
	assert.False(t, SameLot("L240101", "L240102"))
}

func TestIsSpecialLocation(t *testing.T) {
	for _, loc := range SpecialLocations() {
		assert.True(t, IsSpecialLocation(loc), loc)
	}
	assert.False(t, IsSpecialLocation("4F A1"))
	assert.False(t, IsSpecialLocation(LocationMixed))
}
