package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floorLedger() Ledger {
	return Ledger{
		{Lot: "L1", DrumNumber: 1, QuantityKg: 1000, Location: "4F A1"},
		{Lot: "L1", DrumNumber: 2, QuantityKg: 500, Location: "4F A2"},
		{Lot: "L2", DrumNumber: 1, QuantityKg: 200, Location: "4F B1"},
		{Lot: "L2", DrumNumber: 2, QuantityKg: 80, Location: "4F unassigned"},
		{Lot: "L3", DrumNumber: 2, QuantityKg: 0, Location: LocationConsumed},
		{Lot: "L3", DrumNumber: 1, QuantityKg: 0, Location: LocationConsumed},
		{Lot: "L4", DrumNumber: 1, QuantityKg: 300, Location: "2F C3"},
	}
}

func TestSummarizeByLocation(t *testing.T) {
	got := SummarizeByLocation(floorLedger())

	require.Len(t, got, 6)
	assert.Equal(t, LocationSummary{Location: "2F C3", Drums: 1, TotalKg: 300}, got[0])
	assert.Equal(t, LocationSummary{Location: LocationConsumed, Drums: 2, TotalKg: 0}, got[5])
	assert.Empty(t, SummarizeByLocation(nil))
}

func TestFloors(t *testing.T) {
	assert.Equal(t, []string{"2F", "4F", LocationConsumed}, Floors(floorLedger()))
	assert.Empty(t, Floors(nil))
}

// TestFloorMap はフロアマップのテスト
func TestFloorMap(t *testing.T) {
	view := FloorMap(floorLedger(), "4F", DefaultLocationScheme())

	assert.Equal(t, "4F", view.Floor)
	assert.False(t, view.Special)
	assert.Equal(t, 4, view.Drums)
	assert.Equal(t, 1780.0, view.TotalKg)
	require.Len(t, view.Zones, len(DefaultZones))

	levels := make(map[string]string)
	for _, z := range view.Zones {
		levels[z.Zone] = z.Level
	}
	assert.Equal(t, LevelHigh, levels["A1"])
	assert.Equal(t, LevelMedium, levels["A2"])
	assert.Equal(t, LevelLow, levels["B1"])
	assert.Equal(t, LevelEmpty, levels["C3"])
	assert.Equal(t, ZoneStat{Zone: "A1", Drums: 1, TotalKg: 1000, Level: LevelHigh}, view.Zones[0])
}

func TestFloorMap_SpecialLocation(t *testing.T) {
	view := FloorMap(floorLedger(), LocationConsumed, DefaultLocationScheme())

	assert.True(t, view.Special)
	assert.Nil(t, view.Zones)
	require.Len(t, view.Rows, 2)
	assert.Equal(t, 1, view.Rows[0].DrumNumber)
	assert.Equal(t, 2, view.Rows[1].DrumNumber)
}

func TestFloorMap_EmptyFloor(t *testing.T) {
	view := FloorMap(floorLedger(), "6F", DefaultLocationScheme())

	assert.Zero(t, view.Drums)
	for _, z := range view.Zones {
		assert.Equal(t, LevelEmpty, z.Level)
	}
}

func TestZoneDrums(t *testing.T) {
	rows := ZoneDrums(floorLedger(), "4F", "A2")
	require.Len(t, rows, 1)
	assert.Equal(t, "L1", rows[0].Lot)

	assert.Len(t, ZoneDrums(floorLedger(), "4F", LocationUnassigned), 1)
	assert.Empty(t, ZoneDrums(floorLedger(), "5F", "A1"))
}

func TestSummarizeStock(t *testing.T) {
	records := []StockRecord{
		{WarehouseCode: "WC301", WarehouseName: "제조1", ItemCode: "X1", Lot: "L1", Quantity: 100},
		{WarehouseCode: "WH001", WarehouseName: "본창고", ItemCode: "X1", Lot: "L1", Quantity: 300},
		{WarehouseCode: "WH001", WarehouseName: "본창고", ItemCode: "X1", Lot: "L1", Quantity: 50},
		{WarehouseCode: "WH202", WarehouseName: "불량", ItemCode: "X1", Lot: "L1", Quantity: 0},
		{WarehouseCode: "WH001", WarehouseName: "본창고", ItemCode: "X1", Lot: "L2", Quantity: 999},
		{WarehouseCode: "WH001", WarehouseName: "본창고", ItemCode: "X2", Lot: "L1", Quantity: 999},
	}

	report := SummarizeStock(records, "X1", "L1", DefaultClassificationRules())

	require.Len(t, report.Groups, 2)
	assert.Equal(t, StockGroup{Category: WarehouseCategoryStore, WarehouseCode: "WH001", WarehouseName: "본창고", TotalKg: 350}, report.Groups[0])
	assert.Equal(t, WarehouseCategoryInHouse, report.Groups[1].Category)
	assert.Equal(t, "warehouse(본창고 WH001): 350kg, in-house(제조1 WC301): 100kg", report.Summary)

	empty := SummarizeStock(records, "X9", "L1", DefaultClassificationRules())
	assert.Empty(t, empty.Groups)
	assert.Equal(t, "", empty.Summary)
}
