package sources

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/nemonet1337/drumledger/pkg/inventory"
	"github.com/nemonet1337/drumledger/pkg/inventory/storage"
)

// putWorkbook はテスト用のワークブックをストアに保存する
func putWorkbook(t *testing.T, store inventory.FileStore, name string, rows [][]interface{}) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), name, buf.Bytes()))
}

func productionRows() [][]interface{} {
	return [][]interface{}{
		{"작업번호", "품번", "품명", "LOTNO", "지시수량", "제조량", "작업일자"},
		{"WO-2024-001", "3VTCLOS-010", "Needle base", "L240101", 900, 820, "2024-01-05"},
		{"", "", "", "", "", "", ""},
		{"WO-2024-002", "OTHER-1", "Other", "L240102", 100, "", "2024-01-06"},
		{"WO-2024-001", "3VTCLOS-010", "Needle base", "L999999", 1, 1, "2024-01-07"},
	}
}

// TestProductionSource_Lookup は作業番号照会のテスト
func TestProductionSource_Lookup(t *testing.T) {
	store := storage.NewMemoryStore()
	putWorkbook(t, store, DefaultProductionName, productionRows())
	src := NewProductionSource(store, "", inventory.DefaultClassificationRules(), zap.NewNop())

	order, err := src.Lookup(context.Background(), " WO-2024-001 ")
	require.NoError(t, err)

	assert.Equal(t, inventory.SourceInHouse, order.Kind)
	assert.Equal(t, "WO-2024-001", order.Reference)
	assert.Equal(t, "L240101", order.Lot)
	assert.Equal(t, "3VTCLOS-010", order.ItemCode)
	assert.Equal(t, "Needle base", order.ItemName)
	require.NotNil(t, order.Quantity)
	assert.Equal(t, 820.0, *order.Quantity)
	assert.Equal(t, "2024-01-05", order.Date)
	assert.Equal(t, inventory.ProductLineNeedleShot, order.ProductLine)

	order, err = src.Lookup(context.Background(), "WO-2024-002")
	require.NoError(t, err)
	assert.Nil(t, order.Quantity)
	assert.Equal(t, "", order.ProductLine)

	_, err = src.Lookup(context.Background(), "WO-404")
	assert.ErrorIs(t, err, inventory.ErrReferenceNotFound)
}

func TestProductionSource_ReloadsChangedWorkbook(t *testing.T) {
	store := storage.NewMemoryStore()
	putWorkbook(t, store, DefaultProductionName, productionRows())
	src := NewProductionSource(store, DefaultProductionName, inventory.DefaultClassificationRules(), nil)

	_, err := src.Lookup(context.Background(), "WO-2024-003")
	assert.ErrorIs(t, err, inventory.ErrReferenceNotFound)

	putWorkbook(t, store, DefaultProductionName, append(productionRows(),
		[]interface{}{"WO-2024-003", "3VTCLOS-023", "Facial gel", "L240103", 50, 40, "2024-01-08"}))

	order, err := src.Lookup(context.Background(), "WO-2024-003")
	require.NoError(t, err)
	assert.Equal(t, inventory.ProductLineFacial, order.ProductLine)
}

func TestProductionSource_Unavailable(t *testing.T) {
	store := storage.NewMemoryStore()
	src := NewProductionSource(store, "", inventory.DefaultClassificationRules(), nil)

	// ファイルなし
	_, err := src.Lookup(context.Background(), "WO-2024-001")
	var malformed *inventory.MalformedSourceError
	require.True(t, errors.As(err, &malformed))
	assert.ErrorIs(t, err, inventory.ErrSourceUnavailable)

	// 解析できないファイル
	require.NoError(t, store.Put(context.Background(), DefaultProductionName, []byte("not a workbook")))
	_, err = src.Lookup(context.Background(), "WO-2024-001")
	assert.ErrorIs(t, err, inventory.ErrSourceUnavailable)

	// 必須列なし
	putWorkbook(t, store, DefaultProductionName, [][]interface{}{
		{"작업번호", "품번", "품명", "LOTNO", "작업일자"},
		{"WO-2024-001", "3VTCLOS-010", "Needle base", "L240101", "2024-01-05"},
	})
	_, err = src.Lookup(context.Background(), "WO-2024-001")
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, []string{"produced_qty"}, malformed.Missing)
	assert.ErrorIs(t, err, inventory.ErrSourceUnavailable)
}

func TestReceiptSource_Lookup(t *testing.T) {
	store := storage.NewMemoryStore()
	putWorkbook(t, store, DefaultReceiptName, [][]interface{}{
		{"입하번호", "품번", "품명", "로트번호", "입하량", "제조일자", "유/무상"},
		{"RCV-001", "C-100", "Consigned base", "C240101", "1,250", "2024-02-01", "유상"},
		{"RCV-002", "C-100", "Consigned base", "C240102", 300, "2024-02-02", ""},
	})
	src := NewReceiptSource(store, "", inventory.DefaultClassificationRules(), zap.NewNop())

	order, err := src.Lookup(context.Background(), "RCV-001")
	require.NoError(t, err)
	assert.Equal(t, inventory.SourceConsigned, order.Kind)
	assert.Equal(t, "C240101", order.Lot)
	require.NotNil(t, order.Quantity)
	assert.Equal(t, 1250.0, *order.Quantity)
	assert.Equal(t, "2024-02-01", order.Date)
	assert.Equal(t, "유상", order.TradeType)
	assert.Equal(t, inventory.ProductLineConsignedPaid, order.ProductLine)

	order, err = src.Lookup(context.Background(), "RCV-002")
	require.NoError(t, err)
	assert.Equal(t, inventory.ProductLineConsigned, order.ProductLine)

	_, err = src.Lookup(context.Background(), "RCV-404")
	assert.ErrorIs(t, err, inventory.ErrReferenceNotFound)
}

func TestReceiptSource_AlternateDateColumn(t *testing.T) {
	store := storage.NewMemoryStore()
	putWorkbook(t, store, DefaultReceiptName, [][]interface{}{
		{"입하번호", "품번", "품명", "LOTNO", "입하량", "제조년월일", "유무상"},
		{"RCV-003", "C-200", "Other base", "C240103", 80, "20240203", "무상"},
	})
	src := NewReceiptSource(store, DefaultReceiptName, inventory.DefaultClassificationRules(), nil)

	order, err := src.Lookup(context.Background(), "RCV-003")
	require.NoError(t, err)
	assert.Equal(t, "20240203", order.Date)
	assert.Equal(t, inventory.ProductLineConsignedFree, order.ProductLine)
}

func TestStockSheet_StockRecords(t *testing.T) {
	store := storage.NewMemoryStore()
	putWorkbook(t, store, DefaultStockName, [][]interface{}{
		{"창고/작업장", "창고/작업장명", "품번", "로트번호", "실재고수량"},
		{"WH001", "본창고", "3VTCLOS-010", "L240101", 350},
		{"WC301", "제조1", "3VTCLOS-010", "L240101", "n/a"},
	})
	src := NewStockSheet(store, "", nil)

	records, err := src.StockRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, inventory.StockRecord{
		WarehouseCode: "WH001",
		WarehouseName: "본창고",
		ItemCode:      "3VTCLOS-010",
		Lot:           "L240101",
		Quantity:      350,
	}, records[0])
	assert.Zero(t, records[1].Quantity)
}

func TestStockSheet_MissingColumns(t *testing.T) {
	store := storage.NewMemoryStore()
	putWorkbook(t, store, DefaultStockName, [][]interface{}{
		{"품번", "로트번호"},
		{"3VTCLOS-010", "L240101"},
	})

	_, err := NewStockSheet(store, "", nil).StockRecords(context.Background())

	var malformed *inventory.MalformedSourceError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, []string{"warehouse_code", "warehouse_name", "actual_qty"}, malformed.Missing)
}
