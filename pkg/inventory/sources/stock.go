package sources

import (
	"context"

	"go.uber.org/zap"

	"github.com/nemonet1337/drumledger/pkg/inventory"
)

var stockAliases = map[string]string{
	"창고/작업장":  "warehouse_code",
	"창고/작업장명": "warehouse_name",
	"품번":      "item_code",
	"로트번호":    "lot",
	"실재고수량":   "actual_qty",
}

var stockRequired = []string{"warehouse_code", "warehouse_name", "item_code", "lot", "actual_qty"}

// StockSheet reads the ERP stock snapshot workbook
// ERP在庫スナップショットのワークブック
type StockSheet struct {
	book *workbook
}

var _ inventory.StockSource = (*StockSheet)(nil)

// NewStockSheet creates a stock source reading name from store
func NewStockSheet(store inventory.FileStore, name string, logger *zap.Logger) *StockSheet {
	if name == "" {
		name = DefaultStockName
	}
	return &StockSheet{book: newWorkbook(store, name, stockAliases, logger)}
}

// StockRecords returns every row. Unparsable quantities become 0.
// 全行を返す（数量が解析できない場合は0）
func (s *StockSheet) StockRecords(ctx context.Context) ([]inventory.StockRecord, error) {
	sh, err := s.book.load(ctx, stockRequired)
	if err != nil {
		return nil, err
	}

	records := make([]inventory.StockRecord, 0, len(sh.rows))
	for _, row := range sh.rows {
		qty, _ := inventory.ParseQuantity(sh.get(row, "actual_qty"))
		records = append(records, inventory.StockRecord{
			WarehouseCode: sh.get(row, "warehouse_code"),
			WarehouseName: sh.get(row, "warehouse_name"),
			ItemCode:      sh.get(row, "item_code"),
			Lot:           sh.get(row, "lot"),
			Quantity:      qty,
		})
	}
	return records, nil
}
