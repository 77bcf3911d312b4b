package sources

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nemonet1337/drumledger/pkg/inventory"
)

// Default workbook names
const (
	DefaultProductionName = "production.xlsx"
	DefaultReceiptName    = "receive.xlsx"
	DefaultStockName      = "stock.xlsx"
)

var productionAliases = map[string]string{
	"작업번호":  "work_order",
	"품번":    "item_code",
	"품명":    "item_name",
	"LOTNO": "lot",
	"로트번호":  "lot",
	"지시수량":  "ordered_qty",
	"제조량":   "produced_qty",
	"작업일자":  "work_date",
}

var productionRequired = []string{"work_order", "item_code", "item_name", "lot", "produced_qty", "work_date"}

var receiptAliases = map[string]string{
	"입하번호":  "receipt_no",
	"품번":    "item_code",
	"품명":    "item_name",
	"로트번호":  "lot",
	"LOTNO": "lot",
	"입하량":   "received_qty",
	"제조일자":  "mfg_date",
	"제조년월일": "mfg_ymd",
	"유/무상":  "trade_type",
	"유무상":   "trade_type",
}

var receiptRequired = []string{"receipt_no", "item_code", "item_name", "lot"}

// ProductionSource looks up in-house work orders in the production workbook
// 作業番号から生産ワークブックを照会（自社品）
type ProductionSource struct {
	book  *workbook
	rules inventory.ClassificationRules
}

var _ inventory.OrderSource = (*ProductionSource)(nil)

// NewProductionSource creates a work order source reading name from store
func NewProductionSource(store inventory.FileStore, name string, rules inventory.ClassificationRules, logger *zap.Logger) *ProductionSource {
	if name == "" {
		name = DefaultProductionName
	}
	return &ProductionSource{book: newWorkbook(store, name, productionAliases, logger), rules: rules}
}

// Lookup returns the first row whose work order equals reference
// 作業番号が一致する最初の行を返す
func (s *ProductionSource) Lookup(ctx context.Context, reference string) (*inventory.OrderRecord, error) {
	sh, err := s.book.load(ctx, productionRequired)
	if err != nil {
		return nil, err
	}

	ref := strings.TrimSpace(reference)
	for _, row := range sh.rows {
		if sh.get(row, "work_order") != ref {
			continue
		}
		itemCode := sh.get(row, "item_code")
		return &inventory.OrderRecord{
			Kind:        inventory.SourceInHouse,
			Reference:   ref,
			Lot:         sh.get(row, "lot"),
			ItemCode:    itemCode,
			ItemName:    sh.get(row, "item_name"),
			Quantity:    quantity(sh.get(row, "produced_qty")),
			Date:        sh.get(row, "work_date"),
			ProductLine: s.rules.ClassifyProductLine(itemCode),
		}, nil
	}
	return nil, fmt.Errorf("%w: 作業番号 %s", inventory.ErrReferenceNotFound, ref)
}

// ReceiptSource looks up consigned-material receipts in the receipt workbook
// 入荷番号から入荷ワークブックを照会（支給品）
type ReceiptSource struct {
	book  *workbook
	rules inventory.ClassificationRules
}

var _ inventory.OrderSource = (*ReceiptSource)(nil)

// NewReceiptSource creates a receipt source reading name from store
func NewReceiptSource(store inventory.FileStore, name string, rules inventory.ClassificationRules, logger *zap.Logger) *ReceiptSource {
	if name == "" {
		name = DefaultReceiptName
	}
	return &ReceiptSource{book: newWorkbook(store, name, receiptAliases, logger), rules: rules}
}

// Lookup returns the first row whose receipt number equals reference.
// The manufacturing date is read from mfg_date, then mfg_ymd.
// 入荷番号が一致する最初の行を返す
func (s *ReceiptSource) Lookup(ctx context.Context, reference string) (*inventory.OrderRecord, error) {
	sh, err := s.book.load(ctx, receiptRequired)
	if err != nil {
		return nil, err
	}

	ref := strings.TrimSpace(reference)
	for _, row := range sh.rows {
		if sh.get(row, "receipt_no") != ref {
			continue
		}
		date := sh.get(row, "mfg_date")
		if !sh.has("mfg_date") {
			date = sh.get(row, "mfg_ymd")
		}
		tradeType := sh.get(row, "trade_type")
		return &inventory.OrderRecord{
			Kind:        inventory.SourceConsigned,
			Reference:   ref,
			Lot:         sh.get(row, "lot"),
			ItemCode:    sh.get(row, "item_code"),
			ItemName:    sh.get(row, "item_name"),
			Quantity:    quantity(sh.get(row, "received_qty")),
			Date:        date,
			TradeType:   tradeType,
			ProductLine: s.rules.TradeTypeLine(tradeType),
		}, nil
	}
	return nil, fmt.Errorf("%w: 入荷番号 %s", inventory.ErrReferenceNotFound, ref)
}
