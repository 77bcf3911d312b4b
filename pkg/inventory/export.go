package inventory

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook
const (
	ExportLedgerSheet  = "drums"
	ExportMoveLogSheet = "moves"
)

// ExportWorkbook writes the ledger and the move log as a two-sheet workbook
// 台帳と移動履歴を2シートのExcelブックとして出力
func ExportWorkbook(ledger Ledger, log MoveLog) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	first := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(first, ExportLedgerSheet); err != nil {
		return nil, fmt.Errorf("シート名の設定に失敗しました: %w", err)
	}
	if _, err := f.NewSheet(ExportMoveLogSheet); err != nil {
		return nil, fmt.Errorf("シートの作成に失敗しました: %w", err)
	}

	ledgerRows := make([][]interface{}, 0, len(ledger))
	for _, d := range ledger {
		ledgerRows = append(ledgerRows, []interface{}{
			d.ItemCode, d.ItemName, d.Lot, d.ProductLine, d.MfgDate, d.Status,
			d.DrumNumber, d.QuantityKg, d.Location,
		})
	}
	if err := writeSheet(f, ExportLedgerSheet, ledgerColumns, ledgerRows); err != nil {
		return nil, err
	}

	logRows := make([][]interface{}, 0, len(log))
	for _, e := range log {
		logRows = append(logRows, []interface{}{
			e.Timestamp, e.Actor, e.ItemCode, e.ItemName, e.Lot, e.DrumNumber,
			e.QtyBefore, e.QtyAfter, e.Delta, e.LocationBefore, e.LocationAfter, e.ID,
		})
	}
	if err := writeSheet(f, ExportMoveLogSheet, moveLogColumns, logRows); err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("Excelファイルの書き込みに失敗しました: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, columns []string, rows [][]interface{}) error {
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("ヘッダーの書き込みに失敗しました [%s]: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("セル位置の計算に失敗しました [%s]: %w", sheet, err)
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("行の書き込みに失敗しました [%s]: %w", sheet, err)
		}
	}
	return nil
}
