package inventory

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// utf8BOM is written at the head of every table so spreadsheet tools detect UTF-8
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Ledger table columns
// 台帳テーブルの列
var ledgerColumns = []string{
	"item_code", "item_name", "lot", "product_line", "mfg_date",
	"status", "drum_number", "quantity_kg", "location",
}

// Move log table columns. entry_id is optional on read.
// 移動履歴テーブルの列（entry_idは読み込み時は任意）
var moveLogColumns = []string{
	"timestamp", "actor", "item_code", "item_name", "lot", "drum_number",
	"qty_before", "qty_after", "delta", "location_before", "location_after", "entry_id",
}

var moveLogRequired = []string{"lot", "drum_number"}

// headerAliases maps legacy spreadsheet headers to column names
var headerAliases = map[string]string{
	"품목코드":    "item_code",
	"품번":      "item_code",
	"품명":      "item_name",
	"로트번호":    "lot",
	"제품라인":    "product_line",
	"제조일자":    "mfg_date",
	"상태":      "status",
	"통번호":     "drum_number",
	"통용량":     "quantity_kg",
	"현재위치":    "location",
	"시간":      "timestamp",
	"ID":      "actor",
	"변경 전 용량": "qty_before",
	"변경 후 용량": "qty_after",
	"변화량":     "delta",
	"변경 전 위치": "location_before",
	"변경 후 위치": "location_after",
}

// table is a parsed CSV with its header index
type table struct {
	index map[string]int
	rows  [][]string
}

func (t table) get(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func readTable(source string, data []byte, required []string) (table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return table{}, NewMalformedSourceError(source, "ヘッダー行がありません", required, nil)
	}
	if err != nil {
		return table{}, NewMalformedSourceError(source, "CSVを解析できません", nil, err)
	}

	t := table{index: make(map[string]int, len(header))}
	for i, h := range header {
		name := strings.TrimSpace(h)
		if alias, ok := headerAliases[name]; ok {
			name = alias
		}
		if _, dup := t.index[name]; !dup {
			t.index[name] = i
		}
	}

	var missing []string
	for _, c := range required {
		if _, ok := t.index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return table{}, NewMalformedSourceError(source, "必須列がありません", missing, nil)
	}

	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return table{}, NewMalformedSourceError(source, "CSVを解析できません", nil, err)
		}
		if isBlankRow(row) {
			continue
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseInt coerces "3", "3.0" and similar; anything else becomes 0
func parseInt(s string) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, ok := ParseQuantity(s); ok {
		return int(f)
	}
	return 0
}

func parseFloat(s string) float64 {
	f, _ := ParseQuantity(s)
	return f
}

// DecodeLedger parses a ledger table. Numeric columns are coerced (invalid values become 0) and
// locations are normalized with scheme. Empty input is an empty ledger. An unreadable blob or a
// missing required column returns an empty ledger with a MalformedSourceError.
// 台帳CSVを解析（必須列が無ければ空の台帳とエラーを返す）
func DecodeLedger(name string, data []byte, scheme LocationScheme) (Ledger, error) {
	if len(bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))) == 0 {
		return Ledger{}, nil
	}
	t, err := readTable(name, data, ledgerColumns)
	if err != nil {
		return Ledger{}, err
	}

	ledger := make(Ledger, 0, len(t.rows))
	for _, row := range t.rows {
		ledger = append(ledger, DrumRecord{
			ItemCode:    t.get(row, "item_code"),
			ItemName:    t.get(row, "item_name"),
			Lot:         t.get(row, "lot"),
			ProductLine: t.get(row, "product_line"),
			MfgDate:     t.get(row, "mfg_date"),
			Status:      t.get(row, "status"),
			DrumNumber:  parseInt(t.get(row, "drum_number")),
			QuantityKg:  parseFloat(t.get(row, "quantity_kg")),
			Location:    scheme.Normalize(t.get(row, "location")),
		})
	}
	return ledger, nil
}

// EncodeLedger serializes the whole ledger
// 台帳全体をCSVに変換
func EncodeLedger(ledger Ledger) ([]byte, error) {
	rows := make([][]string, 0, len(ledger))
	for _, d := range ledger {
		rows = append(rows, []string{
			d.ItemCode, d.ItemName, d.Lot, d.ProductLine, d.MfgDate, d.Status,
			strconv.Itoa(d.DrumNumber), formatFloat(d.QuantityKg), d.Location,
		})
	}
	return writeTable(ledgerColumns, rows)
}

// DecodeMoveLog parses a move log table. Only lot and drum_number are required; legacy tables
// without an entry_id column get stable derived IDs.
// 移動履歴CSVを解析（ID列が無い既存行には安定IDを付与）
func DecodeMoveLog(name string, data []byte) (MoveLog, error) {
	if len(bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))) == 0 {
		return MoveLog{}, nil
	}
	t, err := readTable(name, data, moveLogRequired)
	if err != nil {
		return MoveLog{}, err
	}

	log := make(MoveLog, 0, len(t.rows))
	for _, row := range t.rows {
		log = append(log, MoveLogEntry{
			ID:             t.get(row, "entry_id"),
			Timestamp:      t.get(row, "timestamp"),
			Actor:          t.get(row, "actor"),
			ItemCode:       t.get(row, "item_code"),
			ItemName:       t.get(row, "item_name"),
			Lot:            t.get(row, "lot"),
			DrumNumber:     parseInt(t.get(row, "drum_number")),
			QtyBefore:      parseFloat(t.get(row, "qty_before")),
			QtyAfter:       parseFloat(t.get(row, "qty_after")),
			Delta:          parseFloat(t.get(row, "delta")),
			LocationBefore: t.get(row, "location_before"),
			LocationAfter:  t.get(row, "location_after"),
		})
	}
	AssignLegacyIDs(log)
	return log, nil
}

// EncodeMoveLog serializes the whole move log
// 移動履歴全体をCSVに変換
func EncodeMoveLog(log MoveLog) ([]byte, error) {
	rows := make([][]string, 0, len(log))
	for _, e := range log {
		rows = append(rows, []string{
			e.Timestamp, e.Actor, e.ItemCode, e.ItemName, e.Lot, strconv.Itoa(e.DrumNumber),
			formatFloat(e.QtyBefore), formatFloat(e.QtyAfter), formatFloat(e.Delta),
			e.LocationBefore, e.LocationAfter, e.ID,
		})
	}
	return writeTable(moveLogColumns, rows)
}

func writeTable(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("CSVヘッダーの書き込みに失敗しました: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("CSVの書き込みに失敗しました: %w", err)
	}
	return buf.Bytes(), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
