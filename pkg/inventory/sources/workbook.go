// Package sources reads the plant's Excel exports: work orders (production), receipts of
// consigned material, and the ERP stock snapshot.
package sources

import (
	"bytes"
	"context"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/nemonet1337/drumledger/pkg/inventory"
)

// sheet is the first-sheet contents of a workbook with a header index
type sheet struct {
	index map[string]int
	rows  [][]string
}

func (s sheet) has(col string) bool {
	_, ok := s.index[col]
	return ok
}

func (s sheet) get(row []string, col string) string {
	i, ok := s.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// workbook loads one named workbook from a FileStore and caches the parsed sheet by content hash
// FileStoreからワークブックを読み込み、内容ハッシュで解析結果をキャッシュ
type workbook struct {
	store   inventory.FileStore
	name    string
	aliases map[string]string
	cache   *inventory.TableCache
	logger  *zap.Logger
}

func newWorkbook(store inventory.FileStore, name string, aliases map[string]string, logger *zap.Logger) *workbook {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := inventory.NewTableCache(4)
	if err != nil {
		logger.Warn("キャッシュの初期化に失敗しました", zap.String("name", name), zap.Error(err))
	}
	return &workbook{store: store, name: name, aliases: aliases, cache: cache, logger: logger}
}

// load returns the active sheet, checking that required columns exist
// アクティブシートを読み込み、必須列を確認
func (w *workbook) load(ctx context.Context, required []string) (sheet, error) {
	data, found, err := w.store.Get(ctx, w.name)
	if err != nil {
		return sheet{}, inventory.NewMalformedSourceError(w.name, "ファイルを読み込めません", nil, inventory.ErrSourceUnavailable)
	}
	if !found {
		return sheet{}, inventory.NewMalformedSourceError(w.name, "ファイルが見つかりません", nil, inventory.ErrSourceUnavailable)
	}

	version := inventory.ContentVersion(data)
	var s sheet
	if cached, ok := w.cache.Get(w.name, version); ok {
		s = cached.(sheet)
	} else {
		s, err = w.parse(data)
		if err != nil {
			w.logger.Warn("ワークブックを解析できません", zap.String("name", w.name), zap.Error(err))
			return sheet{}, inventory.NewMalformedSourceError(w.name, "ワークブックを解析できません", nil, inventory.ErrSourceUnavailable)
		}
		w.cache.Put(w.name, version, s)
	}

	var missing []string
	for _, c := range required {
		if !s.has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return sheet{}, inventory.NewMalformedSourceError(w.name, "必須列がありません", missing, inventory.ErrSourceUnavailable)
	}
	return s, nil
}

func (w *workbook) parse(data []byte) (sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return sheet{}, err
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	if err != nil {
		return sheet{}, err
	}

	s := sheet{index: make(map[string]int)}
	if len(rows) == 0 {
		return s, nil
	}
	for i, h := range rows[0] {
		name := strings.TrimSpace(h)
		if alias, ok := w.aliases[name]; ok {
			name = alias
		}
		if _, dup := s.index[name]; !dup {
			s.index[name] = i
		}
	}
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		s.rows = append(s.rows, row)
	}
	return s, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// quantity returns nil for a blank or unparsable cell
func quantity(s string) *float64 {
	v, ok := inventory.ParseQuantity(s)
	if !ok {
		return nil
	}
	return &v
}
