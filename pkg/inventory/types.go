// Package inventory provides drum ledger reconciliation, move execution and guarded rollback
package inventory

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DrumRecord represents one physical drum of bulk material
// バルク原料の物理的な1ドラムを表現
type DrumRecord struct {
	ItemCode    string  `json:"item_code"`    // 品目コード
	ItemName    string  `json:"item_name"`    // 品名
	Lot         string  `json:"lot"`          // ロット番号
	ProductLine string  `json:"product_line"` // 製品ライン
	MfgDate     string  `json:"mfg_date"`     // 製造日（自由形式）
	Status      string  `json:"status"`       // ステータス
	DrumNumber  int     `json:"drum_number"`  // ドラム番号（ロット内で1始まり）
	QuantityKg  float64 `json:"quantity_kg"`  // 現在の充填量(kg)
	Location    string  `json:"location"`     // 現在位置
}

// Key returns the (lot, drum number) identity of the record
// レコードの（ロット, ドラム番号）キーを返す
func (d DrumRecord) Key() DrumKey {
	return DrumKey{Lot: d.Lot, DrumNumber: d.DrumNumber}
}

// DrumKey identifies a drum within the ledger
// 台帳内のドラムを識別
type DrumKey struct {
	Lot        string `json:"lot"`
	DrumNumber int    `json:"drum_number"`
}

func (k DrumKey) String() string {
	return fmt.Sprintf("%s#%d", k.Lot, k.DrumNumber)
}

// matchKey is the case-folded form used for map lookups
func (k DrumKey) matchKey() DrumKey {
	return DrumKey{Lot: LotKey(k.Lot), DrumNumber: k.DrumNumber}
}

// DrumSpec is one generated drum before it becomes a ledger row
// 台帳行になる前の生成済みドラム
type DrumSpec struct {
	Number   int     `json:"drum_number"`
	Quantity float64 `json:"quantity_kg"`
}

// Ledger is the current-state table of all drums
// 全ドラムの現在状態テーブル
type Ledger []DrumRecord

// Clone returns an independent copy of the ledger
// 台帳の独立したコピーを返す
func (l Ledger) Clone() Ledger {
	if l == nil {
		return nil
	}
	out := make(Ledger, len(l))
	copy(out, l)
	return out
}

// TimestampLayout is the wall-clock format stored in the move log
// 移動履歴に保存されるタイムスタンプ形式
const TimestampLayout = "2006-01-02 15:04:05"

// MoveLogEntry is an immutable record of one drum's quantity/location change
// 1ドラムの数量・位置変更の不変記録
type MoveLogEntry struct {
	ID             string  `json:"id"`              // エントリID
	Timestamp      string  `json:"timestamp"`       // 記録時刻
	Actor          string  `json:"actor"`           // 記録者の表示名
	ItemCode       string  `json:"item_code"`       // 品目コード
	ItemName       string  `json:"item_name"`       // 品名
	Lot            string  `json:"lot"`             // ロット番号
	DrumNumber     int     `json:"drum_number"`     // ドラム番号
	QtyBefore      float64 `json:"qty_before"`      // 変更前数量
	QtyAfter       float64 `json:"qty_after"`       // 変更後数量
	Delta          float64 `json:"delta"`           // 変化量（前 - 後）
	LocationBefore string  `json:"location_before"` // 変更前位置
	LocationAfter  string  `json:"location_after"`  // 変更後位置
}

// Key returns the drum addressed by the entry
func (e MoveLogEntry) Key() DrumKey {
	return DrumKey{Lot: e.Lot, DrumNumber: e.DrumNumber}
}

// Time parses the stored timestamp
// 保存されたタイムスタンプを解析
func (e MoveLogEntry) Time() (time.Time, bool) {
	s := strings.TrimSpace(e.Timestamp)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{TimestampLayout, time.RFC3339, "2006-01-02T15:04:05", "2006/01/02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MoveLog is the append-only history of drum changes, in storage order
// ドラム変更の追記専用履歴（保存順）
type MoveLog []MoveLogEntry

// Clone returns an independent copy of the log
func (m MoveLog) Clone() MoveLog {
	if m == nil {
		return nil
	}
	out := make(MoveLog, len(m))
	copy(out, m)
	return out
}

// Drum statuses. The set is open; these are the values the system itself writes.
// ドラムステータス（開集合。システムが書き込む値のみ定義）
const (
	StatusAwaitingProduction = "awaiting-production" // 生産待ち
	StatusRemainder          = "remainder"           // 残量
	StatusProductionEnded    = "production-ended"    // 生産終了
	StatusOutsourced         = "outsourced"          // 外注
)

// Special locations. Any other location is a "floor zone" composite.
// 特殊ロケーション（それ以外は「フロア ゾーン」形式）
const (
	LocationConsumed   = "consumed"   // 消費済み
	LocationUnassigned = "unassigned" // 未指定
	LocationDisposed   = "disposed"   // 廃棄
	LocationOutsourced = "outsourced" // 外注
	LocationWarehouse  = "warehouse"  // 倉庫

	// LocationMixed is only used in lot views when drums sit in different places
	// ロット表示でドラムの位置が複数ある場合のみ使用
	LocationMixed = "mixed"
)

// SourceKind selects the external reference source
// 外部参照元の種類
type SourceKind string

const (
	SourceInHouse   SourceKind = "in-house"  // 自社（作業番号）
	SourceConsigned SourceKind = "consigned" // 支給（入荷番号）
)

// OrderRecord is what an order/receipt source returns for a reference
// 作業番号・入荷番号の照会結果
type OrderRecord struct {
	Kind        SourceKind `json:"kind"`
	Reference   string     `json:"reference"`
	Lot         string     `json:"lot"`
	ItemCode    string     `json:"item_code"`
	ItemName    string     `json:"item_name"`
	Quantity    *float64   `json:"quantity,omitempty"` // nilは数量不明
	Date        string     `json:"date"`
	TradeType   string     `json:"trade_type,omitempty"`
	ProductLine string     `json:"product_line"`
}

// LotSpec carries the metadata used when a lot is first created
// ロット初回作成時のメタデータ
type LotSpec struct {
	Lot           string
	ItemCode      string
	ItemName      string
	ProductLine   string
	MfgDate       string
	InitialStatus string
	TotalQuantity float64
}

// MoveRequest describes a quantity/location change for drums of one lot
// 1ロット内のドラムの数量・位置変更要求
type MoveRequest struct {
	Lot            string          `json:"lot"`
	DrumNumbers    []int           `json:"drum_numbers"`
	NewQuantities  map[int]float64 `json:"new_quantities"`
	Destination    string          `json:"destination"`
	StatusOverride string          `json:"status"`
}

// MoveResult is returned by Manager.Move
// 移動処理の結果
type MoveResult struct {
	Lot     string         `json:"lot"`
	Entries []MoveLogEntry `json:"entries"`
	Drums   []DrumRecord   `json:"drums"`
}

// RollbackResult is returned by Rollback
// ロールバック処理の結果
type RollbackResult struct {
	Removed  []MoveLogEntry `json:"removed"`
	Restored []DrumRecord   `json:"restored"` // statusは復元されない
	Orphaned []DrumKey      `json:"orphaned"` // 台帳に行が無かったエントリ
}

// NewEntryID generates an ID for a new move log entry
// 新しい移動履歴エントリIDを生成
func NewEntryID() string {
	return uuid.New().String()
}

// legacyNamespace seeds IDs for log rows written before IDs were stored
var legacyNamespace = uuid.MustParse("5b7c1f4e-2a0d-4c55-9d1e-8f7a3b6c2e10")

// LegacyEntryID derives a stable ID for a stored row that has none
// ID列を持たない既存行の安定IDを導出
func LegacyEntryID(index int, e MoveLogEntry) string {
	seed := strings.Join([]string{
		strconv.Itoa(index),
		e.Timestamp,
		e.Lot,
		strconv.Itoa(e.DrumNumber),
		strconv.FormatFloat(e.QtyBefore, 'f', -1, 64),
		strconv.FormatFloat(e.QtyAfter, 'f', -1, 64),
		e.LocationBefore,
		e.LocationAfter,
	}, "|")
	return uuid.NewSHA1(legacyNamespace, []byte(seed)).String()
}
