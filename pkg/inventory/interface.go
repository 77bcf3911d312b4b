package inventory

import (
	"context"
	"time"
)

// DrumManager defines the operations of the drum ledger
// ドラム台帳のコアインターフェースを定義
type DrumManager interface {
	// 照合 - Reconciliation
	ReconcileReference(ctx context.Context, kind SourceKind, reference string) (*LotView, error)
	LookupLot(ctx context.Context, lot string, item *ItemRef) (*LotView, error)

	// 移動 - Moves
	Move(ctx context.Context, req MoveRequest) (*MoveResult, error)

	// 履歴管理 - History management
	History(ctx context.Context, q LogQuery) (*LogPage, error)
	Rollback(ctx context.Context, entryIDs []string) (*RollbackResult, error)

	// 照会 - Inquiry
	Search(ctx context.Context, query string) ([]DrumRecord, error)
	LocationSummary(ctx context.Context, query string) ([]LocationSummary, error)
	Floors(ctx context.Context) ([]string, error)
	FloorMap(ctx context.Context, floor string) (*FloorMapView, error)
	ZoneDrums(ctx context.Context, floor, zone string) ([]DrumRecord, error)
	StockSummary(ctx context.Context, itemCode, lot string) (*StockReport, error)
	Aging(ctx context.Context, bounds []int) (*AgingReport, error)

	// 保守 - Maintenance
	Backup(ctx context.Context) (string, error)
	ExportXLSX(ctx context.Context) ([]byte, error)
}

// FileStore persists named byte blobs. A missing blob is reported with found == false, not an error.
// 名前付きバイト列の永続化層
type FileStore interface {
	Get(ctx context.Context, name string) (data []byte, found bool, err error)
	Put(ctx context.Context, name string, data []byte) error
}

// VersionedStore is a FileStore that supports compare-and-swap writes.
// PutIfVersion with an empty version only succeeds when the blob does not exist yet.
// A mismatch returns ErrVersionMismatch.
// 比較交換書き込みに対応したストア
type VersionedStore interface {
	FileStore
	GetVersioned(ctx context.Context, name string) (data []byte, version string, found bool, err error)
	PutIfVersion(ctx context.Context, name string, data []byte, version string) (newVersion string, err error)
}

// Pinger is implemented by stores with a health check
type Pinger interface {
	Ping(ctx context.Context) error
}

// Locker serializes read-modify-write cycles across processes
// プロセス間で読み込み・更新・保存を直列化するロック
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// OrderSource looks up a work order or receipt. A miss returns ErrReferenceNotFound.
// 作業番号・入荷番号の照会
type OrderSource interface {
	Lookup(ctx context.Context, reference string) (*OrderRecord, error)
}

// StockSource returns the ERP stock snapshot
// ERP在庫スナップショットの取得
type StockSource interface {
	StockRecords(ctx context.Context) ([]StockRecord, error)
}

// IdentityProvider returns the display name recorded in the move log
// 移動履歴に記録する表示名を返す
type IdentityProvider interface {
	Actor(ctx context.Context) string
}

type actorKey struct{}

// DefaultActor is used when no identity is attached to the context
const DefaultActor = "system"

// WithActor attaches the acting user's display name to ctx
// コンテキストに操作者の表示名を設定
func WithActor(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, actorKey{}, name)
}

// ContextIdentity reads the actor set by WithActor
// WithActorで設定された操作者を読み取る
type ContextIdentity struct{}

// Actor implements IdentityProvider
func (ContextIdentity) Actor(ctx context.Context) string {
	if name, ok := ctx.Value(actorKey{}).(string); ok && name != "" {
		return name
	}
	return DefaultActor
}

// EventPublisher defines interface for publishing drum ledger events
// ドラム台帳イベント発行のインターフェースを定義
type EventPublisher interface {
	PublishLotReconciled(ctx context.Context, event LotReconciledEvent) error
	PublishDrumsMoved(ctx context.Context, event DrumsMovedEvent) error
	PublishRollback(ctx context.Context, event RollbackEvent) error
}

// Event type names carried as a message attribute
const (
	EventTypeLotReconciled = "lot_reconciled"
	EventTypeDrumsMoved    = "drums_moved"
	EventTypeRollback      = "rollback"
)

// LotReconciledEvent represents drums created for a newly referenced lot
// 新規参照ロットのドラム作成イベント
type LotReconciledEvent struct {
	Kind      SourceKind `json:"kind"`
	Reference string     `json:"reference"`
	Lot       string     `json:"lot"`
	ItemCode  string     `json:"item_code"`
	Drums     int        `json:"drums"`
	TotalKg   float64    `json:"total_kg"`
	Timestamp time.Time  `json:"timestamp"`
	Actor     string     `json:"actor"`
}

// DrumsMovedEvent represents one executed move
// 移動実行イベント
type DrumsMovedEvent struct {
	Lot         string         `json:"lot"`
	Destination string         `json:"destination"`
	Entries     []MoveLogEntry `json:"entries"`
	Timestamp   time.Time      `json:"timestamp"`
	Actor       string         `json:"actor"`
}

// RollbackEvent represents removed log entries
// ロールバックイベント
type RollbackEvent struct {
	Removed   []MoveLogEntry `json:"removed"`
	Orphaned  []DrumKey      `json:"orphaned,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     string         `json:"actor"`
}
