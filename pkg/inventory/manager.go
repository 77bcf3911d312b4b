package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager implements the DrumManager interface
// DrumManagerインターフェースの実装
type Manager struct {
	store     FileStore      // 永続化層
	publisher EventPublisher // イベント発行者
	logger    *zap.Logger    // ログ
	config    *Config        // 設定

	sources  map[SourceKind]OrderSource
	stock    StockSource
	identity IdentityProvider
	locker   Locker
	cache    *TableCache
	metrics  *Metrics
	now      func() time.Time

	mu sync.Mutex // 読み込み・更新・保存を直列化
}

// すべてのインターフェースを実装することを明示
var _ DrumManager = (*Manager)(nil)

// Config holds configuration for the drum manager
// ドラムマネージャーの設定を保持
type Config struct {
	LedgerName       string              `yaml:"ledger_name"`       // 台帳ファイル名
	LogName          string              `yaml:"log_name"`          // 移動履歴ファイル名
	BackupPrefix     string              `yaml:"backup_prefix"`     // バックアップファイル接頭辞
	DefaultLocation  string              `yaml:"default_location"`  // 新規ドラムの位置
	InitialStatus    string              `yaml:"initial_status"`    // 新規ドラムのステータス
	CanonicalizeLots bool                `yaml:"canonicalize_lots"` // 新規ロットを大文字で登録
	Scheme           LocationScheme      `yaml:"scheme"`            // フロア・ゾーン定義
	Rules            ClassificationRules `yaml:"rules"`             // 分類ルール
	LockTTL          time.Duration       `yaml:"lock_ttl"`          // 分散ロックの有効期間
	CacheSize        int                 `yaml:"cache_size"`        // 解析済みテーブルのキャッシュ数
}

// DefaultConfig returns the configuration used when none is given
// 既定の設定を返す
func DefaultConfig() *Config {
	return &Config{
		LedgerName:      "bulk_drums.csv",
		LogName:         "bulk_move_log.csv",
		BackupPrefix:    "backup/bulk_drums",
		DefaultLocation: LocationUnassigned,
		InitialStatus:   StatusAwaitingProduction,
		Scheme:          DefaultLocationScheme(),
		Rules:           DefaultClassificationRules(),
		LockTTL:         10 * time.Second,
		CacheSize:       DefaultCacheSize,
	}
}

// Option customizes a Manager
type Option func(*Manager)

// WithOrderSource registers the order/receipt source for kind
func WithOrderSource(kind SourceKind, src OrderSource) Option {
	return func(m *Manager) { m.sources[kind] = src }
}

// WithStockSource sets the ERP stock source
func WithStockSource(src StockSource) Option {
	return func(m *Manager) { m.stock = src }
}

// WithLocker sets a cross-process lock
func WithLocker(l Locker) Option {
	return func(m *Manager) { m.locker = l }
}

// WithIdentity replaces the default ContextIdentity
func WithIdentity(p IdentityProvider) Option {
	return func(m *Manager) { m.identity = p }
}

// WithMetrics enables Prometheus counters
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithClock overrides the wall clock
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a new drum manager
// 新しいドラムマネージャーを作成
func NewManager(store FileStore, publisher EventPublisher, logger *zap.Logger, config *Config, opts ...Option) *Manager {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		store:     store,
		publisher: publisher,
		logger:    logger,
		config:    config,
		sources:   make(map[SourceKind]OrderSource),
		identity:  ContextIdentity{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	cache, err := NewTableCache(config.CacheSize)
	if err != nil {
		logger.Warn("キャッシュの初期化に失敗しました。キャッシュなしで動作します", zap.Error(err))
	}
	m.cache = cache

	return m
}

// ReconcileReference looks up a work order or receipt, makes sure its lot has drums and
// returns the lot view
// 作業番号・入荷番号からロットを照合し、ロット表示を返す
func (m *Manager) ReconcileReference(ctx context.Context, kind SourceKind, reference string) (*LotView, error) {
	if err := ValidateSourceKind(kind); err != nil {
		return nil, err
	}
	if err := ValidateReference(reference); err != nil {
		return nil, err
	}
	src, ok := m.sources[kind]
	if !ok || src == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSourceKind, kind)
	}

	order, err := src.Lookup(ctx, strings.TrimSpace(reference))
	if err != nil {
		return nil, err
	}

	spec := LotSpecFromOrder(*order, m.config.InitialStatus)
	if spec.Lot == "" {
		return nil, NewValidationError("lot", "参照先にロット番号がありません", reference)
	}
	if m.config.CanonicalizeLots {
		spec.Lot = strings.ToUpper(spec.Lot)
	}

	var ledger Ledger
	var added []DrumRecord
	err = m.withLock(ctx, func() error {
		current, version, err := m.loadLedger(ctx)
		if err != nil {
			return err
		}
		ledger, added = EnsureLot(current, spec, m.config.DefaultLocation)
		if len(added) == 0 {
			return nil
		}
		return m.saveLedger(ctx, ledger, version)
	})
	if err != nil {
		return nil, err
	}

	if len(added) > 0 {
		m.metrics.lotReconciled()
		actor := m.actor(ctx)
		m.publish(ctx, "lot_reconciled", func() error {
			return m.publisher.PublishLotReconciled(ctx, LotReconciledEvent{
				Kind:      kind,
				Reference: order.Reference,
				Lot:       spec.Lot,
				ItemCode:  spec.ItemCode,
				Drums:     len(added),
				TotalKg:   sumKg(added),
				Timestamp: m.now(),
				Actor:     actor,
			})
		})
		m.logger.Info("ロット照合完了（ドラム作成）",
			zap.String("kind", string(kind)),
			zap.String("reference", reference),
			zap.String("lot", spec.Lot),
			zap.Int("drums", len(added)),
			zap.String("actor", actor),
		)
	}

	view, err := BuildLotView(ledger, spec.Lot, nil)
	if err != nil {
		return nil, err
	}
	if spec.MfgDate != "" {
		view.MfgDate = spec.MfgDate
	}
	if spec.ProductLine != "" {
		view.ProductLine = spec.ProductLine
	}
	return view, nil
}

// LookupLot returns the drums of a lot, optionally narrowed to one item
// ロットのドラムを取得
func (m *Manager) LookupLot(ctx context.Context, lot string, item *ItemRef) (*LotView, error) {
	if err := ValidateLotNumber(lot); err != nil {
		return nil, err
	}
	ledger, _, err := m.loadLedger(ctx)
	if err != nil {
		return nil, err
	}
	return BuildLotView(ledger, lot, item)
}

// Move applies a quantity/location change to the selected drums and appends the move log
// 選択ドラムの数量・位置を変更し、移動履歴に追記
func (m *Manager) Move(ctx context.Context, req MoveRequest) (*MoveResult, error) {
	if len(req.DrumNumbers) == 0 {
		return nil, ErrNoSelection
	}
	req.Destination = m.config.Scheme.Normalize(req.Destination)
	if err := ValidateMoveRequest(req, m.config.Scheme); err != nil {
		return nil, err
	}

	actor := m.actor(ctx)
	now := m.now()
	result := &MoveResult{Lot: req.Lot}

	err := m.withLock(ctx, func() error {
		ledger, ledgerVersion, err := m.loadLedger(ctx)
		if err != nil {
			return err
		}
		if len(ledger.LotRows(req.Lot)) == 0 {
			return ErrLotNotFound
		}
		log, logVersion, err := m.loadMoveLog(ctx)
		if err != nil {
			return err
		}

		updated, entries, err := ApplyMove(ledger, req)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			result.Drums = ledger.LotRows(req.Lot)
			return nil
		}

		appended := AppendLog(log, entries, actor, now)
		result.Entries = append([]MoveLogEntry(nil), appended[len(log):]...)
		result.Drums = updated.LotRows(req.Lot)

		if err := m.saveLedger(ctx, updated, ledgerVersion); err != nil {
			return err
		}
		return m.saveMoveLog(ctx, appended, logVersion)
	})
	if err != nil {
		return nil, err
	}
	if len(result.Entries) == 0 {
		return result, nil
	}

	m.metrics.moved(result.Entries)
	m.publish(ctx, "drums_moved", func() error {
		return m.publisher.PublishDrumsMoved(ctx, DrumsMovedEvent{
			Lot:         req.Lot,
			Destination: req.Destination,
			Entries:     result.Entries,
			Timestamp:   now,
			Actor:       actor,
		})
	})

	m.logger.Info("ドラム移動完了",
		zap.String("lot", req.Lot),
		zap.Int("drums", len(result.Entries)),
		zap.String("destination", req.Destination),
		zap.String("actor", actor),
	)

	return result, nil
}

// History returns one page of the move log, newest first
// 移動履歴を新しい順に取得
func (m *Manager) History(ctx context.Context, q LogQuery) (*LogPage, error) {
	log, _, err := m.loadMoveLog(ctx)
	if err != nil {
		return nil, err
	}
	page := QueryLog(log, q)
	return &page, nil
}

// Rollback removes the selected log entries and restores the drums they changed.
// Status is not restored.
// 移動履歴を削除し台帳を変更前に戻す（ステータスは戻らない）
func (m *Manager) Rollback(ctx context.Context, entryIDs []string) (*RollbackResult, error) {
	var result *RollbackResult
	err := m.withLock(ctx, func() error {
		ledger, ledgerVersion, err := m.loadLedger(ctx)
		if err != nil {
			return err
		}
		log, logVersion, err := m.loadMoveLog(ctx)
		if err != nil {
			return err
		}

		newLog, newLedger, res, err := Rollback(log, ledger, entryIDs)
		if err != nil {
			return err
		}
		result = res

		if err := m.saveLedger(ctx, newLedger, ledgerVersion); err != nil {
			return err
		}
		return m.saveMoveLog(ctx, newLog, logVersion)
	})
	if err != nil {
		var stale *StaleRollbackError
		if errors.As(err, &stale) {
			m.metrics.rollback("stale")
			m.logger.Warn("最新ではない移動履歴のロールバックを拒否しました", zap.Int("pairs", len(stale.Pairs)))
		} else {
			m.metrics.rollback("error")
		}
		return nil, err
	}

	m.metrics.rollback("ok")
	actor := m.actor(ctx)
	m.publish(ctx, "rollback", func() error {
		return m.publisher.PublishRollback(ctx, RollbackEvent{
			Removed:   result.Removed,
			Orphaned:  result.Orphaned,
			Timestamp: m.now(),
			Actor:     actor,
		})
	})

	if len(result.Orphaned) > 0 {
		m.logger.Warn("台帳に存在しないドラムの履歴を削除しました", zap.Int("orphaned", len(result.Orphaned)))
	}
	m.logger.Info("ロールバック完了",
		zap.Int("removed", len(result.Removed)),
		zap.Int("restored", len(result.Restored)),
		zap.String("actor", actor),
	)

	return result, nil
}

// Search returns drums whose lot, item code or location contains query
// ドラムを検索
func (m *Manager) Search(ctx context.Context, query string) ([]DrumRecord, error) {
	ledger, _, err := m.loadLedger(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.Search(query), nil
}

// LocationSummary aggregates the search result by location
// 検索結果をロケーション別に集計
func (m *Manager) LocationSummary(ctx context.Context, query string) ([]LocationSummary, error) {
	rows, err := m.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return SummarizeByLocation(rows), nil
}

// Floors lists the floors that currently hold drums
// ドラムが存在するフロア一覧
func (m *Manager) Floors(ctx context.Context) ([]string, error) {
	ledger, _, err := m.loadLedger(ctx)
	if err != nil {
		return nil, err
	}
	return Floors(ledger), nil
}

// FloorMap returns the zone map of a floor
// フロアのゾーンマップを取得
func (m *Manager) FloorMap(ctx context.Context, floor string) (*FloorMapView, error) {
	if strings.TrimSpace(floor) == "" {
		return nil, NewValidationError("floor", "フロアが指定されていません", floor)
	}
	ledger, _, err := m.loadLedger(ctx)
	if err != nil {
		return nil, err
	}
	view := FloorMap(ledger, floor, m.config.Scheme)
	return &view, nil
}

// ZoneDrums lists the drums in one zone
// ゾーン内のドラム一覧を取得
func (m *Manager) ZoneDrums(ctx context.Context, floor, zone string) ([]DrumRecord, error) {
	ledger, _, err := m.loadLedger(ctx)
	if err != nil {
		return nil, err
	}
	return ZoneDrums(ledger, floor, zone), nil
}

// StockSummary returns the ERP stock of an item and lot by warehouse
// 品目・ロットのERP在庫を倉庫別に取得
func (m *Manager) StockSummary(ctx context.Context, itemCode, lot string) (*StockReport, error) {
	if m.stock == nil {
		return nil, ErrSourceUnavailable
	}
	if strings.TrimSpace(itemCode) == "" {
		return nil, NewValidationError("item_code", "品目コードが指定されていません", itemCode)
	}
	if err := ValidateLotNumber(lot); err != nil {
		return nil, err
	}
	records, err := m.stock.StockRecords(ctx)
	if err != nil {
		return nil, err
	}
	return SummarizeStock(records, strings.TrimSpace(itemCode), strings.TrimSpace(lot), m.config.Rules), nil
}

// Aging returns the age report of drums still in stock
// 在庫中ドラムの経過日数レポートを取得
func (m *Manager) Aging(ctx context.Context, bounds []int) (*AgingReport, error) {
	ledger, _, err := m.loadLedger(ctx)
	if err != nil {
		return nil, err
	}
	return BuildAgingReport(ledger, m.now(), bounds)
}

// Backup copies the current ledger blob to a timestamped name and returns that name
// 現在の台帳をタイムスタンプ付きの名前で複製
func (m *Manager) Backup(ctx context.Context) (string, error) {
	data, _, found, err := m.read(ctx, m.config.LedgerName)
	if err != nil {
		return "", err
	}
	if !found {
		return "", NewStorageError("backup", "バックアップ対象の台帳がありません", nil)
	}

	name := fmt.Sprintf("%s_%s.csv", m.config.BackupPrefix, m.now().Format("20060102_150405"))
	if err := m.store.Put(ctx, name, data); err != nil {
		m.metrics.persistenceError("backup")
		return "", NewStorageError("backup", "バックアップの保存に失敗しました", err)
	}

	m.logger.Info("台帳バックアップ完了", zap.String("name", name), zap.Int("bytes", len(data)))
	return name, nil
}

// ExportXLSX returns the ledger and the move log as a workbook
// 台帳と移動履歴をExcelで出力
func (m *Manager) ExportXLSX(ctx context.Context) ([]byte, error) {
	ledger, _, err := m.loadLedger(ctx)
	if err != nil {
		return nil, err
	}
	log, _, err := m.loadMoveLog(ctx)
	if err != nil {
		return nil, err
	}
	return ExportWorkbook(ledger, log)
}

// LoadLedger returns the current ledger. A malformed blob yields an empty ledger and the error.
// 現在の台帳を取得（形式エラー時は空の台帳とエラー）
func (m *Manager) LoadLedger(ctx context.Context) (Ledger, error) {
	ledger, _, err := m.loadLedger(ctx)
	return ledger, err
}

// LoadMoveLog returns the current move log in storage order
// 現在の移動履歴を保存順で取得
func (m *Manager) LoadMoveLog(ctx context.Context) (MoveLog, error) {
	log, _, err := m.loadMoveLog(ctx)
	return log, err
}

// Ping checks the file store when it supports health checks
// ストアのヘルスチェック
func (m *Manager) Ping(ctx context.Context) error {
	if p, ok := m.store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// ヘルパーメソッド

// withLock runs fn under the in-process mutex and the optional distributed lock
// プロセス内ミューテックスと分散ロックの下でfnを実行
func (m *Manager) withLock(ctx context.Context, fn func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locker == nil {
		return fn()
	}

	key := "drumledger:" + m.config.LedgerName
	release, err := m.locker.Lock(ctx, key, m.config.LockTTL)
	if err != nil {
		return NewConcurrencyError("lock", key, "ロックを取得できませんでした", err)
	}
	defer func() {
		if err := release(ctx); err != nil {
			m.logger.Warn("ロック解放に失敗しました", zap.String("key", key), zap.Error(err))
		}
	}()

	return fn()
}

// read returns a blob with its version. Stores without versions get a content hash.
func (m *Manager) read(ctx context.Context, name string) ([]byte, string, bool, error) {
	if vs, ok := m.store.(VersionedStore); ok {
		data, version, found, err := vs.GetVersioned(ctx, name)
		if err != nil {
			m.metrics.persistenceError("get")
			return nil, "", false, NewStorageError("get", fmt.Sprintf("%s の読み込みに失敗しました", name), err)
		}
		return data, version, found, nil
	}

	data, found, err := m.store.Get(ctx, name)
	if err != nil {
		m.metrics.persistenceError("get")
		return nil, "", false, NewStorageError("get", fmt.Sprintf("%s の読み込みに失敗しました", name), err)
	}
	if !found {
		return nil, "", false, nil
	}
	return data, ContentVersion(data), true, nil
}

// write saves a blob only if it is still at version
func (m *Manager) write(ctx context.Context, name string, data []byte, version string) error {
	defer m.cache.Invalidate(name)

	if vs, ok := m.store.(VersionedStore); ok {
		if _, err := vs.PutIfVersion(ctx, name, data, version); err != nil {
			if errors.Is(err, ErrVersionMismatch) {
				return NewConcurrencyError("save", name, "読み込み後に他の更新がありました。再読み込みしてやり直してください", err)
			}
			m.metrics.persistenceError("put")
			return NewStorageError("put", fmt.Sprintf("%s の保存に失敗しました", name), err)
		}
		return nil
	}

	_, current, _, err := m.read(ctx, name)
	if err != nil {
		return err
	}
	if current != version {
		return NewConcurrencyError("save", name, "読み込み後に他の更新がありました。再読み込みしてやり直してください", ErrVersionMismatch)
	}
	if err := m.store.Put(ctx, name, data); err != nil {
		m.metrics.persistenceError("put")
		return NewStorageError("put", fmt.Sprintf("%s の保存に失敗しました", name), err)
	}
	return nil
}

func (m *Manager) loadLedger(ctx context.Context) (Ledger, string, error) {
	name := m.config.LedgerName
	data, version, found, err := m.read(ctx, name)
	if err != nil {
		return Ledger{}, "", err
	}
	if !found {
		return Ledger{}, "", nil
	}
	if cached, ok := m.cache.Get(name, version); ok {
		return cached.(Ledger).Clone(), version, nil
	}

	ledger, err := DecodeLedger(name, data, m.config.Scheme)
	if err != nil {
		m.logger.Error("台帳の読み込みに失敗しました", zap.String("name", name), zap.Error(err))
		return Ledger{}, version, err
	}
	if dups := ledger.DuplicateKeys(); len(dups) > 0 {
		m.logger.Warn("台帳に重複したドラムがあります", zap.String("name", name), zap.Stringers("keys", dups))
	}
	m.cache.Put(name, version, ledger.Clone())
	return ledger, version, nil
}

func (m *Manager) loadMoveLog(ctx context.Context) (MoveLog, string, error) {
	name := m.config.LogName
	data, version, found, err := m.read(ctx, name)
	if err != nil {
		return MoveLog{}, "", err
	}
	if !found {
		return MoveLog{}, "", nil
	}
	if cached, ok := m.cache.Get(name, version); ok {
		return cached.(MoveLog).Clone(), version, nil
	}

	log, err := DecodeMoveLog(name, data)
	if err != nil {
		m.logger.Error("移動履歴の読み込みに失敗しました", zap.String("name", name), zap.Error(err))
		return MoveLog{}, version, err
	}
	m.cache.Put(name, version, log.Clone())
	return log, version, nil
}

func (m *Manager) saveLedger(ctx context.Context, ledger Ledger, version string) error {
	data, err := EncodeLedger(ledger)
	if err != nil {
		return NewStorageError("encode_ledger", "台帳の変換に失敗しました", err)
	}
	if err := m.write(ctx, m.config.LedgerName, data, version); err != nil {
		m.logger.Error("台帳の保存に失敗しました", zap.Error(err))
		return err
	}
	return nil
}

// saveMoveLog runs after the ledger was saved; a failure here leaves the ledger ahead of the log
func (m *Manager) saveMoveLog(ctx context.Context, log MoveLog, version string) error {
	data, err := EncodeMoveLog(log)
	if err != nil {
		return NewStorageError("encode_move_log", "移動履歴の変換に失敗しました", err)
	}
	if err := m.write(ctx, m.config.LogName, data, version); err != nil {
		m.logger.Error("台帳は保存されましたが移動履歴の保存に失敗しました", zap.Error(err))
		return NewStorageError("save_move_log", "台帳は保存されましたが移動履歴の保存に失敗しました。再試行してください", err)
	}
	return nil
}

// actor returns the display name recorded for this request
// コンテキストから操作者の表示名を取得
func (m *Manager) actor(ctx context.Context) string {
	if m.identity == nil {
		return DefaultActor
	}
	return m.identity.Actor(ctx)
}

// publish sends an event when a publisher is configured; failures are only logged
func (m *Manager) publish(ctx context.Context, event string, send func() error) {
	if m.publisher == nil {
		return
	}
	if err := send(); err != nil {
		m.logger.Error("イベント発行に失敗しました", zap.String("event", event), zap.Error(err))
	}
}
