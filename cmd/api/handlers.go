package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/nemonet1337/drumledger/pkg/barcode"
	"github.com/nemonet1337/drumledger/pkg/inventory"
)

// maxScanBytes limits uploaded label photos
const maxScanBytes = 10 << 20

// Handlers holds HTTP handlers for the drum ledger API
// ドラム台帳API用のHTTPハンドラーを保持
type Handlers struct {
	manager  inventory.DrumManager
	health   inventory.Pinger
	decoder  barcode.Decoder
	validate *validator.Validate
	logger   *zap.Logger
}

// NewHandlers creates new HTTP handlers. health and decoder may be nil.
// 新しいHTTPハンドラーを作成
func NewHandlers(manager inventory.DrumManager, health inventory.Pinger, decoder barcode.Decoder, logger *zap.Logger) *Handlers {
	return &Handlers{
		manager:  manager,
		health:   health,
		decoder:  decoder,
		validate: validator.New(),
		logger:   logger,
	}
}

// APIResponse represents standard API response format
// 標準的なAPIレスポンス形式を表現
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Fields  interface{} `json:"fields,omitempty"`
}

// MoveDrumsRequest represents a move of drums within one lot
// ドラム移動リクエストを表現
type MoveDrumsRequest struct {
	DrumNumbers   []int           `json:"drum_numbers" validate:"dive,gt=0"`
	NewQuantities map[int]float64 `json:"new_quantities" validate:"dive,gte=0"`
	Destination   string          `json:"destination" validate:"required,max=100"`
	Status        string          `json:"status" validate:"max=50"`
}

// RollbackRequest represents removal of move log entries
// ロールバックリクエストを表現
type RollbackRequest struct {
	EntryIDs []string `json:"entry_ids" validate:"required,min=1,dive,required,max=64"`
}

// HealthCheck handles health check requests
// ヘルスチェックリクエストを処理
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.health.Ping(ctx); err != nil {
			h.logger.Warn("ヘルスチェックに失敗しました", zap.Error(err))
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}

	h.send(w, code, APIResponse{
		Success: code == http.StatusOK,
		Data: map[string]interface{}{
			"status":    status,
			"timestamp": time.Now(),
			"service":   "drumledger",
		},
	})
}

// Reconcile handles work order / receipt reconciliation
// 作業番号・入荷番号の照合リクエストを処理
func (h *Handlers) Reconcile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	view, err := h.manager.ReconcileReference(r.Context(), inventory.SourceKind(vars["kind"]), vars["ref"])
	if err != nil {
		h.sendManagerError(w, err)
		return
	}
	h.sendSuccess(w, view)
}

// ScanReference decodes a label photo and reconciles the scanned reference
// ラベル画像を読み取り、照合リクエストを処理
func (h *Handlers) ScanReference(w http.ResponseWriter, r *http.Request) {
	if h.decoder == nil {
		h.sendError(w, http.StatusNotImplemented, "バーコード読み取りは設定されていません")
		return
	}

	ref, err := barcode.Scan(r.Context(), h.decoder, http.MaxBytesReader(w, r.Body, maxScanBytes))
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.manager.ReconcileReference(r.Context(), inventory.SourceKind(mux.Vars(r)["kind"]), ref)
	if err != nil {
		h.sendManagerError(w, err)
		return
	}
	h.sendSuccess(w, map[string]interface{}{
		"reference": ref,
		"lot":       view,
	})
}

// GetLot handles lot lookup requests
// ロット照会リクエストを処理
func (h *Handlers) GetLot(w http.ResponseWriter, r *http.Request) {
	var item *inventory.ItemRef
	q := r.URL.Query()
	if code := strings.TrimSpace(q.Get("item_code")); code != "" {
		item = &inventory.ItemRef{ItemCode: code, ItemName: strings.TrimSpace(q.Get("item_name"))}
	}

	view, err := h.manager.LookupLot(r.Context(), mux.Vars(r)["lot"], item)
	if err != nil {
		h.sendManagerError(w, err)
		return
	}
	h.sendSuccess(w, view)
}

// MoveDrums handles drum move requests
// ドラム移動リクエストを処理
func (h *Handlers) MoveDrums(w http.ResponseWriter, r *http.Request) {
	var req MoveDrumsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.sendValidationErrors(w, err)
		return
	}

	result, err := h.manager.Move(r.Context(), inventory.MoveRequest{
		Lot:            mux.Vars(r)["lot"],
		DrumNumbers:    req.DrumNumbers,
		NewQuantities:  req.NewQuantities,
		Destination:    req.Destination,
		StatusOverride: req.Status,
	})
	if err != nil {
		h.sendManagerError(w, err)
		return
	}
	h.sendSuccess(w, result)
}

// SearchDrums handles ledger search requests
// 台帳検索リクエストを処理
func (h *Handlers) SearchDrums(w http.ResponseWriter, r *http.Request) {
	rows, err := h.manager.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.sendManagerError(w, err)
		return
	}
	h.sendSuccess(w, rows)
}

// LocationSummary handles per-location summary requests
// 位置別集計リクエストを処理
func (h *Handlers) LocationSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.manager.LocationSummary(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.sendManagerError(w, err)
		return
	}
	h.sendSuccess(w, summary)
}

// ListFloors handles floor list requests
// フロア一覧リクエストを処理
func (h *Handlers) ListFloors(w http.ResponseWriter, r *http.Request) {
	floors, err := h.manager.Floors(r.Context())
	if err != nil {
		h.sendManagerError(w, err)
		return
	}
	h.sendSuccess(w, floors)
}

// FloorMap handles floor map requests
// フロアマップリクエストを処理
func (h *Handlers) FloorMap(w http.ResponseWriter, r *http.Request) {
	view, err := h.manager.FloorMap(r.Context(), mux.Vars(r)["floor"])
	if err != nil {
		h.sendManagerError(w, err)
		return
	}
	h.sendSuccess(w, view)
}

// ZoneDrums handles zone detail requests
// ゾーン内ドラム一覧リクエストを処理
func (h *Handlers) ZoneDrums(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rows, err := h.manager.ZoneDrums(r.Context(), vars["floor"], vars["zone"])
	if err != nil {
		h.sendManagerError(w, err)
		return
	}
	h.sendSuccess(w, rows)
}

// StockSummary handles ERP stock requests
// ERP在庫照会リクエストを処理
func (h *Handlers) StockSummary(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	report, err := h.manager.StockSummary(r.Context(), vars["itemCode"], vars["lot"])
	if err != nil {
		h.sendManagerError(w, err)
		return
	}
	h.sendSuccess(w, report)
}

// GetHistory handles move log requests
// 移動履歴リクエストを処理
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := inventory.LogQuery{
		Lot:         q.Get("lot"),
		LotContains: q.Get("lot_contains"),
	}

	// ページ番号とページサイズのパース
	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "無効なページ番号です")
			return
		}
		query.Page = page
	}
	if v := q.Get("page_size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 0 || size > 500 {
			h.sendError(w, http.StatusBadRequest, "無効なページサイズです")
			return
		}
		query.PageSize = size
	}

	page, err := h.manager.History(r.Context(), query)
	if err != nil {
		h.sendManagerError(w, err)
		return
	}
	h.sendSuccess(w, page)
}

// Rollback handles move log rollback requests
// ロールバックリクエストを処理
func (h *Handlers) Rollback(w http.ResponseWriter, r *http.Request) {
	var req RollbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.sendValidationErrors(w, err)
		return
	}

	result, err := h.manager.Rollback(r.Context(), req.EntryIDs)
	if err != nil {
		h.sendManagerError(w, err)
		return
	}
	h.sendSuccess(w, result)
}

// Aging handles drum age report requests. buckets is a comma separated list of day bounds.
// ドラム経過日数レポートリクエストを処理
func (h *Handlers) Aging(w http.ResponseWriter, r *http.Request) {
	var bounds []int
	if v := strings.TrimSpace(r.URL.Query().Get("buckets")); v != "" {
		for _, part := range strings.Split(v, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				h.sendError(w, http.StatusBadRequest, fmt.Sprintf("無効な区分です: %s", part))
				return
			}
			bounds = append(bounds, n)
		}
	}

	report, err := h.manager.Aging(r.Context(), bounds)
	if err != nil {
		h.sendManagerError(w, err)
		return
	}
	h.sendSuccess(w, report)
}

// Backup handles ledger backup requests
// 台帳バックアップリクエストを処理
func (h *Handlers) Backup(w http.ResponseWriter, r *http.Request) {
	name, err := h.manager.Backup(r.Context())
	if err != nil {
		h.sendManagerError(w, err)
		return
	}
	h.sendSuccess(w, map[string]string{
		"message": "バックアップが完了しました",
		"name":    name,
	})
}

// Export handles workbook export requests
// ワークブック出力リクエストを処理
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.manager.ExportXLSX(r.Context())
	if err != nil {
		h.sendManagerError(w, err)
		return
	}

	name := fmt.Sprintf("drumledger_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("ワークブック送信に失敗しました", zap.Error(err))
	}
}

// ヘルパーメソッド

// statusFor maps manager errors to HTTP status codes
// マネージャーのエラーをHTTPステータスに変換
func statusFor(err error) int {
	var (
		validationErr  *inventory.ValidationError
		staleErr       *inventory.StaleRollbackError
		concurrencyErr *inventory.ConcurrencyError
		malformedErr   *inventory.MalformedSourceError
	)
	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, inventory.ErrNoSelection),
		errors.Is(err, inventory.ErrUnknownSourceKind):
		return http.StatusBadRequest
	case errors.Is(err, inventory.ErrReferenceNotFound),
		errors.Is(err, inventory.ErrLotNotFound),
		errors.Is(err, inventory.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.As(err, &staleErr), errors.As(err, &concurrencyErr):
		return http.StatusConflict
	case errors.As(err, &malformedErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) sendManagerError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.logger.Error("リクエスト処理に失敗しました", zap.Error(err))
	}
	h.sendError(w, code, err.Error())
}

func (h *Handlers) sendValidationErrors(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	h.send(w, http.StatusBadRequest, APIResponse{
		Success: false,
		Error:   "入力値が不正です",
		Fields:  fields,
	})
}

// sendSuccess sends a successful API response
// 成功APIレスポンスを送信
func (h *Handlers) sendSuccess(w http.ResponseWriter, data interface{}) {
	h.send(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// sendError sends an error API response
// エラーAPIレスポンスを送信
func (h *Handlers) sendError(w http.ResponseWriter, statusCode int, message string) {
	h.send(w, statusCode, APIResponse{
		Success: false,
		Error:   message,
	})
}

func (h *Handlers) send(w http.ResponseWriter, statusCode int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("レスポンス送信に失敗しました", zap.Error(err))
	}
}
