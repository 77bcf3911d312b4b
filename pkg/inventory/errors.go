package inventory

import (
	"errors"
	"fmt"
	"strings"
)

// Common drum ledger errors
// 共通のドラム台帳エラー定義

var (
	// ErrReferenceNotFound is returned when a work order or receipt number has no match
	// 作業番号・入荷番号が見つからない場合のエラー
	ErrReferenceNotFound = errors.New("参照番号が見つかりません")

	// ErrLotNotFound is returned when the ledger has no drums for a lot
	// 台帳にロットのドラムが無い場合のエラー
	ErrLotNotFound = errors.New("ロットが見つかりません")

	// ErrNoSelection is returned when a move is requested without any drum
	// ドラム未選択で移動を要求した場合のエラー
	ErrNoSelection = errors.New("移動するドラムを1つ以上選択してください")

	// ErrEntryNotFound is returned when a rollback names an unknown log entry
	// ロールバック対象の履歴エントリが存在しない場合のエラー
	ErrEntryNotFound = errors.New("移動履歴エントリが見つかりません")

	// ErrVersionMismatch is returned when the stored blob changed since it was read
	// 読み込み後に保存データが更新されていた場合のエラー
	ErrVersionMismatch = errors.New("バージョンが一致しません。他のユーザーによって更新されています")

	// ErrSourceUnavailable is returned when an order/receipt/stock workbook cannot be used
	// 作業・入荷・在庫ファイルが利用できない場合のエラー
	ErrSourceUnavailable = errors.New("参照元ファイルを利用できません")

	// ErrUnknownSourceKind is returned for a source kind with no registered source
	// 未登録の参照元種別
	ErrUnknownSourceKind = errors.New("未知の参照元種別です")
)

// ValidationError represents a validation error with details
// 詳細付きバリデーションエラーを表現
type ValidationError struct {
	Field   string `json:"field"`   // エラーフィールド
	Message string `json:"message"` // エラーメッセージ
	Value   string `json:"value"`   // 無効な値
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("バリデーションエラー [%s]: %s (値: %s)", e.Field, e.Message, e.Value)
}

// MalformedSourceError is returned when a persisted blob is unreadable or lacks required columns.
// The accompanying table is always empty.
// 保存データが読めない、または必須列が無い場合のエラー（テーブルは常に空）
type MalformedSourceError struct {
	Source  string   `json:"source"`
	Reason  string   `json:"reason"`
	Missing []string `json:"missing,omitempty"`
	Cause   error    `json:"-"`
}

func (e MalformedSourceError) Error() string {
	msg := fmt.Sprintf("データ形式エラー [%s]: %s", e.Source, e.Reason)
	if len(e.Missing) > 0 {
		msg += fmt.Sprintf(" (不足列: %s)", strings.Join(e.Missing, ", "))
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(" (原因: %v)", e.Cause)
	}
	return msg
}

func (e MalformedSourceError) Unwrap() error {
	return e.Cause
}

// StaleRollbackError is returned when a rollback targets an entry that a later move superseded
// 後続の移動で上書きされたエントリをロールバックしようとした場合のエラー
type StaleRollbackError struct {
	Pairs []DrumKey `json:"pairs"`
}

func (e StaleRollbackError) Error() string {
	names := make([]string, 0, len(e.Pairs))
	for _, p := range e.Pairs {
		names = append(names, p.String())
	}
	return fmt.Sprintf("最新ではない移動履歴はロールバックできません: %s", strings.Join(names, ", "))
}

// ConcurrencyError represents a concurrency-related error
// 同時実行関連のエラーを表現
type ConcurrencyError struct {
	Operation string `json:"operation"` // 操作名
	Resource  string `json:"resource"`  // リソース
	Message   string `json:"message"`   // エラーメッセージ
	Cause     error  `json:"-"`
}

func (e ConcurrencyError) Error() string {
	return fmt.Sprintf("同時実行エラー [%s:%s]: %s", e.Operation, e.Resource, e.Message)
}

func (e ConcurrencyError) Unwrap() error {
	return e.Cause
}

// StorageError represents a storage layer error
// ストレージ層のエラーを表現
type StorageError struct {
	Operation string `json:"operation"` // 操作名
	Message   string `json:"message"`   // エラーメッセージ
	Cause     error  `json:"cause"`     // 原因エラー
}

func (e StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ストレージエラー [%s]: %s (原因: %v)", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("ストレージエラー [%s]: %s", e.Operation, e.Message)
}

func (e StorageError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
// 新しいバリデーションエラーを作成
func NewValidationError(field, message, value string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewMalformedSourceError creates a new malformed source error
func NewMalformedSourceError(source, reason string, missing []string, cause error) *MalformedSourceError {
	return &MalformedSourceError{
		Source:  source,
		Reason:  reason,
		Missing: missing,
		Cause:   cause,
	}
}

// NewConcurrencyError creates a new concurrency error
// 新しい同時実行エラーを作成
func NewConcurrencyError(operation, resource, message string, cause error) *ConcurrencyError {
	return &ConcurrencyError{
		Operation: operation,
		Resource:  resource,
		Message:   message,
		Cause:     cause,
	}
}

// NewStorageError creates a new storage error
// 新しいストレージエラーを作成
func NewStorageError(operation, message string, cause error) *StorageError {
	return &StorageError{
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}
