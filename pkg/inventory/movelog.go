package inventory

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultLogPageSize is the number of entries per history page
const DefaultLogPageSize = 50

// AppendLog stamps entries with one shared timestamp and the actor, then appends them to log.
// The log is never reordered or deduplicated. Entries without an ID get a new one.
// 移動履歴に追記（同一呼び出しのエントリは同じ時刻を共有）
func AppendLog(log MoveLog, entries []MoveLogEntry, actor string, now time.Time) MoveLog {
	stamp := now.Format(TimestampLayout)
	out := make(MoveLog, 0, len(log)+len(entries))
	out = append(out, log...)
	for _, e := range entries {
		e.Timestamp = stamp
		e.Actor = actor
		if strings.TrimSpace(e.ID) == "" {
			e.ID = NewEntryID()
		}
		out = append(out, e)
	}
	return out
}

// AssignLegacyIDs fills missing IDs with stable values derived from row content and position
// ID未設定の行に安定IDを付与
func AssignLegacyIDs(log MoveLog) {
	for i := range log {
		if strings.TrimSpace(log[i].ID) == "" {
			log[i].ID = LegacyEntryID(i, log[i])
		}
	}
}

// newestFirst returns storage indices ordered newest first.
// When every timestamp parses the order is (time, index) descending; otherwise storage order reversed.
func newestFirst(log MoveLog, indices []int) []int {
	out := append([]int(nil), indices...)
	times := make(map[int]time.Time, len(out))
	allParsed := true
	for _, i := range out {
		t, ok := log[i].Time()
		if !ok {
			allParsed = false
			break
		}
		times[i] = t
	}

	sort.SliceStable(out, func(a, b int) bool {
		ia, ib := out[a], out[b]
		if allParsed && !times[ia].Equal(times[ib]) {
			return times[ia].After(times[ib])
		}
		return ia > ib
	})
	return out
}

// LogQuery filters and pages the move log
// 移動履歴の検索条件
type LogQuery struct {
	Lot         string `json:"lot"`          // 完全一致（大文字小文字を区別しない）
	LotContains string `json:"lot_contains"` // 部分一致
	Page        int    `json:"page"`
	PageSize    int    `json:"page_size"`
}

// LogPage is one page of the move log, newest first
// 移動履歴の1ページ（新しい順）
type LogPage struct {
	Entries    []MoveLogEntry `json:"entries"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
	Total      int            `json:"total"`
}

// QueryLog filters the log by lot, orders it newest first and returns the requested page.
// The page is clamped to [1, total pages].
// 移動履歴を検索してページを返す
func QueryLog(log MoveLog, q LogQuery) LogPage {
	exact := LotKey(q.Lot)
	partial := LotKey(q.LotContains)

	var matched []int
	for i, e := range log {
		key := LotKey(e.Lot)
		if exact != "" && key != exact {
			continue
		}
		if partial != "" && !strings.Contains(key, partial) {
			continue
		}
		matched = append(matched, i)
	}

	size := q.PageSize
	if size <= 0 {
		size = DefaultLogPageSize
	}
	totalPages := (len(matched) + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	ordered := newestFirst(log, matched)
	start := (page - 1) * size
	end := start + size
	if end > len(ordered) {
		end = len(ordered)
	}

	entries := make([]MoveLogEntry, 0, end-start)
	for _, i := range ordered[start:end] {
		entries = append(entries, log[i])
	}

	return LogPage{
		Entries:    entries,
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
		Total:      len(matched),
	}
}

// LatestEntry reports whether the entry at index is the most recent one for its drum
// 指定エントリがそのドラムの最新エントリか判定
func LatestEntry(log MoveLog, index int) bool {
	key := log[index].Key().matchKey()
	var pair []int
	for i, e := range log {
		if e.Key().matchKey() == key {
			pair = append(pair, i)
		}
	}
	return newestFirst(log, pair)[0] == index
}

// Rollback removes the selected entries from the log and restores the matching ledger rows to
// qty_before and location_before. Every selected entry must be the latest for its drum; otherwise the
// whole rollback is rejected with a StaleRollbackError and nothing changes. Status is not restored.
// Entries whose drum is missing from the ledger are still removed and reported as orphaned.
// 選択エントリを削除し台帳を変更前に戻す（最新エントリのみ・全件成功か全件失敗）
func Rollback(log MoveLog, ledger Ledger, ids []string) (MoveLog, Ledger, *RollbackResult, error) {
	if len(ids) == 0 {
		return log, ledger, nil, NewValidationError("entry_ids", "ロールバックするエントリを選択してください", "")
	}

	byID := make(map[string]int, len(log))
	for i, e := range log {
		byID[e.ID] = i
	}

	selected := make(map[int]bool, len(ids))
	order := make([]int, 0, len(ids))
	for _, id := range ids {
		idx, ok := byID[strings.TrimSpace(id)]
		if !ok {
			return log, ledger, nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		if selected[idx] {
			continue
		}
		selected[idx] = true
		order = append(order, idx)
	}

	var stale []DrumKey
	reported := make(map[DrumKey]bool)
	for _, idx := range order {
		if LatestEntry(log, idx) {
			continue
		}
		k := log[idx].Key()
		if !reported[k.matchKey()] {
			reported[k.matchKey()] = true
			stale = append(stale, k)
		}
	}
	if len(stale) > 0 {
		return log, ledger, nil, &StaleRollbackError{Pairs: stale}
	}

	outLedger := ledger.Clone()
	result := &RollbackResult{}
	for _, idx := range order {
		e := log[idx]
		result.Removed = append(result.Removed, e)

		row := outLedger.Find(e.Lot, e.DrumNumber)
		if row < 0 {
			result.Orphaned = append(result.Orphaned, e.Key())
			continue
		}
		outLedger[row].QuantityKg = e.QtyBefore
		outLedger[row].Location = e.LocationBefore
		result.Restored = append(result.Restored, outLedger[row])
	}

	outLog := make(MoveLog, 0, len(log)-len(order))
	for i, e := range log {
		if !selected[i] {
			outLog = append(outLog, e)
		}
	}

	return outLog, outLedger, result, nil
}
