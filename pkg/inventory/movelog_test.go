package inventory

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logEntry(id, ts, lot string, drum int, before, after float64, from, to string) MoveLogEntry {
	return MoveLogEntry{
		ID:             id,
		Timestamp:      ts,
		Actor:          "tester",
		Lot:            lot,
		DrumNumber:     drum,
		QtyBefore:      before,
		QtyAfter:       after,
		Delta:          before - after,
		LocationBefore: from,
		LocationAfter:  to,
	}
}

func TestAppendLog(t *testing.T) {
	now := time.Date(2024, 1, 5, 9, 30, 0, 0, time.Local)
	log := MoveLog{logEntry("old", "2024-01-04 10:00:00", "L1", 1, 10, 5, "4F A1", "4F A2")}

	out := AppendLog(log, []MoveLogEntry{{Lot: "L1", DrumNumber: 2}, {ID: "keep", Lot: "L1", DrumNumber: 3}}, "kim", now)

	require.Len(t, out, 3)
	assert.Len(t, log, 1)
	assert.Equal(t, "old", out[0].ID)
	for _, e := range out[1:] {
		assert.Equal(t, "2024-01-05 09:30:00", e.Timestamp)
		assert.Equal(t, "kim", e.Actor)
	}
	assert.NotEmpty(t, out[1].ID)
	assert.Equal(t, "keep", out[2].ID)
}

func TestAssignLegacyIDs(t *testing.T) {
	a := MoveLog{logEntry("", "2024-01-04 10:00:00", "L1", 1, 10, 5, "", "")}
	b := MoveLog{logEntry("", "2024-01-04 10:00:00", "L1", 1, 10, 5, "", "")}

	AssignLegacyIDs(a)
	AssignLegacyIDs(b)

	assert.NotEmpty(t, a[0].ID)
	assert.Equal(t, a[0].ID, b[0].ID)
}

func TestQueryLog(t *testing.T) {
	log := MoveLog{
		logEntry("a", "2024-01-01 09:00:00", "L240101", 1, 1000, 900, "unassigned", "4F A1"),
		logEntry("b", "2024-01-03 09:00:00", "M240201", 1, 120, 100, "warehouse", "2F A1"),
		logEntry("c", "2024-01-02 09:00:00", "l240101", 2, 1000, 800, "unassigned", "4F A1"),
	}

	page := QueryLog(log, LogQuery{})
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, DefaultLogPageSize, page.PageSize)
	assert.Equal(t, []string{"b", "c", "a"}, entryIDs(page.Entries))

	page = QueryLog(log, LogQuery{Lot: "L240101"})
	assert.Equal(t, []string{"c", "a"}, entryIDs(page.Entries))

	page = QueryLog(log, LogQuery{LotContains: "2402"})
	assert.Equal(t, []string{"b"}, entryIDs(page.Entries))

	page = QueryLog(log, LogQuery{Lot: "X"})
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, 1, page.TotalPages)
	assert.Empty(t, page.Entries)
}

func TestQueryLog_Paging(t *testing.T) {
	var log MoveLog
	for i := 0; i < 5; i++ {
		log = append(log, logEntry(fmt.Sprint(i), fmt.Sprintf("2024-01-0%d 09:00:00", i+1), "L1", 1, 0, 0, "", ""))
	}

	page := QueryLog(log, LogQuery{Page: 2, PageSize: 2})
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, []string{"2", "1"}, entryIDs(page.Entries))

	page = QueryLog(log, LogQuery{Page: 99, PageSize: 2})
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, []string{"0"}, entryIDs(page.Entries))

	page = QueryLog(log, LogQuery{Page: -1, PageSize: 2})
	assert.Equal(t, 1, page.Page)
}

func TestQueryLog_UnparsableTimestamps(t *testing.T) {
	log := MoveLog{
		logEntry("a", "2024-01-03 09:00:00", "L1", 1, 0, 0, "", ""),
		logEntry("b", "yesterday", "L1", 1, 0, 0, "", ""),
		logEntry("c", "2024-01-01 09:00:00", "L1", 1, 0, 0, "", ""),
	}

	page := QueryLog(log, LogQuery{})
	assert.Equal(t, []string{"c", "b", "a"}, entryIDs(page.Entries))
}

func TestLatestEntry(t *testing.T) {
	log := MoveLog{
		logEntry("a", "2024-01-01 09:00:00", "L1", 1, 1000, 900, "", ""),
		logEntry("b", "2024-01-01 09:00:00", "l1", 1, 900, 800, "", ""),
		logEntry("c", "2023-12-31 09:00:00", "L1", 2, 1000, 900, "", ""),
	}

	assert.False(t, LatestEntry(log, 0))
	assert.True(t, LatestEntry(log, 1))
	assert.True(t, LatestEntry(log, 2))
}

// TestRollback はロールバックのテスト
func TestRollback(t *testing.T) {
	ledger := Ledger{
		{Lot: "L1", DrumNumber: 1, QuantityKg: 800, Location: "5F B2", Status: StatusRemainder},
		{Lot: "L1", DrumNumber: 2, QuantityKg: 300, Location: "4F A1"},
	}
	log := MoveLog{
		logEntry("a", "2024-01-01 09:00:00", "L1", 1, 1000, 900, "unassigned", "4F A1"),
		logEntry("b", "2024-01-02 09:00:00", "L1", 1, 900, 800, "4F A1", "5F B2"),
		logEntry("c", "2024-01-02 09:00:00", "L1", 2, 1000, 300, "unassigned", "4F A1"),
	}

	newLog, newLedger, res, err := Rollback(log, ledger, []string{"b", "c", "b"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, entryIDs(newLog))
	assert.Equal(t, []string{"b", "c"}, entryIDs(res.Removed))
	require.Len(t, res.Restored, 2)
	assert.Empty(t, res.Orphaned)

	assert.Equal(t, 900.0, newLedger[0].QuantityKg)
	assert.Equal(t, "4F A1", newLedger[0].Location)
	assert.Equal(t, StatusRemainder, newLedger[0].Status)
	assert.Equal(t, 1000.0, newLedger[1].QuantityKg)
	assert.Equal(t, "unassigned", newLedger[1].Location)

	// 入力は変更されない
	assert.Equal(t, 800.0, ledger[0].QuantityKg)
	assert.Len(t, log, 3)
}

func TestRollback_Stale(t *testing.T) {
	ledger := Ledger{{Lot: "L1", DrumNumber: 1, QuantityKg: 800}}
	log := MoveLog{
		logEntry("a", "2024-01-01 09:00:00", "L1", 1, 1000, 900, "", ""),
		logEntry("b", "2024-01-02 09:00:00", "L1", 1, 900, 800, "", ""),
	}

	newLog, newLedger, res, err := Rollback(log, ledger, []string{"a"})

	var stale *StaleRollbackError
	require.True(t, errors.As(err, &stale))
	assert.Equal(t, []DrumKey{{Lot: "L1", DrumNumber: 1}}, stale.Pairs)
	assert.Nil(t, res)
	assert.Equal(t, log, newLog)
	assert.Equal(t, ledger, newLedger)

	// 同じドラムの複数エントリ選択も最新以外が含まれるため拒否
	_, _, _, err = Rollback(log, ledger, []string{"a", "b"})
	require.True(t, errors.As(err, &stale))
	assert.Len(t, stale.Pairs, 1)
}

func TestRollback_Orphaned(t *testing.T) {
	log := MoveLog{logEntry("a", "2024-01-01 09:00:00", "GONE", 4, 100, 50, "", "")}

	newLog, _, res, err := Rollback(log, Ledger{}, []string{"a"})
	require.NoError(t, err)

	assert.Empty(t, newLog)
	assert.Empty(t, res.Restored)
	assert.Equal(t, []DrumKey{{Lot: "GONE", DrumNumber: 4}}, res.Orphaned)
}

func TestRollback_InvalidSelection(t *testing.T) {
	log := MoveLog{logEntry("a", "2024-01-01 09:00:00", "L1", 1, 100, 50, "", "")}

	_, _, _, err := Rollback(log, nil, nil)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "entry_ids", ve.Field)

	_, _, _, err = Rollback(log, nil, []string{"missing"})
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func entryIDs(entries []MoveLogEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}
