package inventory

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerCodec_RoundTrip(t *testing.T) {
	ledger := sampleLedger()

	data, err := EncodeLedger(ledger)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, utf8BOM))

	decoded, err := DecodeLedger("bulk_drums.csv", data, DefaultLocationScheme())
	require.NoError(t, err)
	assert.Equal(t, ledger, decoded)
}

func TestDecodeLedger_LegacyHeaders(t *testing.T) {
	data := []byte("품목코드,품명,로트번호,제품라인,제조일자,상태,통번호,통용량,현재위치\n" +
		"3VTCLOS-010,Needle base,L240101,needleshot,2024-01-05,remainder,3.0,\"1,000\",4F-A1\n" +
		",,,,,,,,\n" +
		"3VTCLOS-010,Needle base,L240101,needleshot,2024-01-05,remainder,x,abc,소진\n")

	ledger, err := DecodeLedger("bulk_drums.csv", data, DefaultLocationScheme())
	require.NoError(t, err)
	require.Len(t, ledger, 2)

	assert.Equal(t, 3, ledger[0].DrumNumber)
	assert.Equal(t, 1000.0, ledger[0].QuantityKg)
	assert.Equal(t, "4F A1", ledger[0].Location)

	assert.Equal(t, 0, ledger[1].DrumNumber)
	assert.Equal(t, 0.0, ledger[1].QuantityKg)
	assert.Equal(t, LocationConsumed, ledger[1].Location)
}

func TestDecodeLedger_Empty(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("  \n"), utf8BOM} {
		ledger, err := DecodeLedger("bulk_drums.csv", data, DefaultLocationScheme())
		assert.NoError(t, err)
		assert.Empty(t, ledger)
	}
}

func TestDecodeLedger_MissingColumns(t *testing.T) {
	data := []byte("item_code,item_name,lot,product_line,mfg_date,drum_number,quantity_kg\nX,Y,L1,,,1,10\n")

	ledger, err := DecodeLedger("bulk_drums.csv", data, DefaultLocationScheme())

	var malformed *MalformedSourceError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "bulk_drums.csv", malformed.Source)
	assert.Equal(t, []string{"status", "location"}, malformed.Missing)
	assert.NotNil(t, ledger)
	assert.Empty(t, ledger)
}

func TestMoveLogCodec_RoundTrip(t *testing.T) {
	log := MoveLog{
		logEntry("a", "2024-01-01 09:00:00", "L1", 1, 1000, 900.5, "unassigned", "4F A1"),
		logEntry("b", "2024-01-02 09:00:00", "L1", 2, 1000, 0, "4F A1", LocationConsumed),
	}
	log[0].ItemCode = "3VTCLOS-010"
	log[0].ItemName = "Needle, base"

	data, err := EncodeMoveLog(log)
	require.NoError(t, err)

	decoded, err := DecodeMoveLog("bulk_move_log.csv", data)
	require.NoError(t, err)
	assert.Equal(t, log, decoded)
}

func TestDecodeMoveLog_LegacyWithoutIDs(t *testing.T) {
	data := []byte("시간,ID,로트번호,통번호,변경 전 용량,변경 후 용량,변화량,변경 전 위치,변경 후 위치\n" +
		"2024-01-01 09:00:00,kim,L1,1,1000,900,100,미지정,4F-A1\n")

	first, err := DecodeMoveLog("bulk_move_log.csv", data)
	require.NoError(t, err)
	second, err := DecodeMoveLog("bulk_move_log.csv", data)
	require.NoError(t, err)

	require.Len(t, first, 1)
	assert.NotEmpty(t, first[0].ID)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, "kim", first[0].Actor)
	assert.Equal(t, 100.0, first[0].Delta)
}

func TestDecodeMoveLog_MissingColumns(t *testing.T) {
	log, err := DecodeMoveLog("bulk_move_log.csv", []byte("timestamp,lot\n2024-01-01,L1\n"))

	var malformed *MalformedSourceError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, []string{"drum_number"}, malformed.Missing)
	assert.Empty(t, log)
}
