package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/dvl.report/internal/nortek"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	database, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestSessionLifecycle(t *testing.T) {
	database := testDB(t)

	require.NoError(t, database.RecordSession("session-1", "/dev/ttyUSB0"))
	require.NoError(t, database.EndSession("session-1", "device reported error: INVALID SETTING"))

	var device, fatal string
	err := database.QueryRow(
		"SELECT device, fatal_error FROM sessions WHERE session_id = ?",
		"session-1").Scan(&device, &fatal)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", device)
	assert.Equal(t, "device reported error: INVALID SETTING", fatal)
}

func TestRecordBottomTrackAndRecords(t *testing.T) {
	database := testDB(t)
	require.NoError(t, database.RecordSession("session-1", "tcp://localhost:9000"))

	for i := 0; i < 3; i++ {
		bt := nortek.BottomTrack{
			VelX:        float32(i),
			VelY:        -0.5,
			VelZ:        0.25,
			Pressure:    10.5,
			Temperature: 14.0,
			Validity:    0x7,
		}
		require.NoError(t, database.RecordBottomTrack("session-1", bt))
	}

	records, err := database.Records(10)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Newest first.
	assert.Equal(t, float64(2), records[0].VelX)
	assert.Equal(t, float64(0), records[2].VelX)
	assert.Equal(t, "session-1", records[0].SessionID)
	assert.Equal(t, 0x7, records[0].Validity)
	assert.False(t, records[0].Timestamp.IsZero())
}

func TestRecordsLimit(t *testing.T) {
	database := testDB(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, database.RecordBottomTrack("s", nortek.BottomTrack{VelX: float32(i)}))
	}

	records, err := database.Records(2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, float64(4), records[0].VelX)

	// A non-positive limit falls back to the default window.
	records, err = database.Records(0)
	require.NoError(t, err)
	assert.Len(t, records, 5)
}

func TestRecordString(t *testing.T) {
	records := []Record{{VelX: 1.5, VelY: -0.25, VelZ: 0, Pressure: 10.2, Temperature: 14.5, Validity: 7}}
	s := records[0].String()
	assert.Contains(t, s, "vel=(1.500, -0.250, 0.000)")
	assert.Contains(t, s, "validity=7")
}

func TestSpeedSummaryFiltersInvalid(t *testing.T) {
	database := testDB(t)

	// Two valid records with speeds 3 and 4, plus one invalid that must
	// be excluded from the summary.
	require.NoError(t, database.RecordBottomTrack("s", nortek.BottomTrack{VelX: 3, Validity: 0x7}))
	require.NoError(t, database.RecordBottomTrack("s", nortek.BottomTrack{VelY: 4, Validity: 0x7}))
	require.NoError(t, database.RecordBottomTrack("s", nortek.BottomTrack{VelX: 100, Validity: 0x3}))

	stats, err := database.SpeedSummary(10)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Count)
	assert.InDelta(t, 3.5, stats.Mean, 1e-9)
	assert.InDelta(t, 4.0, stats.Max, 1e-9)
}

func TestSpeedSummaryEmpty(t *testing.T) {
	database := testDB(t)
	stats, err := database.SpeedSummary(10)
	require.NoError(t, err)
	assert.Zero(t, stats.Count)
}

func TestMigrations(t *testing.T) {
	database, err := NewDB(filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, database.MigrateUp("../../migrations"))

	version, dirty, err := database.MigrateVersion("../../migrations")
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)

	// Running again is a no-op.
	require.NoError(t, database.MigrateUp("../../migrations"))
}
