package api

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/dvl.report/internal/db"
	"github.com/banshee-data/dvl.report/internal/nortek"
	"github.com/banshee-data/dvl.report/internal/testutil"
)

// stubSession implements SessionController with recorded calls.
type stubSession struct {
	id           uuid.UUID
	phase        nortek.Phase
	params       nortek.Params
	reconfigured []nortek.Params
}

func (s *stubSession) ID() uuid.UUID         { return s.id }
func (s *stubSession) Phase() nortek.Phase   { return s.phase }
func (s *stubSession) Params() nortek.Params { return s.params }
func (s *stubSession) Reconfigure(p nortek.Params) {
	s.reconfigured = append(s.reconfigured, p)
	s.phase = nortek.PhaseConfiguring
}

func newTestServer(t *testing.T) (*Server, *stubSession, *db.DB) {
	t.Helper()
	database, err := db.NewDB(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	session := &stubSession{
		id:     uuid.New(),
		phase:  nortek.PhaseCapturing,
		params: nortek.DefaultParams(),
	}
	return NewServer(session, database), session, database
}

func TestPhaseHandler(t *testing.T) {
	server, session, _ := newTestServer(t)

	rec := testutil.NewTestRecorder()
	server.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/phase"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var body map[string]string
	testutil.DecodeJSON(t, rec, &body)
	assert.Equal(t, session.id.String(), body["session_id"])
	assert.Equal(t, "capturing", body["phase"])
}

func TestPhaseHandlerRejectsPost(t *testing.T) {
	server, _, _ := newTestServer(t)

	rec := testutil.NewTestRecorder()
	server.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(http.MethodPost, "/phase"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
}

func TestRecordsHandler(t *testing.T) {
	server, _, database := newTestServer(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, database.RecordBottomTrack("s1", nortek.BottomTrack{
			VelX: float32(i), Validity: 0x7,
		}))
	}

	rec := testutil.NewTestRecorder()
	server.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/records?limit=2"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var records []db.Record
	testutil.DecodeJSON(t, rec, &records)
	require.Len(t, records, 2)
	assert.Equal(t, float64(2), records[0].VelX)
}

func TestStatsHandler(t *testing.T) {
	server, _, database := newTestServer(t)
	require.NoError(t, database.RecordBottomTrack("s1", nortek.BottomTrack{VelX: 3, Validity: 0x7}))
	require.NoError(t, database.RecordBottomTrack("s1", nortek.BottomTrack{VelY: 4, Validity: 0x7}))

	rec := testutil.NewTestRecorder()
	server.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/stats"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var stats db.SpeedStats
	testutil.DecodeJSON(t, rec, &stats)
	assert.Equal(t, 2, stats.Count)
	assert.InDelta(t, 3.5, stats.Mean, 1e-9)
}

func TestReconfigureHandlerMergesOverCurrentParams(t *testing.T) {
	server, session, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/reconfigure",
		strings.NewReader(`{"rate": 8.0}`))
	rec := testutil.NewTestRecorder()
	server.ServeMux().ServeHTTP(rec, req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	require.Len(t, session.reconfigured, 1)
	assert.Equal(t, 8.0, session.reconfigured[0].Rate)
	// Fields omitted from the request keep their current values.
	assert.Equal(t, "nortek", session.reconfigured[0].Username)
	assert.Equal(t, 30.0, session.reconfigured[0].BTRange)

	var body map[string]string
	testutil.DecodeJSON(t, rec, &body)
	assert.Equal(t, "configuring", body["phase"])
}

func TestReconfigureHandlerRejectsBadJSON(t *testing.T) {
	server, session, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/reconfigure", strings.NewReader("{oops"))
	rec := testutil.NewTestRecorder()
	server.ServeMux().ServeHTTP(rec, req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
	assert.Empty(t, session.reconfigured)
}

func TestReconfigureHandlerRejectsGet(t *testing.T) {
	server, _, _ := newTestServer(t)

	rec := testutil.NewTestRecorder()
	server.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/reconfigure"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
}

func TestVersionHandler(t *testing.T) {
	server, _, _ := newTestServer(t)

	rec := testutil.NewTestRecorder()
	server.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/version"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var body map[string]string
	testutil.DecodeJSON(t, rec, &body)
	assert.Contains(t, body, "version")
}

func TestChartHandler(t *testing.T) {
	server, _, database := newTestServer(t)
	require.NoError(t, database.RecordBottomTrack("s1", nortek.BottomTrack{VelX: 1, Validity: 0x7}))

	rec := testutil.NewTestRecorder()
	server.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/chart"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Contains(t, rec.Body.String(), "echarts")
}

func TestLimitParam(t *testing.T) {
	cases := []struct {
		query string
		want  int
	}{
		{"", 100},
		{"?limit=5", 5},
		{"?limit=0", 100},
		{"?limit=-1", 100},
		{"?limit=abc", 100},
		{"?limit=20000", 100},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/records"+tc.query, nil)
		assert.Equal(t, tc.want, limitParam(req, 100), "query %q", tc.query)
	}
}
