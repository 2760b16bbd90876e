// Package api serves the daemon's HTTP interface: session phase, stored
// records, speed statistics, and runtime reconfiguration.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/banshee-data/dvl.report/internal/db"
	"github.com/banshee-data/dvl.report/internal/httputil"
	"github.com/banshee-data/dvl.report/internal/nortek"
	"github.com/banshee-data/dvl.report/internal/version"
)

// SessionController is the slice of the session the API needs. The concrete
// implementation is *nortek.Session.
type SessionController interface {
	ID() uuid.UUID
	Phase() nortek.Phase
	Params() nortek.Params
	Reconfigure(nortek.Params)
}

type Server struct {
	session SessionController
	db      *db.DB
}

func NewServer(session SessionController, db *db.DB) *Server {
	return &Server{
		session: session,
		db:      db,
	}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/phase", s.phaseHandler)
	mux.HandleFunc("/records", s.recordsHandler)
	mux.HandleFunc("/stats", s.statsHandler)
	mux.HandleFunc("/reconfigure", s.reconfigureHandler)
	mux.HandleFunc("/chart", s.chartHandler)
	mux.HandleFunc("/version", s.versionHandler)
	mux.HandleFunc("/", s.homeHandler)
	return mux
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Welcome to the DVL Server!"))
}

func (s *Server) versionHandler(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}

func (s *Server) phaseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{
		"session_id": s.session.ID().String(),
		"phase":      s.session.Phase().String(),
	})
}

// limitParam parses the optional ?limit= query parameter.
func limitParam(r *http.Request, fallback int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 10000 {
			return n
		}
	}
	return fallback
}

func (s *Server) recordsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	records, err := s.db.Records(limitParam(r, 100))
	if err != nil {
		httputil.InternalServerError(w, "failed to retrieve records: "+err.Error())
		return
	}
	httputil.WriteJSONOK(w, records)
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	stats, err := s.db.SpeedSummary(limitParam(r, 1000))
	if err != nil {
		httputil.InternalServerError(w, "failed to compute stats: "+err.Error())
		return
	}
	httputil.WriteJSONOK(w, stats)
}

// reconfigureHandler merges the posted JSON over the session's current
// parameters and restarts the configuration exchange. Omitted fields keep
// their current values.
func (s *Server) reconfigureHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	params := s.session.Params()
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		httputil.BadRequest(w, "invalid parameters: "+err.Error())
		return
	}
	s.session.Reconfigure(params)
	httputil.WriteJSONOK(w, map[string]string{
		"phase": s.session.Phase().String(),
	})
}
