// Package db stores DVL sessions and decoded bottom-track records in
// SQLite.
package db

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/dvl.report/internal/nortek"
)

type DB struct {
	*sql.DB
	path string
}

// NewDB opens (creating if needed) the SQLite database at path and ensures
// the baseline schema exists. Schema changes between releases go through
// the migrations under migrations/; see migrate.go.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = sqlDB.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id        TEXT PRIMARY KEY,
			device            TEXT,
			started_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			ended_at          TIMESTAMP,
			fatal_error       TEXT
		);
		CREATE TABLE IF NOT EXISTS bottom_track (
			record_id         INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id        TEXT,
			vel_x             DOUBLE,
			vel_y             DOUBLE,
			vel_z             DOUBLE,
			pressure          DOUBLE,
			temperature       DOUBLE,
			validity          BIGINT,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(session_id) REFERENCES sessions(session_id)
		);
		CREATE INDEX IF NOT EXISTS idx_bottom_track_timestamp
			ON bottom_track(timestamp);
	`)
	if err != nil {
		return nil, err
	}

	return &DB{DB: sqlDB, path: path}, nil
}

// RecordSession inserts a new session row at connection time.
func (db *DB) RecordSession(sessionID, device string) error {
	_, err := db.Exec(
		"INSERT INTO sessions (session_id, device) VALUES (?, ?)",
		sessionID, device)
	return err
}

// EndSession marks a session finished. cause is empty for a clean shutdown
// and carries the terminal error text otherwise.
func (db *DB) EndSession(sessionID, cause string) error {
	_, err := db.Exec(
		"UPDATE sessions SET ended_at = CURRENT_TIMESTAMP, fatal_error = ? WHERE session_id = ?",
		cause, sessionID)
	return err
}

// RecordBottomTrack appends one decoded bottom-track record.
func (db *DB) RecordBottomTrack(sessionID string, bt nortek.BottomTrack) error {
	_, err := db.Exec(
		`INSERT INTO bottom_track
			(session_id, vel_x, vel_y, vel_z, pressure, temperature, validity)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, bt.VelX, bt.VelY, bt.VelZ, bt.Pressure, bt.Temperature, bt.Validity)
	return err
}

// Record is one stored bottom-track row.
type Record struct {
	SessionID   string    `json:"session_id"`
	VelX        float64   `json:"vel_x"`
	VelY        float64   `json:"vel_y"`
	VelZ        float64   `json:"vel_z"`
	Pressure    float64   `json:"pressure"`
	Temperature float64   `json:"temperature"`
	Validity    int       `json:"validity"`
	Timestamp   time.Time `json:"timestamp"`
}

func (r Record) String() string {
	return fmt.Sprintf("%s vel=(%.3f, %.3f, %.3f) prs=%.2f temp=%.1f validity=%d",
		r.Timestamp.Format(time.RFC3339), r.VelX, r.VelY, r.VelZ,
		r.Pressure, r.Temperature, r.Validity)
}

// Records returns the most recent bottom-track rows, newest first.
func (db *DB) Records(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT session_id, vel_x, vel_y, vel_z, pressure, temperature, validity, timestamp
			FROM bottom_track ORDER BY record_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.SessionID, &r.VelX, &r.VelY, &r.VelZ,
			&r.Pressure, &r.Temperature, &r.Validity, &r.Timestamp); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	// Create a tailSQL instance and point it at our DB for live queries.
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://"+db.path, db.DB, &tailsql.DBOptions{
		Label: "DVL DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backupPath := fmt.Sprintf("backup-%d.db", time.Now().Unix())
		if _, err := db.DB.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", backupPath))
		w.Header().Set("Content-Type", "application/octet-stream")

		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}
		defer func() {
			backupFile.Close()
			if err := os.Remove(backupPath); err != nil {
				log.Printf("Failed to remove backup file: %v", err)
			}
		}()

		if _, err := backupFile.WriteTo(w); err != nil {
			log.Printf("Failed to send backup file: %v", err)
		}
	}))
}
