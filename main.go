package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/dvl.report/api"
	"github.com/banshee-data/dvl.report/internal/config"
	"github.com/banshee-data/dvl.report/internal/db"
	"github.com/banshee-data/dvl.report/internal/monitoring"
	"github.com/banshee-data/dvl.report/internal/nortek"
	"github.com/banshee-data/dvl.report/internal/transport"
	"github.com/banshee-data/dvl.report/internal/version"
)

var (
	device     = flag.String("device", "/dev/ttyUSB0", "Serial device path or tcp://host:port URL")
	listen     = flag.String("listen", ":8080", "Listen address")
	dbFile     = flag.String("db", "dvl_data.db", "SQLite database path")
	configFile = flag.String("config", "", "Device parameter JSON file")
	devMode    = flag.Bool("dev", false, "Run against an in-memory device emulator")
)

// recordingEmitter is the boundary between the session worker and storage:
// bottom-track frames become rows, everything else is counted or logged.
type recordingEmitter struct {
	db        *db.DB
	sessionID string
}

func (e *recordingEmitter) Frame(f nortek.Frame) {
	switch f.Type {
	case nortek.TypeBottomTrack:
		bt, err := nortek.DecodeBottomTrack(f)
		if err != nil {
			log.Printf("failed to decode bottom track frame: %v", err)
			return
		}
		if err := e.db.RecordBottomTrack(e.sessionID, bt); err != nil {
			log.Printf("failed to record bottom track: %v", err)
		}
	case nortek.TypeAverageData:
		// Nothing we store yet.
	default:
		monitoring.Logf("not supported: %#x", f.Type)
	}
}

func (e *recordingEmitter) Fatal(err error) {
	log.Printf("session fatal error: %v", err)
}

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	log.Printf("dvl.report %s (%s)", version.Version, version.GitSHA)

	params := nortek.DefaultParams()
	var portOpts transport.PortOptions
	if *configFile != "" {
		cfg, err := config.Load(*configFile)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		params = cfg.Params()
		portOpts = cfg.Serial
	}

	var src transport.Source
	if *devMode {
		src = newFakeDVL()
	} else {
		var err error
		src, err = transport.Open(*device, portOpts)
		if err != nil {
			log.Fatalf("failed to open device %s: %v", *device, err)
		}
	}
	defer src.Close()

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	emitter := &recordingEmitter{db: database}
	session := nortek.NewSession(src, params, emitter)
	emitter.sessionID = session.ID().String()

	if err := database.RecordSession(emitter.sessionID, *device); err != nil {
		log.Fatalf("failed to record session: %v", err)
	}
	session.Start(ctx)

	// The session worker exiting means either shutdown (clean) or a fatal
	// session error. Restart policy lives with the supervisor (systemd);
	// the daemon records the outcome and exits.
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-session.Done()
		cause := ""
		if err := session.Err(); err != nil {
			cause = err.Error()
		}
		if err := database.EndSession(emitter.sessionID, cause); err != nil {
			log.Printf("failed to close session record: %v", err)
		}
		stop()
		log.Print("session worker terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// mount the admin debugging routes
		database.AttachAdminRoutes(mux)

		// mount the API handlers
		apiMux := api.NewServer(session, database).ServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", apiMux))
		mux.Handle("/", apiMux)

		server := &http.Server{
			Addr:    *listen,
			Handler: mux,
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
