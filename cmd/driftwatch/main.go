package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"driftwatch/internal/api"
	"driftwatch/internal/audit"
	"driftwatch/internal/policy"
	"driftwatch/internal/report"
	"driftwatch/internal/snapshot"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "HTTP bind address")
		dbPath     = flag.String("db", "driftwatch.db", "SQLite DB path")
		window     = flag.Duration("window", 24*time.Hour, "look-back window for audits")
		workers    = flag.Int("workers", 4, "concurrent schedule evaluations")
		keep       = flag.Int("keep", 30, "snapshots retained after each ingestion (0 disables pruning)")
		policyPath = flag.String("policy", "", "audit policy YAML (optional)")
		once       = flag.Bool("once", false, "audit the latest snapshot, print the report, and exit")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	pol := policy.Default()
	if *policyPath != "" {
		p, err := policy.Load(*policyPath)
		if err != nil {
			log.Fatal().Err(err).Msg("load policy")
		}
		pol = p
	}
	polStore := policy.NewStore(pol)

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=journal_mode(WAL)", *dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("open db")
	}
	defer db.Close()
	db.SetMaxOpenConns(1) // SQLite single writer

	if err := snapshot.EnsureSchema(db); err != nil {
		log.Fatal().Err(err).Msg("ensure schema")
	}

	store := snapshot.NewSQLiteStore(db)
	auditor := audit.New(polStore, *workers)

	if *once {
		os.Exit(runOnce(store, auditor, *window))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *policyPath != "" {
		go func() {
			if err := policy.Watch(ctx, *policyPath, polStore); err != nil {
				log.Warn().Err(err).Msg("policy watcher stopped")
			}
		}()
	}

	srv := &http.Server{Addr: *addr, Handler: api.NewServer(store, auditor, *window, *keep)}
	go func() {
		log.Info().Str("addr", *addr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Info().Msg("shutting down")
	cancel()
	ctxTimeout, cancelTimeout := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelTimeout()
	_ = srv.Shutdown(ctxTimeout)
}

// runOnce audits the newest stored snapshot and prints the text report.
// Exit code 1 means drift was found, 2 means the audit could not run.
func runOnce(store snapshot.Store, auditor *audit.Auditor, window time.Duration) int {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stored, err := store.Latest(ctx, 2)
	if err != nil {
		log.Error().Err(err).Msg("load snapshots")
		return 2
	}
	if len(stored) == 0 {
		log.Error().Msg("no snapshots stored")
		return 2
	}

	current := stored[0]
	end := current.CapturedAt
	res := auditor.Audit(current.Snapshot, end.Add(-window), end, time.Now().UTC())

	var changes *snapshot.Changes
	if len(stored) > 1 {
		ch := snapshot.Diff(current.Snapshot, stored[1].Snapshot)
		changes = &ch
	}

	fmt.Print(report.Text(res, changes))
	if res.HasDrift() {
		return 1
	}
	return 0
}
