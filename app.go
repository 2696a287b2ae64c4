package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	conf "github.com/bartek5186/metaltronic-etl/internal/config"
	"github.com/bartek5186/metaltronic-etl/internal/db"
	"github.com/bartek5186/metaltronic-etl/internal/extract"
	"github.com/bartek5186/metaltronic-etl/internal/load"
	"github.com/bartek5186/metaltronic-etl/internal/metrics"
	"github.com/bartek5186/metaltronic-etl/internal/mongostore"
	"github.com/bartek5186/metaltronic-etl/internal/pipeline"
	"github.com/bartek5186/metaltronic-etl/internal/scheduler"
	"github.com/bartek5186/metaltronic-etl/internal/sources"
	"github.com/bartek5186/metaltronic-etl/internal/sources/sqlsource"
	"github.com/bartek5186/metaltronic-etl/internal/transform"
)

// app – wszystkie komponenty procesu, zbudowane raz z configa.
type app struct {
	log      zerolog.Logger
	dir      string
	cfg      *conf.Config
	dbh      *db.Handle
	mongo    *mongostore.Store // nil = MongoDB niedostępne
	metrics  *metrics.Metrics
	loader   *load.Loader
	pipeline *pipeline.Pipeline
	sched    *scheduler.Scheduler
}

func newApp(ctx context.Context, log zerolog.Logger, dir string, cfg *conf.Config) (*app, error) {
	a := &app{log: log, dir: dir, cfg: cfg}

	dbh, err := db.Open(cfg.Database, dir)
	if err != nil {
		return nil, fmt.Errorf("DB open: %w", err)
	}
	a.dbh = dbh
	schema := cfg.Database.AnalyticsSchema
	if cfg.Database.AutoMigrate {
		if err := dbh.Migrate(schema); err != nil {
			dbh.Close()
			return nil, fmt.Errorf("DB migrate: %w", err)
		}
	}
	log.Info().Str("dialect", dbh.Dialect).Str("db", dbh.Path).Msg("DB ready")

	store, err := mongostore.Open(ctx, log.With().Str("component", "mongo").Logger(), cfg.Mongo)
	if err != nil {
		if usesSource(cfg, "mongo") {
			dbh.Close()
			return nil, fmt.Errorf("MongoDB wymagane przez datasets: %w", err)
		}
		log.Warn().Err(err).Msg("MongoDB niedostępne, podsumowania logów i raporty jakości pominięte")
	} else {
		a.mongo = store
	}

	// nil *Store w interfejsie to nie nil – stąd jawne przypisania
	deps := sources.Deps{DB: dbh}
	var docs load.DocStore
	if a.mongo != nil {
		deps.Mongo = a.mongo
		docs = a.mongo
	}

	ext, err := extract.New(log, cfg, deps)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.metrics = metrics.New(prometheus.DefaultRegisterer)
	a.loader = load.New(log, dbh, schema, docs)
	runs := pipeline.NewRunStore(dbh, schema)

	opts := []pipeline.Option{
		pipeline.WithRunStore(runs),
		pipeline.WithMetrics(a.metrics),
		pipeline.WithCheck("sql", dbh),
	}
	if a.mongo != nil {
		opts = append(opts, pipeline.WithCheck("mongo", a.mongo))
	}
	a.pipeline = pipeline.New(log, ext, transform.New(log), a.loader, pipeline.Options{
		RawDir:           a.path(cfg.RawDir),
		ExportDir:        a.path(cfg.ExportDir),
		RetentionDays:    cfg.RetentionDays,
		CheckConnections: cfg.CheckConnections,
	}, opts...)
	a.sched = scheduler.New(log, cfg, a.pipeline, runs.LastDone)
	return a, nil
}

// path: względne katalogi z configa liczone od katalogu danych.
func (a *app) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.dir, p)
}

func usesSource(cfg *conf.Config, name string) bool {
	for _, src := range cfg.Datasets {
		if src == name {
			return true
		}
	}
	return false
}

// seed – dane demo w tabelach źródłowych (dev, sqlite).
func (a *app) seed(date string) error {
	w, err := sources.DayWindow(date)
	if err != nil {
		return err
	}
	var sc sqlsource.Config
	if err := a.cfg.UnmarshalSource("sql", &sc); err != nil {
		return err
	}
	if err := a.dbh.MigrateSources(sc.SalesSchema, sc.InventorySchema); err != nil {
		return err
	}
	if err := a.dbh.SeedDemo(sc.SalesSchema, sc.InventorySchema, w.Start); err != nil {
		return err
	}
	a.log.Info().Str("date", date).Msg("dane demo wstawione")
	return nil
}

func (a *app) validate(ctx context.Context, date string) (load.Validation, error) {
	w, err := sources.DayWindow(date)
	if err != nil {
		return load.Validation{}, err
	}
	return a.loader.Validate(ctx, w.Start)
}

type status struct {
	Scheduler bool              `json:"scheduler_running"`
	Running   bool              `json:"pipeline_running"`
	NextRun   time.Time         `json:"next_run"`
	Mongo     bool              `json:"mongo"`
	LastRun   *pipeline.RunInfo `json:"last_run,omitempty"`
}

func (a *app) status() status {
	return status{
		Scheduler: a.sched.IsRunning(),
		Running:   a.pipeline.IsRunning(),
		NextRun:   a.sched.NextRun(),
		Mongo:     a.mongo != nil,
		LastRun:   a.pipeline.Last(),
	}
}

func (a *app) serveMetrics(ctx context.Context) {
	if a.cfg.MetricsAddr == "" {
		return
	}
	h := metrics.Router(prometheus.DefaultGatherer, func() any { return a.status() })
	go func() {
		if err := metrics.Serve(ctx, a.log, a.cfg.MetricsAddr, h); err != nil {
			a.log.Error().Err(err).Msg("metrics: serwer zakończony z błędem")
		}
	}()
}

func (a *app) Close() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.mongo != nil {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.mongo.Close(cctx)
	}
	_ = a.dbh.Close()
}

func yesterday() string {
	return time.Now().AddDate(0, 0, -1).Format(sources.DateLayout)
}
