// Package pipeline spina przebieg dnia: kontrola połączeń, ekstrakcja,
// zrzut surowych danych, transformacja, raport jakości, eksport, ładowanie,
// walidacja i sprzątanie starych plików.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bartek5186/metaltronic-etl/internal/load"
	"github.com/bartek5186/metaltronic-etl/internal/metrics"
	"github.com/bartek5186/metaltronic-etl/internal/quality"
	"github.com/bartek5186/metaltronic-etl/internal/sources"
	"github.com/bartek5186/metaltronic-etl/internal/transform"
)

// Etapy przebiegu (etl_runs.stage, etykieta metryk).
const (
	StageCheck     = "check_connections"
	StagePrepare   = "create_directories"
	StageExtract   = "extract"
	StageStageRaw  = "stage_raw"
	StageTransform = "transform"
	StageQuality   = "quality_report"
	StageExport    = "export"
	StageLoad      = "load"
	StageValidate  = "validate"
	StageCleanup   = "cleanup"
)

const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusError   = "error"
)

var ErrAlreadyRunning = errors.New("pipeline: przebieg już trwa")

type Extractor interface {
	ExtractAll(ctx context.Context, w sources.Window) (transform.Input, error)
}

type Loader interface {
	LoadAll(ctx context.Context, out *transform.Output, report quality.Report) (load.Result, error)
	Validate(ctx context.Context, day time.Time) (load.Validation, error)
}

// Pinger – baza lub Mongo sprawdzane przed przebiegiem.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	RawDir           string // "" = bez zrzutu surowych zbiorów
	ExportDir        string // "" = bez eksportu wyników
	RetentionDays    int    // 0 = bez sprzątania
	CheckConnections bool
}

// RunInfo – stan przebiegu (etl_runs, /status, REPL).
type RunInfo struct {
	RunID      string           `json:"run_id"`
	Fecha      string           `json:"fecha"`
	Attempt    int              `json:"attempt"`
	Status     string           `json:"status"`
	Stage      string           `json:"stage"`
	Error      string           `json:"error,omitempty"`
	Rows       map[string]int   `json:"rows"`
	Loaded     load.Result      `json:"loaded"`
	Validation *load.Validation `json:"validation,omitempty"`
	Files      []string         `json:"files,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at,omitempty"`
}

type Pipeline struct {
	log     zerolog.Logger
	ext     Extractor
	tr      *transform.Transformer
	ld      Loader
	opts    Options
	runs    *RunStore        // nil = bez etl_runs
	metrics *metrics.Metrics // nil = bez metryk
	checks  map[string]Pinger
	now     func() time.Time
	newID   func() string

	mu      sync.Mutex
	running bool
	last    *RunInfo
}

type Option func(*Pipeline)

func WithRunStore(s *RunStore) Option        { return func(p *Pipeline) { p.runs = s } }
func WithMetrics(m *metrics.Metrics) Option  { return func(p *Pipeline) { p.metrics = m } }
func WithClock(now func() time.Time) Option  { return func(p *Pipeline) { p.now = now } }
func WithRunIDs(next func() string) Option   { return func(p *Pipeline) { p.newID = next } }
func WithCheck(name string, c Pinger) Option { return func(p *Pipeline) { p.checks[name] = c } }

func New(log zerolog.Logger, ext Extractor, tr *transform.Transformer, ld Loader, opts Options, extra ...Option) *Pipeline {
	p := &Pipeline{
		log:    log.With().Str("component", "pipeline").Logger(),
		ext:    ext,
		tr:     tr,
		ld:     ld,
		opts:   opts,
		checks: map[string]Pinger{},
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, o := range extra {
		o(p)
	}
	return p
}

// Last – ostatni (lub trwający) przebieg; nil przed pierwszym.
func (p *Pipeline) Last() *RunInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return nil
	}
	cp := *p.last
	return &cp
}

func (p *Pipeline) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Runs – dostęp do etl_runs (nil gdy wyłączone).
func (p *Pipeline) Runs() *RunStore { return p.runs }

// Run – jeden przebieg dla daty YYYY-MM-DD.
func (p *Pipeline) Run(ctx context.Context, date string) (RunInfo, error) {
	return p.RunAttempt(ctx, date, 1)
}

// RunAttempt jak Run, z numerem próby zapisanym w etl_runs. Na raz trwa
// najwyżej jeden przebieg; drugi dostaje ErrAlreadyRunning.
func (p *Pipeline) RunAttempt(ctx context.Context, date string, attempt int) (RunInfo, error) {
	w, err := sources.DayWindow(date)
	if err != nil {
		return RunInfo{}, fmt.Errorf("niepoprawna data %q: %w", date, err)
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return RunInfo{}, ErrAlreadyRunning
	}
	p.running = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	info := RunInfo{
		RunID:     p.newID(),
		Fecha:     w.Date(),
		Attempt:   attempt,
		Status:    StatusRunning,
		Rows:      map[string]int{},
		StartedAt: p.now(),
	}
	log := p.log.With().Str("run_id", info.RunID).Str("date", info.Fecha).Int("attempt", attempt).Logger()
	log.Info().Msg("przebieg: start")
	p.setLast(info)

	if p.runs != nil {
		if err := p.runs.begin(ctx, info); err != nil {
			log.Warn().Err(err).Msg("etl_runs: nie zapisano startu")
		}
	}

	runErr := p.execute(ctx, log, w, &info)

	info.FinishedAt = p.now()
	if runErr != nil {
		info.Status = StatusError
		info.Error = runErr.Error()
		log.Error().Err(runErr).Str("stage", info.Stage).Msg("przebieg nieudany")
	} else {
		info.Status = StatusDone
		log.Info().
			Int("resumen_diario", info.Loaded.DailyRows).
			Int("analisis_inventario", info.Loaded.InventoryRows).
			Int("resumen_logs", info.Loaded.LogSummaries).
			Dur("took", info.FinishedAt.Sub(info.StartedAt)).
			Msg("przebieg zakończony")
	}
	p.metrics.RunFinished(info.FinishedAt.Sub(info.StartedAt), runErr, info.FinishedAt)

	if p.runs != nil {
		// zapis wyniku także po anulowaniu ctx
		if err := p.runs.finish(context.WithoutCancel(ctx), info); err != nil {
			log.Warn().Err(err).Msg("etl_runs: nie zapisano wyniku")
		}
	}
	p.setLast(info)
	return info, runErr
}

// setLast trzyma kopię: Rows/Files zmieniają się w trakcie przebiegu.
func (p *Pipeline) setLast(info RunInfo) {
	info.Rows = maps.Clone(info.Rows)
	info.Files = slices.Clone(info.Files)
	p.mu.Lock()
	p.last = &info
	p.mu.Unlock()
}

func (p *Pipeline) execute(ctx context.Context, log zerolog.Logger, w sources.Window, info *RunInfo) error {
	if p.opts.CheckConnections && len(p.checks) > 0 {
		if err := p.stage(ctx, log, info, StageCheck, p.checkConnections); err != nil {
			return err
		}
	}

	if err := p.stage(ctx, log, info, StagePrepare, func(context.Context) error {
		return prepareDirs(p.opts.RawDir, p.opts.ExportDir)
	}); err != nil {
		return err
	}

	var in transform.Input
	if err := p.stage(ctx, log, info, StageExtract, func(ctx context.Context) (err error) {
		in, err = p.ext.ExtractAll(ctx, w)
		return err
	}); err != nil {
		return err
	}
	for ds, t := range map[string]int{sources.Ventas: len(in.Ventas), sources.Inventario: len(in.Inventario), sources.Logs: len(in.Logs)} {
		info.Rows[ds] = t
		p.metrics.SetRows(ds, t)
	}

	if p.opts.RawDir != "" {
		if err := p.stage(ctx, log, info, StageStageRaw, func(context.Context) error {
			files, err := ExportRaw(p.opts.RawDir, info.Fecha, in)
			info.Files = append(info.Files, files...)
			return err
		}); err != nil {
			return err
		}
	}

	var out *transform.Output
	if err := p.stage(ctx, log, info, StageTransform, func(ctx context.Context) (err error) {
		out, err = p.tr.TransformAll(ctx, in)
		return err
	}); err != nil {
		return err
	}
	for name, t := range out.Tables() {
		info.Rows[name] = t.Len()
		p.metrics.SetRows(name, t.Len())
	}

	var report quality.Report
	if err := p.stage(ctx, log, info, StageQuality, func(context.Context) error {
		report = quality.Build(info.RunID, info.Fecha, p.now(), out.Tables())
		for _, name := range report.Datasets() {
			q := report.ResumenDatasets[name]
			log.Info().
				Str("dataset", name).
				Int("registros", q.TotalRegistros).
				Int("nulos", q.ValoresNulos).
				Int("duplicados", q.Duplicados).
				Float64("memoria_mb", q.MemoriaMB).
				Msg("calidad")
		}
		return nil
	}); err != nil {
		return err
	}

	if p.opts.ExportDir != "" {
		if err := p.stage(ctx, log, info, StageExport, func(context.Context) error {
			files, err := ExportCSV(p.opts.ExportDir, info.Fecha, out)
			info.Files = append(info.Files, files...)
			return err
		}); err != nil {
			return err
		}
	}

	if err := p.stage(ctx, log, info, StageLoad, func(ctx context.Context) (err error) {
		info.Loaded, err = p.ld.LoadAll(ctx, out, report)
		return err
	}); err != nil {
		return err
	}

	if err := p.stage(ctx, log, info, StageValidate, func(ctx context.Context) error {
		v, err := p.ld.Validate(ctx, w.Start)
		if err != nil {
			return err
		}
		info.Validation = &v
		if v.ResumenRows == 0 {
			log.Warn().Msg("walidacja: brak resumen_ventas_diario dla daty")
		}
		return nil
	}); err != nil {
		return err
	}

	if p.opts.RetentionDays > 0 {
		// sprzątanie nie psuje udanego przebiegu
		_ = p.stage(ctx, log, info, StageCleanup, func(context.Context) error {
			maxAge := time.Duration(p.opts.RetentionDays) * 24 * time.Hour
			for _, dir := range []string{p.opts.RawDir, p.opts.ExportDir} {
				if dir == "" {
					continue
				}
				n, err := Cleanup(dir, maxAge, p.now())
				if err != nil {
					log.Warn().Err(err).Str("dir", dir).Msg("sprzątanie nieudane")
					return err
				}
				if n > 0 {
					log.Info().Str("dir", dir).Int("removed", n).Msg("usunięto stare pliki")
				}
			}
			return nil
		})
	}
	return nil
}

// stage mierzy etap i opakowuje błąd nazwą etapu (errors.Is działa dalej).
func (p *Pipeline) stage(ctx context.Context, log zerolog.Logger, info *RunInfo, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	info.Stage = name
	p.setLast(*info)
	if p.runs != nil {
		if err := p.runs.stage(ctx, info.RunID, name); err != nil {
			log.Debug().Err(err).Str("stage", name).Msg("etl_runs: nie zapisano etapu")
		}
	}

	start := time.Now()
	err := fn(ctx)
	took := time.Since(start)
	p.metrics.ObserveStage(name, took, err)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	log.Debug().Str("stage", name).Dur("took", took).Msg("etap zakończony")
	return nil
}

func (p *Pipeline) checkConnections(ctx context.Context) error {
	names := make([]string, 0, len(p.checks))
	for n := range p.checks {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if err := p.checks[n].Ping(ctx); err != nil {
			return fmt.Errorf("%s: %w", n, err)
		}
		p.log.Debug().Str("target", n).Msg("połączenie OK")
	}
	return nil
}
