// Package scheduler uruchamia przebieg raz dziennie o run_hour dla
// poprzedniego dnia, z ponowieniami po błędzie.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	conf "github.com/bartek5186/metaltronic-etl/internal/config"
	"github.com/bartek5186/metaltronic-etl/internal/pipeline"
	"github.com/bartek5186/metaltronic-etl/internal/sources"
)

type Runner interface {
	RunAttempt(ctx context.Context, date string, attempt int) (pipeline.RunInfo, error)
}

// DoneFunc mówi, czy data ma już udany przebieg (np. z etl_runs po restarcie).
type DoneFunc func(ctx context.Context, date string) (bool, error)

type Scheduler struct {
	log     zerolog.Logger
	run     Runner
	done    DoneFunc
	mu      sync.Mutex
	cfg     *conf.Config
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	last    string // ostatnia data obsłużona przez harmonogram
	now     func() time.Time
}

func New(log zerolog.Logger, cfg *conf.Config, run Runner, done DoneFunc) *Scheduler {
	return &Scheduler{
		log:  log.With().Str("component", "scheduler").Logger(),
		cfg:  cfg,
		run:  run,
		done: done,
		now:  time.Now,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	s.log.Info().Int("run_hour", s.runHour()).Dur("check", s.interval()).Msg("scheduler: start")
	go s.loop(ctx)
	return nil
}

// Stop przerywa też trwający przebieg (ctx) i czeka na koniec pętli.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.log.Info().Msg("scheduler: stop")
}

// UpdateConfig – pętla czyta godzinę, interwał i ponowienia przy każdym ticku.
func (s *Scheduler) UpdateConfig(cfg *conf.Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	s.log.Info().Int("run_hour", s.runHour()).Msg("scheduler: config zaktualizowany")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun – najbliższe uruchomienie wg run_hour (czas lokalny).
func (s *Scheduler) NextRun() time.Time {
	return NextRun(s.now(), s.runHour())
}

func (s *Scheduler) interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg != nil && s.cfg.CheckIntervalSeconds > 0 {
		return time.Duration(s.cfg.CheckIntervalSeconds) * time.Second
	}
	return time.Minute
}

func (s *Scheduler) runHour() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg == nil {
		return 6
	}
	return s.cfg.RunHour
}

func (s *Scheduler) retryPolicy() (int, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg == nil {
		return 0, 0
	}
	return s.cfg.Retries, time.Duration(s.cfg.RetryDelaySeconds) * time.Second
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	// pierwszy strzał od razu (nadrabia zaległy dzień po starcie)
	s.tick(ctx)

	current := s.interval()
	ticker := time.NewTicker(current)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler: koniec pętli")
			return
		case <-ticker.C:
			if d := s.interval(); d != current {
				current = d
				ticker.Reset(d)
			}
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()

	date, ok := DueDate(s.now(), s.runHour(), last)
	if !ok {
		return
	}
	if s.done != nil {
		done, err := s.done(ctx, date)
		if err != nil {
			s.log.Warn().Err(err).Str("date", date).Msg("scheduler: nie sprawdzono etl_runs")
		}
		if done {
			s.markDone(date)
			s.log.Debug().Str("date", date).Msg("scheduler: data już przetworzona")
			return
		}
	}
	if s.runWithRetries(ctx, date) {
		s.markDone(date)
	}
}

func (s *Scheduler) markDone(date string) {
	s.mu.Lock()
	s.last = date
	s.mu.Unlock()
}

// runWithRetries: true gdy data jest obsłużona (sukces albo wyczerpane
// próby), false gdy trzeba spróbować przy następnym ticku.
func (s *Scheduler) runWithRetries(ctx context.Context, date string) bool {
	retries, delay := s.retryPolicy()
	for attempt := 1; attempt <= retries+1; attempt++ {
		_, err := s.run.RunAttempt(ctx, date, attempt)
		switch {
		case err == nil:
			return true
		case errors.Is(err, pipeline.ErrAlreadyRunning):
			s.log.Info().Str("date", date).Msg("scheduler: przebieg już trwa, spróbuję przy następnym ticku")
			return false
		case ctx.Err() != nil:
			return false
		}
		if attempt > retries {
			s.log.Error().Err(err).Str("date", date).Int("attempts", attempt).Msg("scheduler: próby wyczerpane")
			return true
		}
		s.log.Warn().Err(err).Str("date", date).Int("attempt", attempt).Dur("retry_in", delay).Msg("scheduler: ponawiam")
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
	}
	return true
}

// DueDate: po run_hour należy przetworzyć wczorajszą datę, o ile nie
// została już obsłużona.
func DueDate(now time.Time, runHour int, last string) (string, bool) {
	if now.Hour() < runHour {
		return "", false
	}
	date := now.AddDate(0, 0, -1).Format(sources.DateLayout)
	if date == last {
		return "", false
	}
	return date, true
}

func NextRun(now time.Time, runHour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), runHour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
