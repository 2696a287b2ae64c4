package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	conf "github.com/bartek5186/metaltronic-etl/internal/config"
	"github.com/bartek5186/metaltronic-etl/internal/pipeline"
)

type fakeRunner struct {
	mu       sync.Mutex
	errs     []error // kolejne wyniki; po wyczerpaniu nil
	attempts []int
	dates    []string
}

func (f *fakeRunner) RunAttempt(_ context.Context, date string, attempt int) (pipeline.RunInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, attempt)
	f.dates = append(f.dates, date)
	if len(f.errs) == 0 {
		return pipeline.RunInfo{Fecha: date, Status: pipeline.StatusDone}, nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return pipeline.RunInfo{}, err
}

func (f *fakeRunner) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attempts)
}

func newTest(run Runner, done DoneFunc, at time.Time) *Scheduler {
	cfg := conf.Default()
	cfg.RunHour = 6
	cfg.Retries = 2
	cfg.RetryDelaySeconds = 0
	s := New(zerolog.Nop(), cfg, run, done)
	s.now = func() time.Time { return at }
	return s
}

func TestDueDate(t *testing.T) {
	loc := time.FixedZone("ECT", -5*3600)
	cases := []struct {
		name string
		now  time.Time
		last string
		want string
		ok   bool
	}{
		{"before run hour", time.Date(2024, 1, 16, 5, 59, 0, 0, loc), "", "", false},
		{"at run hour", time.Date(2024, 1, 16, 6, 0, 0, 0, loc), "", "2024-01-15", true},
		{"catch up later in the day", time.Date(2024, 1, 16, 22, 0, 0, 0, loc), "2024-01-14", "2024-01-15", true},
		{"already handled", time.Date(2024, 1, 16, 7, 0, 0, 0, loc), "2024-01-15", "", false},
		{"month boundary", time.Date(2024, 3, 1, 6, 0, 0, 0, loc), "", "2024-02-29", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := DueDate(c.now, 6, c.last)
			assert.Equal(t, c.ok, ok)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestNextRun(t *testing.T) {
	now := time.Date(2024, 1, 16, 5, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 16, 6, 0, 0, 0, time.UTC), NextRun(now, 6))
	assert.Equal(t, time.Date(2024, 1, 17, 6, 0, 0, 0, time.UTC), NextRun(now.Add(time.Hour), 6))
}

func TestTick_RetriesThenSucceeds(t *testing.T) {
	run := &fakeRunner{errs: []error{errors.New("db down"), errors.New("db down")}}
	s := newTest(run, nil, time.Date(2024, 1, 16, 6, 30, 0, 0, time.UTC))

	s.tick(context.Background())
	assert.Equal(t, []int{1, 2, 3}, run.attempts)
	assert.Equal(t, "2024-01-15", s.last)

	// ten sam dzień już obsłużony
	s.tick(context.Background())
	assert.Equal(t, 3, run.calls())
}

func TestTick_GivesUpAfterRetries(t *testing.T) {
	boom := errors.New("boom")
	run := &fakeRunner{errs: []error{boom, boom, boom, boom}}
	s := newTest(run, nil, time.Date(2024, 1, 16, 6, 30, 0, 0, time.UTC))

	s.tick(context.Background())
	assert.Equal(t, []int{1, 2, 3}, run.attempts)
	// data odhaczona, bez zapętlenia do jutra
	assert.Equal(t, "2024-01-15", s.last)
}

func TestTick_AlreadyRunningRetriesNextTick(t *testing.T) {
	run := &fakeRunner{errs: []error{pipeline.ErrAlreadyRunning}}
	s := newTest(run, nil, time.Date(2024, 1, 16, 6, 30, 0, 0, time.UTC))

	s.tick(context.Background())
	assert.Empty(t, s.last)
	s.tick(context.Background())
	assert.Equal(t, "2024-01-15", s.last)
	assert.Equal(t, []int{1, 1}, run.attempts)
}

func TestTick_SkipsDateAlreadyDone(t *testing.T) {
	run := &fakeRunner{}
	var asked []string
	done := func(_ context.Context, date string) (bool, error) {
		asked = append(asked, date)
		return true, nil
	}
	s := newTest(run, done, time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC))

	s.tick(context.Background())
	assert.Equal(t, []string{"2024-01-15"}, asked)
	assert.Zero(t, run.calls())
	assert.Equal(t, "2024-01-15", s.last)
}

func TestStartStop(t *testing.T) {
	run := &fakeRunner{}
	s := newTest(run, nil, time.Date(2024, 1, 16, 6, 30, 0, 0, time.UTC))

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	// pierwszy tick rusza od razu
	assert.Eventually(t, func() bool { return run.calls() == 1 }, time.Second, 10*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()

	cfg := conf.Default()
	cfg.RunHour = 23
	s.UpdateConfig(cfg)
	assert.Equal(t, 23, s.runHour())
}
