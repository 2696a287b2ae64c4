package pipeline

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"github.com/bartek5186/metaltronic-etl/internal/db"
)

// RunStore – księgowanie przebiegów w <schema>.etl_runs.
type RunStore struct {
	h     *db.Handle
	table string
}

func NewRunStore(h *db.Handle, schema string) *RunStore {
	return &RunStore{h: h, table: h.Table(schema, db.TableRuns)}
}

func (s *RunStore) begin(ctx context.Context, info RunInfo) error {
	rec := db.Run{
		RunID:     info.RunID,
		Fecha:     info.Fecha,
		Status:    db.RunRunning,
		Attempt:   info.Attempt,
		StartedAt: info.StartedAt,
	}
	return s.h.DB.WithContext(ctx).Table(s.table).Create(&rec).Error
}

func (s *RunStore) stage(ctx context.Context, runID, stage string) error {
	return s.h.DB.WithContext(ctx).Table(s.table).
		Where("run_id = ?", runID).
		Update("stage", stage).Error
}

func (s *RunStore) finish(ctx context.Context, info RunInfo) error {
	status := db.RunDone
	if info.Status == StatusError {
		status = db.RunError
	}
	return s.h.DB.WithContext(ctx).Table(s.table).
		Where("run_id = ?", info.RunID).
		Updates(map[string]any{
			"status":      status,
			"stage":       info.Stage,
			"last_error":  info.Error,
			"stats":       info.stats(),
			"finished_at": finishedAt(info.FinishedAt),
		}).Error
}

// Last – ostatnie przebiegi, najnowsze pierwsze.
func (s *RunStore) Last(ctx context.Context, limit int) ([]db.Run, error) {
	var out []db.Run
	err := s.h.DB.WithContext(ctx).Table(s.table).
		Order("started_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// LastDone – czy dla daty był już udany przebieg (scheduler nie powtarza).
func (s *RunStore) LastDone(ctx context.Context, fecha string) (bool, error) {
	var n int64
	err := s.h.DB.WithContext(ctx).Table(s.table).
		Where("fecha = ? AND status = ?", fecha, db.RunDone).
		Count(&n).Error
	return n > 0, err
}

func (i RunInfo) stats() datatypes.JSONMap {
	m := datatypes.JSONMap{
		"rows":   i.Rows,
		"loaded": i.Loaded,
	}
	if i.Validation != nil {
		m["validation"] = i.Validation
	}
	if len(i.Files) > 0 {
		m["files"] = i.Files
	}
	return m
}

func finishedAt(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
