// Package extract pobiera zbiory wejściowe przebiegu z zarejestrowanych źródeł.
package extract

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	conf "github.com/bartek5186/metaltronic-etl/internal/config"
	"github.com/bartek5186/metaltronic-etl/internal/dataset"
	"github.com/bartek5186/metaltronic-etl/internal/sources"
	_ "github.com/bartek5186/metaltronic-etl/internal/sources/csvfile" // rejestracja
	_ "github.com/bartek5186/metaltronic-etl/internal/sources/mongosource"
	_ "github.com/bartek5186/metaltronic-etl/internal/sources/sqlsource"
	"github.com/bartek5186/metaltronic-etl/internal/transform"
)

var ErrExtraction = errors.New("extraction error")

type ExtractionError struct {
	Dataset string
	Source  string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s (source %s): %v", e.Dataset, e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

type Extractor struct {
	log      zerolog.Logger
	bindings map[string]sources.Source // zbiór -> źródło
}

// New buduje źródła z configa: dla każdego zbioru fabryka z rejestru
// dostaje surowy JSON swojego źródła. Jedna instancja na nazwę źródła.
func New(log zerolog.Logger, cfg *conf.Config, deps sources.Deps) (*Extractor, error) {
	log = log.With().Str("component", "extract").Logger()
	built := map[string]sources.Source{}
	bindings := map[string]sources.Source{}

	names := make([]string, 0, len(cfg.Datasets))
	for ds := range cfg.Datasets {
		names = append(names, ds)
	}
	sort.Strings(names)

	for _, ds := range names {
		srcName := cfg.Datasets[ds]
		src, ok := built[srcName]
		if !ok {
			f, found := sources.Get(srcName)
			if !found {
				return nil, fmt.Errorf("zbiór %s: brak fabryki źródła %q", ds, srcName)
			}
			var err error
			src, err = f(log.With().Str("source", srcName).Logger(), deps, cfg.Sources[srcName])
			if err != nil {
				return nil, fmt.Errorf("zbiór %s: źródło %s: %w", ds, srcName, err)
			}
			built[srcName] = src
		}
		bindings[ds] = src
		log.Info().Str("dataset", ds).Str("source", srcName).Msg("źródło przypięte")
	}
	return &Extractor{log: log, bindings: bindings}, nil
}

// NewWithSources – bez rejestru, np. w testach.
func NewWithSources(log zerolog.Logger, bindings map[string]sources.Source) *Extractor {
	return &Extractor{log: log, bindings: bindings}
}

// Extract jednego zbioru. Zbiór bez źródła = pusty.
func (e *Extractor) Extract(ctx context.Context, ds string, w sources.Window) (dataset.Table, error) {
	src, ok := e.bindings[ds]
	if !ok {
		e.log.Warn().Str("dataset", ds).Msg("brak źródła dla zbioru, pomijam")
		return dataset.Table{}, nil
	}
	t, err := src.Fetch(ctx, ds, w)
	if err != nil {
		return nil, &ExtractionError{Dataset: ds, Source: src.Name(), Err: err}
	}
	e.log.Info().Str("dataset", ds).Str("source", src.Name()).Int("rows", len(t)).Str("date", w.Date()).Msg("wyekstrahowano")
	return t, nil
}

// ExtractAll pobiera ventas, inventario i logs równolegle. Pierwszy błąd
// anuluje pozostałe pobrania.
func (e *Extractor) ExtractAll(ctx context.Context, w sources.Window) (transform.Input, error) {
	var in transform.Input
	g, gctx := errgroup.WithContext(ctx)

	targets := []struct {
		ds  string
		dst *dataset.Table
	}{
		{sources.Ventas, &in.Ventas},
		{sources.Inventario, &in.Inventario},
		{sources.Logs, &in.Logs},
	}
	for _, tg := range targets {
		tg := tg
		g.Go(func() error {
			t, err := e.Extract(gctx, tg.ds, w)
			if err != nil {
				return err
			}
			*tg.dst = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return transform.Input{}, err
	}
	return in, nil
}
