// Package mongosource czyta logi sprzedaży z MongoDB.
package mongosource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/bartek5186/metaltronic-etl/internal/dataset"
	"github.com/bartek5186/metaltronic-etl/internal/sources"
)

type Config struct {
	Collection string `json:"collection"` // domyślnie logs_ventas
	TimeField  string `json:"time_field"` // domyślnie timestamp
}

type Mongo struct {
	log   zerolog.Logger
	cfg   Config
	store sources.LogFinder
}

func init() {
	sources.Register("mongo", New)
}

func New(log zerolog.Logger, deps sources.Deps, raw json.RawMessage) (sources.Source, error) {
	if deps.Mongo == nil {
		return nil, errors.New("mongo: brak połączenia z MongoDB")
	}
	cfg := Config{Collection: "logs_ventas", TimeField: "timestamp"}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("mongo: config: %w", err)
		}
	}
	if cfg.Collection == "" {
		cfg.Collection = "logs_ventas"
	}
	if cfg.TimeField == "" {
		cfg.TimeField = "timestamp"
	}
	return &Mongo{log: log, cfg: cfg, store: deps.Mongo}, nil
}

func (m *Mongo) Name() string { return "mongo" }

func (m *Mongo) Fetch(ctx context.Context, ds string, w sources.Window) (dataset.Table, error) {
	if ds != sources.Logs {
		return nil, fmt.Errorf("mongo: %s: %w", ds, sources.ErrUnsupportedDataset)
	}
	docs, err := m.store.FindByTime(ctx, m.cfg.Collection, m.cfg.TimeField, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("mongo: %w", err)
	}
	if len(docs) == 0 {
		m.log.Info().Str("from", w.Start.Format(sources.DateLayout)).Msg("brak logów w oknie")
		return dataset.Table{}, nil
	}
	out := make(dataset.Table, 0, len(docs))
	for _, d := range docs {
		out = append(out, Flatten(d))
	}
	return out, nil
}

// Flatten spłaszcza zagnieżdżone dokumenty do kluczy z kropką
// (metadatos.sucursal). Tablice zostają bez zmian.
func Flatten(doc bson.M) dataset.Row {
	out := dataset.Row{}
	flattenInto(out, "", doc)
	return out
}

func flattenInto(out dataset.Row, prefix string, doc map[string]any) {
	for k, v := range doc {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch x := v.(type) {
		case bson.M:
			flattenInto(out, key, x)
		case map[string]any:
			flattenInto(out, key, x)
		case bson.D:
			m := make(map[string]any, len(x))
			for _, e := range x {
				m[e.Key] = e.Value
			}
			flattenInto(out, key, m)
		default:
			out[key] = v
		}
	}
}
