// internal/sources/types.go
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/bartek5186/metaltronic-etl/internal/dataset"
	"github.com/bartek5186/metaltronic-etl/internal/db"
)

const DateLayout = "2006-01-02"

// Nazwy zbiorów wejściowych.
const (
	Ventas     = "ventas"
	Inventario = "inventario"
	Logs       = "logs"
)

var ErrUnsupportedDataset = errors.New("dataset not supported by source")

// Window – półotwarty przedział [Start, End) jednego dnia.
type Window struct {
	Start time.Time
	End   time.Time
}

// DayWindow: "2024-01-15" -> [2024-01-15 00:00, 2024-01-16 00:00) UTC.
func DayWindow(date string) (Window, error) {
	d, err := time.ParseInLocation(DateLayout, date, time.UTC)
	if err != nil {
		return Window{}, fmt.Errorf("niepoprawna data %q (oczekiwano YYYY-MM-DD): %w", date, err)
	}
	return Window{Start: d, End: d.AddDate(0, 0, 1)}, nil
}

func (w Window) Date() string { return w.Start.Format(DateLayout) }

type Source interface {
	Name() string
	Fetch(ctx context.Context, ds string, w Window) (dataset.Table, error)
}

// LogFinder – to, czego źródło mongo potrzebuje od magazynu dokumentów.
type LogFinder interface {
	FindByTime(ctx context.Context, coll, field string, start, end time.Time) ([]bson.M, error)
}

// Deps – połączenia współdzielone przez źródła; nil gdy nieskonfigurowane.
type Deps struct {
	DB    *db.Handle
	Mongo LogFinder
}

type Factory func(log zerolog.Logger, deps Deps, raw json.RawMessage) (Source, error)
