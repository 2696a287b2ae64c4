package transform

import (
	"fmt"
	"sort"
	"time"

	"github.com/bartek5186/metaltronic-etl/internal/dataset"
)

// LogEvent – zdarzenie z logs_ventas z polami pochodnymi. Fields to
// surowy rekord (przepuszczany dalej bez zmian).
type LogEvent struct {
	Fields       dataset.Row
	Timestamp    time.Time
	Fecha        time.Time
	Hora         int
	NumProductos *int
	PeriodoDia   string
}

// derived kolumny nadpisują surowe o tej samej nazwie
var logDerived = map[string]struct{}{
	"timestamp": {}, "fecha": {}, "hora": {}, "num_productos": {}, "periodo_dia": {},
}

// ProcessLogs parsuje timestamp, wylicza fecha/hora/periodo_dia oraz
// num_productos, jeśli zbiór ma pole productos. Brak lub zły timestamp
// to ErrTransform.
func ProcessLogs(raw dataset.Table) (LogEventTable, error) {
	if raw.Empty() {
		return LogEventTable{}, nil
	}
	withProducts := raw.HasColumn("productos")

	out := make(LogEventTable, 0, len(raw))
	for i, r := range raw {
		ts, err := dataset.Time(r["timestamp"])
		if err != nil {
			return nil, fmt.Errorf("%w: logs row %d: timestamp: %v", ErrTransform, i, err)
		}
		ev := LogEvent{
			Fields:     r.Clone(),
			Timestamp:  ts,
			Fecha:      dataset.Date(ts),
			Hora:       ts.Hour(),
			PeriodoDia: DayPeriod(ts.Hour()),
		}
		if withProducts {
			n, _ := dataset.Len(r["productos"])
			ev.NumProductos = &n
		}
		out = append(out, ev)
	}
	return out, nil
}

// LogEventTable – logs_processed.
type LogEventTable []LogEvent

func (t LogEventTable) Len() int { return len(t) }

func (t LogEventTable) rawColumns() []string {
	seen := map[string]struct{}{}
	for _, ev := range t {
		for k := range ev.Fields {
			if _, derived := logDerived[k]; !derived {
				seen[k] = struct{}{}
			}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func (t LogEventTable) hasProducts() bool {
	return len(t) > 0 && t[0].NumProductos != nil
}

func (t LogEventTable) Columns() []string {
	cols := append(t.rawColumns(), "timestamp", "fecha", "hora")
	if t.hasProducts() {
		cols = append(cols, "num_productos")
	}
	return append(cols, "periodo_dia")
}

func (t LogEventTable) Values() [][]any {
	raw := t.rawColumns()
	withProducts := t.hasProducts()
	out := make([][]any, 0, len(t))
	for _, ev := range t {
		row := make([]any, 0, len(raw)+5)
		for _, c := range raw {
			v := ev.Fields[c]
			if dataset.Missing(v) {
				v = nil
			}
			row = append(row, v)
		}
		row = append(row, ev.Timestamp, ev.Fecha, ev.Hora)
		if withProducts {
			row = append(row, *ev.NumProductos)
		}
		out = append(out, append(row, ev.PeriodoDia))
	}
	return out
}
