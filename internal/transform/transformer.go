// Package transform to silnik transformacji: czyszczenie ventas, resumen
// dzienny, analiza rotacji inventario i periodyzacja logów.
package transform

import (
	"context"
	"time"

	"github.com/bartek5186/metaltronic-etl/internal/dataset"
	"github.com/rs/zerolog"
)

// Nazwy zbiorów wejściowych i wyjściowych (klucze słownika danych).
const (
	InVentas     = "ventas"
	InInventario = "inventario"
	InLogs       = "logs"

	OutVentasClean        = "ventas_clean"
	OutResumenDiario      = "resumen_diario"
	OutAnalisisInventario = "analisis_inventario"
	OutLogsProcessed      = "logs_processed"
)

var outputOrder = []string{OutVentasClean, OutResumenDiario, OutAnalisisInventario, OutLogsProcessed}

// Input – surowe zbiory; nil/pusty = brak.
type Input struct {
	Ventas     dataset.Table
	Inventario dataset.Table
	Logs       dataset.Table
}

// Output – wyniki etapów, które faktycznie się wykonały.
type Output struct {
	VentasClean        CleanSaleTable
	ResumenDiario      DailySummaryTable
	AnalisisInventario InventoryAnalysisTable
	LogsProcessed      LogEventTable

	CleanStats CleanStats
	// Skipped: nazwa wyniku -> powód (ErrEmptyInput)
	Skipped map[string]error

	produced []string
}

func (o *Output) mark(name string) { o.produced = append(o.produced, name) }

// Has mówi, czy wynik o tej nazwie został wyprodukowany.
func (o *Output) Has(name string) bool {
	for _, n := range o.produced {
		if n == name {
			return true
		}
	}
	return false
}

// Names – wyprodukowane wyniki w kolejności wykonania.
func (o *Output) Names() []string {
	return append([]string(nil), o.produced...)
}

// Tables – słownik wyników (tylko wyprodukowane).
func (o *Output) Tables() map[string]Tabular {
	out := make(map[string]Tabular, len(o.produced))
	for _, n := range o.produced {
		switch n {
		case OutVentasClean:
			out[n] = o.VentasClean
		case OutResumenDiario:
			out[n] = o.ResumenDiario
		case OutAnalisisInventario:
			out[n] = o.AnalisisInventario
		case OutLogsProcessed:
			out[n] = o.LogsProcessed
		}
	}
	return out
}

// Transformer spina etapy; logger i zegar wstrzykiwane.
type Transformer struct {
	log zerolog.Logger
	now func() time.Time
}

type Option func(*Transformer)

// WithClock podmienia zegar (znacznik fecha_procesamiento).
func WithClock(now func() time.Time) Option {
	return func(t *Transformer) { t.now = now }
}

func New(log zerolog.Logger, opts ...Option) *Transformer {
	t := &Transformer{
		log: log.With().Str("component", "transform").Logger(),
		now: time.Now,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Transformer) CleanSales(raw dataset.Table) (CleanSaleTable, CleanStats, error) {
	t.log.Info().Int("rows", len(raw)).Msg("czyszczenie ventas: start")
	out, stats, err := CleanSales(raw)
	if err != nil {
		t.log.Error().Err(err).Msg("czyszczenie ventas nieudane")
		return nil, stats, &StageError{Stage: "clean_sales", Dataset: InVentas, Err: err}
	}
	if stats.Dropped > 0 {
		t.log.Warn().Int("dropped", stats.Dropped).
			Msg("odrzucono wiersze bez numero_factura/fecha_venta")
	}
	t.log.Info().Int("rows", stats.Output).Msg("ventas wyczyszczone")
	return out, stats, nil
}

func (t *Transformer) AggregateDaily(sales CleanSaleTable) DailySummaryTable {
	if len(sales) == 0 {
		t.log.Warn().Msg("resumen diario: ventas puste")
	}
	out := AggregateDaily(sales, t.now())
	t.log.Info().Int("days", len(out)).Msg("resumen diario utworzony")
	return out
}

func (t *Transformer) AnalyzeInventory(inv dataset.Table, sales CleanSaleTable) (InventoryAnalysisTable, error) {
	if inv.Empty() || len(sales) == 0 {
		t.log.Warn().Int("inventario", len(inv)).Int("ventas", len(sales)).
			Msg("analiza inventario: brak jednej ze stron, pusty wynik")
	}
	out, dups, err := AnalyzeInventory(inv, sales)
	if err != nil {
		t.log.Error().Err(err).Msg("analiza inventario nieudana")
		return nil, &StageError{Stage: "analyze_inventory", Dataset: InInventario, Err: err}
	}
	if len(dups) > 0 {
		t.log.Warn().Strs("codigo_producto", dups).Msg("zduplikowane produkty w inventario – zostaje pierwszy")
	}
	t.log.Info().Int("products", len(out)).Msg("analiza inventario zakończona")
	return out, nil
}

func (t *Transformer) ProcessLogs(raw dataset.Table) (LogEventTable, error) {
	out, err := ProcessLogs(raw)
	if err != nil {
		t.log.Error().Err(err).Msg("przetwarzanie logów nieudane")
		return nil, &StageError{Stage: "process_logs", Dataset: InLogs, Err: err}
	}
	t.log.Info().Int("rows", len(out)).Msg("logi przetworzone")
	return out, nil
}

// TransformAll uruchamia etapy zależnie od tego, które zbiory są obecne
// i niepuste. Brak opcjonalnego zbioru to nie błąd; błąd etapu, który
// się wykonał, przerywa całość.
func (t *Transformer) TransformAll(ctx context.Context, in Input) (*Output, error) {
	t.log.Info().
		Int(InVentas, len(in.Ventas)).
		Int(InInventario, len(in.Inventario)).
		Int(InLogs, len(in.Logs)).
		Msg("transformacja: start")

	out := &Output{Skipped: map[string]error{}}

	if !in.Ventas.Empty() {
		clean, stats, err := t.CleanSales(in.Ventas)
		if err != nil {
			return nil, err
		}
		out.VentasClean, out.CleanStats = clean, stats
		out.mark(OutVentasClean)

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out.ResumenDiario = t.AggregateDaily(clean)
		out.mark(OutResumenDiario)

		if !in.Inventario.Empty() {
			analysis, err := t.AnalyzeInventory(in.Inventario, clean)
			if err != nil {
				return nil, err
			}
			out.AnalisisInventario = analysis
			out.mark(OutAnalisisInventario)
		} else {
			out.Skipped[OutAnalisisInventario] = ErrEmptyInput
		}
	} else {
		for _, n := range []string{OutVentasClean, OutResumenDiario, OutAnalisisInventario} {
			out.Skipped[n] = ErrEmptyInput
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !in.Logs.Empty() {
		logs, err := t.ProcessLogs(in.Logs)
		if err != nil {
			return nil, err
		}
		out.LogsProcessed = logs
		out.mark(OutLogsProcessed)
	} else {
		out.Skipped[OutLogsProcessed] = ErrEmptyInput
	}

	for _, name := range outputOrder {
		if _, ok := out.Skipped[name]; !ok {
			continue
		}
		t.log.Warn().Str("output", name).Msg("etap pominięty: brak danych wejściowych")
	}
	t.log.Info().Strs("outputs", out.Names()).Msg("transformacja zakończona")
	return out, nil
}
