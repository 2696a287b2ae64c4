package load

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	conf "github.com/bartek5186/metaltronic-etl/internal/config"
	"github.com/bartek5186/metaltronic-etl/internal/dataset"
	"github.com/bartek5186/metaltronic-etl/internal/db"
	"github.com/bartek5186/metaltronic-etl/internal/mongostore"
	"github.com/bartek5186/metaltronic-etl/internal/quality"
	"github.com/bartek5186/metaltronic-etl/internal/transform"
)

var (
	day = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	now = time.Date(2024, 1, 16, 6, 0, 0, 0, time.UTC)
)

type fakeDocs struct {
	summaries []mongostore.LogSummary
	reports   []quality.Report
	err       error
}

func (f *fakeDocs) ReplaceLogSummaries(_ context.Context, docs []mongostore.LogSummary) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.summaries = docs
	return len(docs), nil
}

func (f *fakeDocs) InsertQualityReport(_ context.Context, r quality.Report) error {
	if f.err != nil {
		return f.err
	}
	f.reports = append(f.reports, r)
	return nil
}

func (f *fakeDocs) CountLogSummaries(_ context.Context, start, end time.Time) (int64, error) {
	var n int64
	for _, s := range f.summaries {
		if !s.Fecha.Before(start) && s.Fecha.Before(end) {
			n++
		}
	}
	return n, f.err
}

func newLoader(t *testing.T, docs DocStore) (*Loader, *db.Handle) {
	t.Helper()
	h, err := db.Open(conf.DatabaseConfig{Dialect: "sqlite-pure"}, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	require.NoError(t, h.Migrate("analytics"))
	return New(zerolog.Nop(), h, "analytics", docs, WithClock(func() time.Time { return now }), WithBatchSize(2)), h
}

func summaryRows() transform.DailySummaryTable {
	return transform.DailySummaryTable{
		{FechaResumen: day, TotalVentas: 600, PromedioTicket: 300, TotalTransacciones: 2, ProductosVendidos: 8,
			ClientesUnicos: 2, CategoriaMasVendida: "Perfiles", VendedorTop: "Ana Torres", ClienteMasFrecuente: "Constructora Andina", FechaProcesamiento: now},
		{FechaResumen: day.AddDate(0, 0, 1), TotalVentas: 10.005, TotalTransacciones: 1, FechaProcesamiento: now},
	}
}

func TestLoadDailySummary_DeleteThenInsert(t *testing.T) {
	l, h := newLoader(t, nil)
	ctx := context.Background()

	n, err := l.LoadDailySummary(ctx, summaryRows())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// drugi raz te same daty: dalej po jednym wierszu na dzień
	_, err = l.LoadDailySummary(ctx, summaryRows()[:1])
	require.NoError(t, err)

	var got []db.ResumenVentasDiario
	require.NoError(t, h.DB.Table(db.TableResumenVentasDiario).Order("fecha_resumen").Find(&got).Error)
	require.Len(t, got, 2)
	assert.Equal(t, "600", got[0].TotalVentas.String())
	assert.Equal(t, "300", got[0].PromedioTicket.String())
	require.NotNil(t, got[0].VendedorTop)
	assert.Equal(t, "Ana Torres", *got[0].VendedorTop)
	assert.Nil(t, got[1].VendedorTop)

	v, err := l.Validate(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.ResumenRows)
}

func TestLoadDailySummary_Empty(t *testing.T) {
	l, _ := newLoader(t, nil)
	n, err := l.LoadDailySummary(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLoadInventoryAnalysis_TruncateAndClamp(t *testing.T) {
	l, h := newLoader(t, nil)
	ctx := context.Background()
	stock := 10.0

	rows := transform.InventoryAnalysisTable{
		{CodigoProducto: "MT-001", NombreProducto: "Perfil", Categoria: "Perfiles", StockActual: &stock,
			CantidadVendida: 5, IngresosProducto: 150, RotacionInventario: 0.5, DiasStock: 60, Performance: transform.PerfMedio},
		{CodigoProducto: "MT-002", CantidadVendida: 0, RotacionInventario: 0, DiasStock: math.Inf(1), Performance: transform.PerfBajo},
	}
	n, err := l.LoadInventoryAnalysis(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// nowy snapshot zastępuje poprzedni
	_, err = l.LoadInventoryAnalysis(ctx, rows[1:])
	require.NoError(t, err)

	var got []db.AnalisisInventario
	require.NoError(t, h.DB.Table(db.TableAnalisisInventario).Find(&got).Error)
	require.Len(t, got, 1)
	assert.Equal(t, "MT-002", got[0].CodigoProducto)
	assert.Equal(t, "999", got[0].DiasStock.String())
	assert.Nil(t, got[0].StockActual)
	assert.True(t, got[0].FechaActualizacion.Equal(now))
}

func TestSummarizeLogs(t *testing.T) {
	raw := dataset.Table{
		{"timestamp": "2024-01-15T08:00:00Z", "evento": "venta_completada", "total": 100.0, "numero_factura": "F-1", "vendedor": "Luis"},
		{"timestamp": "2024-01-15T15:00:00Z", "evento": "venta_completada", "total": "50", "numero_factura": nil, "vendedor": "Ana"},
		{"timestamp": "2024-01-15T16:00:00Z", "evento": "venta_completada", "total": nil, "numero_factura": "F-3", "vendedor": "Luis"},
		{"timestamp": "2024-01-15T20:00:00Z", "evento": "consulta_precio"},
		{"timestamp": "2024-01-14T23:00:00Z", "evento": "venta_completada", "total": 10.0, "numero_factura": "F-0"},
		{"timestamp": "2024-01-15T09:00:00Z"}, // bez evento
	}
	logs, err := transform.ProcessLogs(raw)
	require.NoError(t, err)

	got := SummarizeLogs(logs, now)
	require.Len(t, got, 3)

	assert.True(t, got[0].Fecha.Equal(day.AddDate(0, 0, -1)))
	assert.Equal(t, "consulta_precio", got[1].Evento)
	assert.Equal(t, 0, got[1].NumEventos)
	assert.Equal(t, []string{}, got[1].Vendedores)

	v := got[2]
	assert.Equal(t, "venta_completada", v.Evento)
	assert.InDelta(t, 150.0, v.TotalMonto, 1e-9)
	assert.Equal(t, 2, v.NumEventos)
	assert.Equal(t, []string{"Ana", "Luis"}, v.Vendedores)
	assert.Equal(t, map[string]int{transform.PeriodManana: 1, transform.PeriodTarde: 2}, v.DistribucionPeriodo)
	assert.Equal(t, now, v.FechaProcesamiento)
}

func TestLoadAll(t *testing.T) {
	docs := &fakeDocs{}
	l, _ := newLoader(t, docs)
	ctx := context.Background()

	in := transform.Input{
		Ventas: dataset.Table{
			{"id_transaccion": 1, "numero_factura": "F-1", "fecha_venta": "2024-01-15 09:15:00", "total_factura": 150,
				"codigo_producto": "MT-001", "cantidad": 5, "subtotal": 150},
		},
		Inventario: dataset.Table{{"codigo_producto": "MT-001", "stock_actual": 10, "stock_minimo": 5}},
		Logs:       dataset.Table{{"timestamp": "2024-01-15T10:00:00Z", "evento": "venta_completada", "total": 150}},
	}
	out, err := transform.New(zerolog.Nop()).TransformAll(ctx, in)
	require.NoError(t, err)
	report := quality.Build("run-1", "2024-01-15", now, out.Tables())

	res, err := l.LoadAll(ctx, out, report)
	require.NoError(t, err)
	assert.Equal(t, Result{DailyRows: 1, InventoryRows: 1, LogSummaries: 1}, res)
	require.Len(t, docs.reports, 1)
	assert.Equal(t, "run-1", docs.reports[0].RunID)

	v, err := l.Validate(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, Validation{ResumenRows: 1, LogSummaries: 1}, v)
}

func TestLoadAll_DocStoreErrorIsLoadError(t *testing.T) {
	boom := errors.New("mongo down")
	l, _ := newLoader(t, &fakeDocs{err: boom})

	out, err := transform.New(zerolog.Nop()).TransformAll(context.Background(), transform.Input{
		Logs: dataset.Table{{"timestamp": "2024-01-15T10:00:00Z", "evento": "x"}},
	})
	require.NoError(t, err)

	_, err = l.LoadAll(context.Background(), out, quality.Report{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoad)
	assert.ErrorIs(t, err, boom)
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, mongostore.CollResumenLogs, le.Table)
}

func TestLoadAll_WithoutMongo(t *testing.T) {
	l, _ := newLoader(t, nil)
	out, err := transform.New(zerolog.Nop()).TransformAll(context.Background(), transform.Input{
		Logs: dataset.Table{{"timestamp": "2024-01-15T10:00:00Z", "evento": "x"}},
	})
	require.NoError(t, err)

	res, err := l.LoadAll(context.Background(), out, quality.Report{})
	require.NoError(t, err)
	assert.Zero(t, res.LogSummaries)
}
