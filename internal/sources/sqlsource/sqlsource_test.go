package sqlsource

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	conf "github.com/bartek5186/metaltronic-etl/internal/config"
	"github.com/bartek5186/metaltronic-etl/internal/dataset"
	"github.com/bartek5186/metaltronic-etl/internal/db"
	"github.com/bartek5186/metaltronic-etl/internal/sources"
)

var day = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func seeded(t *testing.T) sources.Source {
	t.Helper()
	h, err := db.Open(conf.DatabaseConfig{Dialect: "sqlite-pure"}, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	require.NoError(t, h.MigrateSources("ventas", "inventario"))
	require.NoError(t, h.SeedDemo("ventas", "inventario", day))

	f, ok := sources.Get("sql")
	require.True(t, ok)
	src, err := f(zerolog.Nop(), sources.Deps{DB: h}, json.RawMessage(`{"sales_schema":"ventas","inventory_schema":"inventario"}`))
	require.NoError(t, err)
	return src
}

func TestFetchVentas_Window(t *testing.T) {
	src := seeded(t)
	w, err := sources.DayWindow("2024-01-15")
	require.NoError(t, err)

	rows, err := src.Fetch(context.Background(), sources.Ventas, w)
	require.NoError(t, err)
	// transakcja z 16.01 poza oknem
	require.Len(t, rows, 3)

	var ids []int64
	for _, r := range rows {
		id, ok := dataset.Int64(r["id_transaccion"])
		require.True(t, ok)
		ids = append(ids, id)
	}
	assert.Equal(t, []int64{1, 2, 3}, ids)

	first := rows[0]
	assert.Equal(t, "F-0001", dataset.String(first["numero_factura"]))
	assert.Equal(t, "Constructora Andina", dataset.String(first["nombre_cliente"]))
	assert.Equal(t, "MT-001", dataset.String(first["codigo_producto"]))
	total, ok := dataset.Float(first["total_factura"])
	require.True(t, ok)
	assert.InDelta(t, 150.0, total, 1e-9)
	ts, err := dataset.Time(first["fecha_venta"])
	require.NoError(t, err)
	assert.True(t, ts.Equal(day.Add(9*time.Hour+15*time.Minute)), ts)

	assert.True(t, dataset.Missing(rows[2]["numero_factura"]))
}

func TestFetchInventario_ActiveWithStockLevel(t *testing.T) {
	src := seeded(t)
	rows, err := src.Fetch(context.Background(), sources.Inventario, sources.Window{})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// ORDER BY categoria, codigo_producto
	var codes, levels []string
	for _, r := range rows {
		codes = append(codes, dataset.String(r["codigo_producto"]))
		levels = append(levels, dataset.String(r["nivel_stock"]))
	}
	assert.Equal(t, []string{"MT-002", "MT-001", "MT-004"}, codes)
	assert.Equal(t, []string{"BAJO", "MEDIO", "ALTO"}, levels)

	// decimal(8,2) z ułamkiem
	peso, ok := dataset.Float(rows[1]["peso_kg"])
	require.True(t, ok)
	assert.InDelta(t, 12.5, peso, 1e-9)
	precio, ok := dataset.Float(rows[2]["precio_unitario"])
	require.True(t, ok)
	assert.InDelta(t, 0.5, precio, 1e-9)
}

func TestFetchVentas_FractionalPrice(t *testing.T) {
	src := seeded(t)
	w, err := sources.DayWindow("2024-01-16")
	require.NoError(t, err)

	rows, err := src.Fetch(context.Background(), sources.Ventas, w)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "MT-004", dataset.String(rows[0]["codigo_producto"]))
	precio, ok := dataset.Float(rows[0]["precio_unitario"])
	require.True(t, ok)
	assert.InDelta(t, 0.5, precio, 1e-9)
	qty, ok := dataset.Float(rows[0]["cantidad"])
	require.True(t, ok)
	assert.InDelta(t, 2400.0, qty, 1e-9)
}

func TestFetch_UnsupportedDataset(t *testing.T) {
	src := seeded(t)
	_, err := src.Fetch(context.Background(), sources.Logs, sources.Window{})
	assert.ErrorIs(t, err, sources.ErrUnsupportedDataset)
}

func TestNew_RequiresDB(t *testing.T) {
	_, err := New(zerolog.Nop(), sources.Deps{}, nil)
	assert.Error(t, err)
}
