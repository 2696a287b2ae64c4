package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bartek5186/metaltronic-etl/internal/dataset"
)

func TestDayPeriod(t *testing.T) {
	want := map[int]string{
		0: PeriodMadrugada, 6: PeriodMadrugada,
		7: PeriodManana, 12: PeriodManana,
		13: PeriodTarde, 18: PeriodTarde,
		19: PeriodNoche, 23: PeriodNoche,
	}
	for h, label := range want {
		assert.Equal(t, label, DayPeriod(h), "hour %d", h)
	}
	for h := 0; h < 24; h++ {
		assert.NotEmpty(t, DayPeriod(h), "hour %d", h)
	}
}

func TestProcessLogs(t *testing.T) {
	raw := dataset.Table{
		{
			"timestamp":      time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC),
			"evento":         "venta_completada",
			"numero_factura": "001-001-000001",
			"total":          504.0,
			"productos":      primitive.A{dataset.Row{"codigo": "MT-001"}, dataset.Row{"codigo": "MT-005"}},
		},
		{
			"timestamp": "2024-01-15T19:05:00Z",
			"evento":    "venta_cancelada",
			"productos": "n/a",
		},
		{
			"timestamp": primitive.NewDateTimeFromTime(time.Date(2024, 1, 16, 6, 0, 0, 0, time.UTC)),
			"evento":    "login",
		},
	}

	out, err := ProcessLogs(raw)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, 8, out[0].Hora)
	assert.Equal(t, PeriodManana, out[0].PeriodoDia)
	assert.Equal(t, "2024-01-15", out[0].Fecha.Format("2006-01-02"))
	require.NotNil(t, out[0].NumProductos)
	assert.Equal(t, 2, *out[0].NumProductos)
	assert.Equal(t, "venta_completada", out[0].Fields["evento"])

	assert.Equal(t, PeriodNoche, out[1].PeriodoDia)
	assert.Equal(t, 0, *out[1].NumProductos)

	assert.Equal(t, PeriodMadrugada, out[2].PeriodoDia)
	assert.Equal(t, 0, *out[2].NumProductos)

	cols := out.Columns()
	assert.Contains(t, cols, "num_productos")
	assert.Contains(t, cols, "evento")
	assert.Equal(t, "periodo_dia", cols[len(cols)-1])
	for _, row := range out.Values() {
		assert.Len(t, row, len(cols))
	}
}

func TestProcessLogs_NoProductsColumn(t *testing.T) {
	out, err := ProcessLogs(dataset.Table{{"timestamp": "2024-01-15 14:20:00", "evento": "x"}})
	require.NoError(t, err)
	assert.Nil(t, out[0].NumProductos)
	assert.Equal(t, PeriodTarde, out[0].PeriodoDia)
	assert.NotContains(t, out.Columns(), "num_productos")
}

func TestProcessLogs_BadTimestamp(t *testing.T) {
	for name, ts := range map[string]any{"malformed": "ayer por la tarde", "missing": nil} {
		t.Run(name, func(t *testing.T) {
			_, err := ProcessLogs(dataset.Table{{"timestamp": ts}})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTransform)
		})
	}
}
