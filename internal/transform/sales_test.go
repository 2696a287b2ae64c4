package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartek5186/metaltronic-etl/internal/dataset"
)

func saleRow(factura string, fecha any, total float64) dataset.Row {
	return dataset.Row{
		"id_transaccion":  1,
		"numero_factura":  factura,
		"fecha_venta":     fecha,
		"nombre_cliente":  "Acerías del Sur",
		"codigo_producto": "MT-001",
		"categoria":       "Tubos",
		"cantidad":        2,
		"precio_unitario": 100.0,
		"descuento":       10.0,
		"subtotal":        180.0,
		"total_factura":   total,
		"metodo_pago":     "Efectivo",
		"vendedor":        "Ana García",
	}
}

func TestCleanSales_DerivedFields(t *testing.T) {
	fecha := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	out, stats, err := CleanSales(dataset.Table{saleRow("001-001-000001", fecha, 504)})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, CleanStats{Input: 1, Dropped: 0, Output: 1}, stats)

	s := out[0]
	require.NotNil(t, s.PrecioConDescuento)
	assert.InDelta(t, 90.0, *s.PrecioConDescuento, 1e-9)
	assert.InDelta(t, 10.0, *s.MargenDescuento, 1e-9)
	assert.InDelta(t, 180.0, *s.ValorTotalProducto, 1e-9)
	assert.Equal(t, PagoInmediato, s.TipoPago)
	assert.Equal(t, SaleGrande, s.CategoriaVenta)
	assert.Equal(t, 2024, s.Anio)
	assert.Equal(t, 1, s.Mes)
	assert.Equal(t, "Monday", s.DiaSemana)
	assert.Equal(t, 1, s.Trimestre)
	assert.Equal(t, "1", s.IDTransaccion)
}

func TestCleanSales_DropsRowsWithoutKeys(t *testing.T) {
	fecha := "2024-01-15"
	raw := dataset.Table{
		saleRow("F-1", fecha, 100),
		saleRow("", fecha, 100),
		saleRow("F-3", nil, 100),
		{"numero_factura": "F-4"}, // bez fecha_venta w ogóle
	}
	raw[1]["numero_factura"] = nil

	out, stats, err := CleanSales(raw)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Input)
	assert.Equal(t, 3, stats.Dropped)
	require.Len(t, out, 1)
	assert.Equal(t, "F-1", out[0].NumeroFactura)
}

func TestCleanSales_CoercionFailuresBecomeMissing(t *testing.T) {
	r := saleRow("F-1", "2024-03-02 08:00:00", 100)
	r["cantidad"] = "abc"
	r["descuento"] = "n/a"
	r["subtotal"] = ""
	r["precio_unitario"] = "12,5"

	out, _, err := CleanSales(dataset.Table{r})
	require.NoError(t, err)
	s := out[0]
	assert.Nil(t, s.Cantidad)
	assert.Nil(t, s.Subtotal)
	assert.Equal(t, 0.0, s.Descuento)
	require.NotNil(t, s.PrecioUnitario)
	assert.InDelta(t, 12.5, *s.PrecioUnitario, 1e-9)
	assert.InDelta(t, 12.5, *s.PrecioConDescuento, 1e-9)
	assert.Nil(t, s.ValorTotalProducto)
	assert.Equal(t, 3, s.Mes)
	assert.Equal(t, 1, s.Trimestre)
	assert.Equal(t, "Saturday", s.DiaSemana)
}

func TestCleanSales_NegativeQuantityAndPriceBecomeMissing(t *testing.T) {
	r := saleRow("F-1", "2024-03-02 08:00:00", 100)
	r["cantidad"] = -5
	r["precio_unitario"] = "-10"

	out, stats, err := CleanSales(dataset.Table{r})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Zero(t, stats.Dropped)
	s := out[0]
	assert.Nil(t, s.Cantidad)
	assert.Nil(t, s.PrecioUnitario)
	assert.Nil(t, s.PrecioConDescuento)
	assert.Nil(t, s.MargenDescuento)
	assert.Nil(t, s.ValorTotalProducto)

	daily := AggregateDaily(out, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC))
	require.Len(t, daily, 1)
	assert.Equal(t, 0.0, daily[0].ProductosVendidos)
}

func TestCleanSales_Errors(t *testing.T) {
	t.Run("unparseable fecha_venta", func(t *testing.T) {
		_, _, err := CleanSales(dataset.Table{saleRow("F-1", "not-a-date", 10)})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCleaning)
	})
	t.Run("missing column", func(t *testing.T) {
		_, _, err := CleanSales(dataset.Table{{"fecha_venta": "2024-01-01", "total_factura": 1}})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCleaning)
		assert.Contains(t, err.Error(), "numero_factura")
	})
	t.Run("empty input", func(t *testing.T) {
		out, stats, err := CleanSales(nil)
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.Zero(t, stats.Input)
	})
}

func TestPaymentType(t *testing.T) {
	tests := map[string]string{
		"Efectivo":      PagoInmediato,
		"Transferencia": PagoInmediato,
		"Cheque":        PagoDiferido,
		"Crédito":       PagoDiferido,
		"Bitcoin":       PagoOtro,
		"":              PagoOtro,
	}
	for in, want := range tests {
		assert.Equal(t, want, PaymentType(in), in)
	}
}

func TestSaleSize(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	tests := []struct {
		name  string
		total *float64
		want  string
	}{
		{"missing", nil, ""},
		{"zero is out of range", f(0), ""},
		{"negative", f(-5), ""},
		{"small", f(0.01), SalePequena},
		{"upper edge inclusive", f(200), SalePequena},
		{"just above 200", f(200.01), SaleMediana},
		{"500", f(500), SaleMediana},
		{"1000", f(1000), SaleGrande},
		{"above 1000", f(1400.9), SaleMuyGrande},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SaleSize(tt.total))
		})
	}
}
