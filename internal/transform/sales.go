package transform

import (
	"fmt"
	"time"

	"github.com/bartek5186/metaltronic-etl/internal/dataset"
)

// CleanSale – wiersz ventas po czyszczeniu i wzbogaceniu.
type CleanSale struct {
	IDTransaccion  string
	NumeroFactura  string
	FechaVenta     time.Time
	NombreCliente  string
	Ciudad         string
	Provincia      string
	CodigoProducto string
	NombreProducto string
	Categoria      string
	Material       string
	Cantidad       *float64
	PrecioUnitario *float64
	Descuento      float64
	Subtotal       *float64
	TotalFactura   *float64
	MetodoPago     string
	Vendedor       string
	Sucursal       string

	// pola wyliczane
	PrecioConDescuento *float64
	MargenDescuento    *float64
	ValorTotalProducto *float64
	TipoPago           string
	CategoriaVenta     string
	Anio               int
	Mes                int
	DiaSemana          string
	Trimestre          int
}

// CleanStats – ile wierszy weszło, ile odpadło.
type CleanStats struct {
	Input   int
	Dropped int
	Output  int
}

// CleanSales waliduje i wzbogaca surowe ventas. Wiersze bez numero_factura
// lub fecha_venta są odrzucane (liczone w CleanStats); nieparsowalna
// fecha_venta to ErrCleaning.
func CleanSales(raw dataset.Table) (CleanSaleTable, CleanStats, error) {
	stats := CleanStats{Input: len(raw)}
	if raw.Empty() {
		return CleanSaleTable{}, stats, nil
	}
	for _, col := range []string{"numero_factura", "fecha_venta"} {
		if !raw.HasColumn(col) {
			return nil, stats, fmt.Errorf("%w: missing column %q", ErrCleaning, col)
		}
	}

	out := make(CleanSaleTable, 0, len(raw))
	for i, r := range raw {
		if dataset.Missing(r["numero_factura"]) || dataset.Missing(r["fecha_venta"]) {
			stats.Dropped++
			continue
		}
		fecha, err := dataset.Time(r["fecha_venta"])
		if err != nil {
			return nil, stats, fmt.Errorf("%w: row %d (factura %s): fecha_venta: %v",
				ErrCleaning, i, dataset.String(r["numero_factura"]), err)
		}
		out = append(out, cleanSale(r, fecha))
	}
	stats.Output = len(out)
	return out, stats, nil
}

func cleanSale(r dataset.Row, fecha time.Time) CleanSale {
	s := CleanSale{
		IDTransaccion:  dataset.String(r["id_transaccion"]),
		NumeroFactura:  dataset.String(r["numero_factura"]),
		FechaVenta:     fecha,
		NombreCliente:  dataset.String(r["nombre_cliente"]),
		Ciudad:         dataset.String(r["ciudad"]),
		Provincia:      dataset.String(r["provincia"]),
		CodigoProducto: dataset.String(r["codigo_producto"]),
		NombreProducto: dataset.String(r["nombre_producto"]),
		Categoria:      dataset.String(r["categoria"]),
		Material:       dataset.String(r["material"]),
		Cantidad:       nonNegative(dataset.FloatPtr(r["cantidad"])),
		PrecioUnitario: nonNegative(dataset.FloatPtr(r["precio_unitario"])),
		Subtotal:       dataset.FloatPtr(r["subtotal"]),
		TotalFactura:   dataset.FloatPtr(r["total_factura"]),
		MetodoPago:     dataset.String(r["metodo_pago"]),
		Vendedor:       dataset.String(r["vendedor"]),
		Sucursal:       dataset.String(r["sucursal"]),
	}
	if d, ok := dataset.Float(r["descuento"]); ok {
		s.Descuento = d
	}

	if s.PrecioUnitario != nil {
		pcd := *s.PrecioUnitario * (1 - s.Descuento/100)
		margen := *s.PrecioUnitario - pcd
		s.PrecioConDescuento = &pcd
		s.MargenDescuento = &margen
		if s.Cantidad != nil {
			v := *s.Cantidad * pcd
			s.ValorTotalProducto = &v
		}
	}

	s.TipoPago = PaymentType(s.MetodoPago)
	s.CategoriaVenta = SaleSize(s.TotalFactura)

	s.Anio = fecha.Year()
	s.Mes = int(fecha.Month())
	s.DiaSemana = fecha.Weekday().String()
	s.Trimestre = (s.Mes-1)/3 + 1
	return s
}

// nonNegative: ujemna ilość lub cena to błąd danych, traktujemy jak brak.
func nonNegative(v *float64) *float64 {
	if v == nil || *v < 0 {
		return nil
	}
	return v
}

// CleanSaleTable – ventas_clean.
type CleanSaleTable []CleanSale

var cleanSaleColumns = []string{
	"id_transaccion", "numero_factura", "fecha_venta", "nombre_cliente", "ciudad",
	"provincia", "codigo_producto", "nombre_producto", "categoria", "material",
	"cantidad", "precio_unitario", "descuento", "subtotal", "total_factura",
	"metodo_pago", "vendedor", "sucursal", "precio_con_descuento",
	"margen_descuento", "valor_total_producto", "tipo_pago", "categoria_venta",
	"año", "mes", "dia_semana", "trimestre",
}

func (t CleanSaleTable) Len() int          { return len(t) }
func (t CleanSaleTable) Columns() []string { return cleanSaleColumns }

func (t CleanSaleTable) Values() [][]any {
	out := make([][]any, 0, len(t))
	for _, s := range t {
		out = append(out, []any{
			strOrNil(s.IDTransaccion), s.NumeroFactura, s.FechaVenta, strOrNil(s.NombreCliente),
			strOrNil(s.Ciudad), strOrNil(s.Provincia), strOrNil(s.CodigoProducto),
			strOrNil(s.NombreProducto), strOrNil(s.Categoria), strOrNil(s.Material),
			floatOrNil(s.Cantidad), floatOrNil(s.PrecioUnitario), s.Descuento,
			floatOrNil(s.Subtotal), floatOrNil(s.TotalFactura), strOrNil(s.MetodoPago),
			strOrNil(s.Vendedor), strOrNil(s.Sucursal), floatOrNil(s.PrecioConDescuento),
			floatOrNil(s.MargenDescuento), floatOrNil(s.ValorTotalProducto), s.TipoPago,
			strOrNil(s.CategoriaVenta), s.Anio, s.Mes, s.DiaSemana, s.Trimestre,
		})
	}
	return out
}
