package transform

import (
	"fmt"
	"math"
	"time"

	"github.com/bartek5186/metaltronic-etl/internal/dataset"
)

// InventoryAnalysis – produkt z inventario + sprzedaż + rotacja.
type InventoryAnalysis struct {
	IDProducto     string
	CodigoProducto string
	NombreProducto string
	Categoria      string
	Material       string
	PesoKg         *float64
	PrecioUnitario *float64
	StockActual    *float64
	StockMinimo    *float64
	NivelStock     string
	Activo         bool
	FechaCreacion  *time.Time

	CantidadVendida    float64
	IngresosProducto   float64
	NumTransacciones   int
	RotacionInventario float64
	DiasStock          float64
	Performance        string
}

type productSales struct {
	cantidad      float64
	ingresos      float64
	transacciones map[string]struct{}
}

// salesByProduct: Σ cantidad, Σ subtotal, liczba różnych transakcji.
// Wiersze bez codigo_producto nie mają grupy.
func salesByProduct(sales CleanSaleTable) map[string]*productSales {
	out := map[string]*productSales{}
	for _, s := range sales {
		if s.CodigoProducto == "" {
			continue
		}
		p, ok := out[s.CodigoProducto]
		if !ok {
			p = &productSales{transacciones: map[string]struct{}{}}
			out[s.CodigoProducto] = p
		}
		if s.Cantidad != nil {
			p.cantidad += *s.Cantidad
		}
		if s.Subtotal != nil {
			p.ingresos += *s.Subtotal
		}
		if s.IDTransaccion != "" {
			p.transacciones[s.IDTransaccion] = struct{}{}
		}
	}
	return out
}

// AnalyzeInventory robi left join sprzedaży na inventario po codigo_producto.
// Pusty którykolwiek zbiór -> pusty wynik (bez błędu). Zduplikowane kody w
// inventario: zostaje pierwszy wiersz, reszta trafia do dups.
func AnalyzeInventory(inv dataset.Table, sales CleanSaleTable) (out InventoryAnalysisTable, dups []string, err error) {
	if inv.Empty() || len(sales) == 0 {
		return InventoryAnalysisTable{}, nil, nil
	}

	agg := salesByProduct(sales)
	seen := make(map[string]struct{}, len(inv))
	out = make(InventoryAnalysisTable, 0, len(inv))

	for i, r := range inv {
		item, err := inventoryItem(r)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: inventario row %d: %v", ErrTransform, i, err)
		}
		if _, ok := seen[item.CodigoProducto]; ok {
			dups = append(dups, item.CodigoProducto)
			continue
		}
		seen[item.CodigoProducto] = struct{}{}

		if p, ok := agg[item.CodigoProducto]; ok {
			item.CantidadVendida = p.cantidad
			item.IngresosProducto = p.ingresos
			item.NumTransacciones = len(p.transacciones)
		}
		item.RotacionInventario = Rotation(item.CantidadVendida, item.StockActual)
		item.DiasStock = DaysOfStock(item.StockActual, item.CantidadVendida)
		item.Performance = PerformanceTier(item.RotacionInventario)
		out = append(out, item)
	}
	return out, dups, nil
}

func inventoryItem(r dataset.Row) (InventoryAnalysis, error) {
	item := InventoryAnalysis{
		IDProducto:     dataset.String(r["id_producto"]),
		CodigoProducto: dataset.String(r["codigo_producto"]),
		NombreProducto: dataset.String(r["nombre_producto"]),
		Categoria:      dataset.String(r["categoria"]),
		Material:       dataset.String(r["material"]),
		PesoKg:         dataset.FloatPtr(r["peso_kg"]),
		PrecioUnitario: dataset.FloatPtr(r["precio_unitario"]),
		StockActual:    dataset.FloatPtr(r["stock_actual"]),
		StockMinimo:    dataset.FloatPtr(r["stock_minimo"]),
		NivelStock:     dataset.String(r["nivel_stock"]),
		Activo:         true,
	}
	if item.CodigoProducto == "" {
		return item, fmt.Errorf("missing codigo_producto")
	}
	if b, ok := dataset.Bool(r["activo"]); ok {
		item.Activo = b
	}
	if t, err := dataset.Time(r["fecha_creacion"]); err == nil {
		item.FechaCreacion = &t
	}
	if item.NivelStock == "" && item.StockActual != nil && item.StockMinimo != nil {
		item.NivelStock = StockLevel(*item.StockActual, *item.StockMinimo)
	}
	return item, nil
}

// Rotation = vendida / stock; brak stocku, dzielenie przez zero, NaN -> 0.
func Rotation(sold float64, stock *float64) float64 {
	if stock == nil {
		return 0
	}
	r := sold / *stock
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// DaysOfStock = stock / vendida * 30; nieskończoność lub NaN -> 999.
func DaysOfStock(stock *float64, sold float64) float64 {
	if stock == nil {
		return DiasStockSinVentas
	}
	d := *stock / sold * 30
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return DiasStockSinVentas
	}
	return d
}

// InventoryAnalysisTable – analisis_inventario.
type InventoryAnalysisTable []InventoryAnalysis

var inventoryAnalysisColumns = []string{
	"id_producto", "codigo_producto", "nombre_producto", "categoria", "material",
	"peso_kg", "precio_unitario", "stock_actual", "stock_minimo", "nivel_stock",
	"activo", "fecha_creacion", "cantidad_vendida", "ingresos_producto",
	"num_transacciones", "rotacion_inventario", "dias_stock", "performance",
}

func (t InventoryAnalysisTable) Len() int          { return len(t) }
func (t InventoryAnalysisTable) Columns() []string { return inventoryAnalysisColumns }

func (t InventoryAnalysisTable) Values() [][]any {
	out := make([][]any, 0, len(t))
	for _, a := range t {
		out = append(out, []any{
			strOrNil(a.IDProducto), a.CodigoProducto, strOrNil(a.NombreProducto),
			strOrNil(a.Categoria), strOrNil(a.Material), floatOrNil(a.PesoKg),
			floatOrNil(a.PrecioUnitario), floatOrNil(a.StockActual), floatOrNil(a.StockMinimo),
			strOrNil(a.NivelStock), a.Activo, timeOrNil(a.FechaCreacion), a.CantidadVendida,
			a.IngresosProducto, a.NumTransacciones, a.RotacionInventario, a.DiasStock,
			a.Performance,
		})
	}
	return out
}
