package transform

import (
	"sort"
	"time"

	"github.com/bartek5186/metaltronic-etl/internal/dataset"
)

// DailySummary – jeden wiersz resumen_diario na dzień kalendarzowy.
type DailySummary struct {
	FechaResumen        time.Time
	TotalVentas         float64
	PromedioTicket      float64
	TotalTransacciones  int
	ProductosVendidos   float64
	ClientesUnicos      int
	CategoriaMasVendida string
	VendedorTop         string
	ClienteMasFrecuente string
	FechaProcesamiento  time.Time
}

// counter liczy wystąpienia i pamięta kolejność pierwszego pojawienia się,
// więc remis wygrywa wartość widziana wcześniej.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter { return &counter{counts: map[string]int{}} }

func (c *counter) add(v string) {
	if v == "" {
		return
	}
	if _, ok := c.counts[v]; !ok {
		c.order = append(c.order, v)
	}
	c.counts[v]++
}

func (c *counter) top() string {
	best, bestN := "", 0
	for _, v := range c.order {
		if n := c.counts[v]; n > bestN {
			best, bestN = v, n
		}
	}
	return best
}

func (c *counter) distinct() int { return len(c.order) }

type dayAcc struct {
	fecha      time.Time
	totalSum   float64
	totalCount int
	qtySum     float64
	clientes   *counter
	categorias *counter
	vendedores *counter
}

// AggregateDaily grupuje ventas_clean po dniu. Brakujące wartości są
// pomijane jak w sum/mean/count; wynik posortowany rosnąco po dacie.
func AggregateDaily(sales CleanSaleTable, now time.Time) DailySummaryTable {
	if len(sales) == 0 {
		return DailySummaryTable{}
	}

	byDay := map[string]*dayAcc{}
	for _, s := range sales {
		day := dataset.Date(s.FechaVenta)
		key := day.Format("2006-01-02")
		acc, ok := byDay[key]
		if !ok {
			acc = &dayAcc{
				fecha:      day,
				clientes:   newCounter(),
				categorias: newCounter(),
				vendedores: newCounter(),
			}
			byDay[key] = acc
		}
		if s.TotalFactura != nil {
			acc.totalSum += *s.TotalFactura
			acc.totalCount++
		}
		if s.Cantidad != nil {
			acc.qtySum += *s.Cantidad
		}
		acc.clientes.add(s.NombreCliente)
		acc.categorias.add(s.Categoria)
		acc.vendedores.add(s.Vendedor)
	}

	keys := make([]string, 0, len(byDay))
	for k := range byDay {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(DailySummaryTable, 0, len(keys))
	for _, k := range keys {
		acc := byDay[k]
		row := DailySummary{
			FechaResumen:        acc.fecha,
			TotalVentas:         acc.totalSum,
			TotalTransacciones:  acc.totalCount,
			ProductosVendidos:   acc.qtySum,
			ClientesUnicos:      acc.clientes.distinct(),
			CategoriaMasVendida: acc.categorias.top(),
			VendedorTop:         acc.vendedores.top(),
			ClienteMasFrecuente: acc.clientes.top(),
			FechaProcesamiento:  now,
		}
		if acc.totalCount > 0 {
			row.PromedioTicket = acc.totalSum / float64(acc.totalCount)
		}
		out = append(out, row)
	}
	return out
}

// DailySummaryTable – resumen_diario.
type DailySummaryTable []DailySummary

var dailySummaryColumns = []string{
	"fecha_resumen", "total_ventas", "promedio_ticket", "total_transacciones",
	"productos_vendidos", "clientes_unicos", "categoria_mas_vendida",
	"vendedor_top", "cliente_mas_frecuente", "fecha_procesamiento",
}

func (t DailySummaryTable) Len() int          { return len(t) }
func (t DailySummaryTable) Columns() []string { return dailySummaryColumns }

func (t DailySummaryTable) Values() [][]any {
	out := make([][]any, 0, len(t))
	for _, d := range t {
		out = append(out, []any{
			d.FechaResumen, d.TotalVentas, d.PromedioTicket, d.TotalTransacciones,
			d.ProductosVendidos, d.ClientesUnicos, strOrNil(d.CategoriaMasVendida),
			strOrNil(d.VendedorTop), strOrNil(d.ClienteMasFrecuente), d.FechaProcesamiento,
		})
	}
	return out
}

// Dates – dni obecne w podsumowaniu (do delete-then-insert).
func (t DailySummaryTable) Dates() []time.Time {
	out := make([]time.Time, 0, len(t))
	for _, d := range t {
		out = append(out, d.FechaResumen)
	}
	return out
}
