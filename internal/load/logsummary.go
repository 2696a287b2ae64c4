package load

import (
	"sort"
	"time"

	"github.com/bartek5186/metaltronic-etl/internal/dataset"
	"github.com/bartek5186/metaltronic-etl/internal/mongostore"
	"github.com/bartek5186/metaltronic-etl/internal/transform"
)

type summaryKey struct {
	fecha  string // YYYY-MM-DD, time.Time jako klucz zależy od strefy
	evento string
}

// SummarizeLogs grupuje logi po (fecha, evento): suma total, liczba
// niepustych numero_factura, różni vendedores (posortowani) i rozkład
// periodo_dia. Zdarzenia bez evento nie trafiają do żadnej grupy.
// Wynik posortowany po fecha, potem evento.
func SummarizeLogs(logs transform.LogEventTable, now time.Time) []mongostore.LogSummary {
	groups := map[summaryKey]*mongostore.LogSummary{}
	vendedores := map[summaryKey]map[string]struct{}{}

	for _, ev := range logs {
		evento := dataset.String(ev.Fields["evento"])
		if evento == "" {
			continue
		}
		k := summaryKey{fecha: ev.Fecha.Format("2006-01-02"), evento: evento}
		g, ok := groups[k]
		if !ok {
			g = &mongostore.LogSummary{
				Fecha:               ev.Fecha,
				Evento:              evento,
				Vendedores:          []string{},
				DistribucionPeriodo: map[string]int{},
				FechaProcesamiento:  now,
			}
			groups[k] = g
			vendedores[k] = map[string]struct{}{}
		}
		if v, ok := dataset.Float(ev.Fields["total"]); ok {
			g.TotalMonto += v
		}
		if !dataset.Missing(ev.Fields["numero_factura"]) {
			g.NumEventos++
		}
		if v := dataset.String(ev.Fields["vendedor"]); v != "" {
			vendedores[k][v] = struct{}{}
		}
		if ev.PeriodoDia != "" {
			g.DistribucionPeriodo[ev.PeriodoDia]++
		}
	}

	out := make([]mongostore.LogSummary, 0, len(groups))
	for k, g := range groups {
		for v := range vendedores[k] {
			g.Vendedores = append(g.Vendedores, v)
		}
		sort.Strings(g.Vendedores)
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Fecha.Equal(out[j].Fecha) {
			return out[i].Fecha.Before(out[j].Fecha)
		}
		return out[i].Evento < out[j].Evento
	})
	return out
}
