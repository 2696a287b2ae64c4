// Package quality liczy raport jakości danych dla wyników transformacji.
package quality

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bartek5186/metaltronic-etl/internal/transform"
)

// DatasetQuality – statystyki jednego zbioru.
type DatasetQuality struct {
	TotalRegistros int     `json:"total_registros" bson:"total_registros"`
	Columnas       int     `json:"columnas" bson:"columnas"`
	ValoresNulos   int     `json:"valores_nulos" bson:"valores_nulos"`
	Duplicados     int     `json:"duplicados" bson:"duplicados"`
	MemoriaMB      float64 `json:"memoria_mb" bson:"memoria_mb"`
}

// Report – dokument reportes_calidad (jeden na przebieg).
type Report struct {
	RunID           string                    `json:"run_id" bson:"run_id"`
	Fecha           string                    `json:"fecha" bson:"fecha"`
	FechaReporte    time.Time                 `json:"fecha_reporte" bson:"fecha_reporte"`
	ResumenDatasets map[string]DatasetQuality `json:"resumen_datasets" bson:"resumen_datasets"`
}

// Build liczy statystyki dla każdego niepustego zbioru.
func Build(runID, fecha string, now time.Time, tables map[string]transform.Tabular) Report {
	r := Report{
		RunID:           runID,
		Fecha:           fecha,
		FechaReporte:    now,
		ResumenDatasets: map[string]DatasetQuality{},
	}
	for name, t := range tables {
		if t == nil || t.Len() == 0 {
			continue
		}
		r.ResumenDatasets[name] = Describe(t)
	}
	return r
}

// Datasets – nazwy zbiorów w raporcie, posortowane.
func (r Report) Datasets() []string {
	out := make([]string, 0, len(r.ResumenDatasets))
	for k := range r.ResumenDatasets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Describe: wiersze, kolumny, puste komórki, duplikaty (kolejne wystąpienia
// identycznego wiersza) i szacowany rozmiar w MB.
func Describe(t transform.Tabular) DatasetQuality {
	values := t.Values()
	q := DatasetQuality{
		TotalRegistros: len(values),
		Columnas:       len(t.Columns()),
	}

	seen := make(map[string]struct{}, len(values))
	var bytes int
	for _, row := range values {
		var key strings.Builder
		for i, v := range row {
			if v == nil {
				q.ValoresNulos++
			}
			bytes += sizeOf(v)
			if i > 0 {
				key.WriteByte(0x1f)
			}
			fmt.Fprint(&key, v)
		}
		k := key.String()
		if _, dup := seen[k]; dup {
			q.Duplicados++
			continue
		}
		seen[k] = struct{}{}
	}
	q.MemoriaMB = float64(bytes) / 1024 / 1024
	return q
}

// sizeOf – przybliżony rozmiar komórki w pamięci.
func sizeOf(v any) int {
	switch x := v.(type) {
	case nil:
		return 8
	case string:
		return 16 + len(x)
	case bool:
		return 1
	case int, int64, float64, uint64:
		return 8
	case time.Time:
		return 24
	}
	return 16 + len(fmt.Sprint(v))
}
