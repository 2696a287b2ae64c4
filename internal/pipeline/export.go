package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bartek5186/metaltronic-etl/internal/dataset"
	"github.com/bartek5186/metaltronic-etl/internal/sources"
	"github.com/bartek5186/metaltronic-etl/internal/transform"
)

// rawTable – surowy zbiór jako Tabular (kolumny posortowane).
type rawTable dataset.Table

func (t rawTable) Len() int          { return len(t) }
func (t rawTable) Columns() []string { return dataset.Table(t).Columns() }
func (t rawTable) Values() [][]any {
	cols := t.Columns()
	out := make([][]any, 0, len(t))
	for _, r := range t {
		row := make([]any, len(cols))
		for i, c := range cols {
			row[i] = r[c]
		}
		out = append(out, row)
	}
	return out
}

// ExportRaw zapisuje surowe zbiory jako <zbiór>_<data>.csv, w formacie,
// który czyta źródło "csv" (można z nich powtórzyć przebieg).
func ExportRaw(dir, date string, in transform.Input) ([]string, error) {
	tables := map[string]transform.Tabular{
		sources.Ventas:     rawTable(in.Ventas),
		sources.Inventario: rawTable(in.Inventario),
		sources.Logs:       rawTable(in.Logs),
	}
	return writeAll(dir, date, tables)
}

// ExportCSV zapisuje każdy niepusty wynik transformacji jako <wynik>_<data>.csv.
func ExportCSV(dir, date string, out *transform.Output) ([]string, error) {
	return writeAll(dir, date, out.Tables())
}

func writeAll(dir, date string, tables map[string]transform.Tabular) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("katalog %s: %w", dir, err)
	}
	names := make([]string, 0, len(tables))
	for n, t := range tables {
		if t != nil && t.Len() > 0 {
			names = append(names, n)
		}
	}
	sort.Strings(names)

	files := make([]string, 0, len(names))
	for _, n := range names {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", n, date))
		if err := writeCSV(path, tables[n]); err != nil {
			return files, fmt.Errorf("eksport %s: %w", n, err)
		}
		files = append(files, path)
	}
	return files, nil
}

// writeCSV pisze do pliku tymczasowego i podmienia go na końcu,
// czytelnik nigdy nie widzi połowy pliku.
func writeCSV(path string, t transform.Tabular) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(t.Columns()); err != nil {
		tmp.Close()
		return err
	}
	rec := make([]string, len(t.Columns()))
	for _, row := range t.Values() {
		for i, v := range row {
			rec[i] = formatCell(v)
		}
		if err := w.Write(rec); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// formatCell: nil -> "", czas w RFC3339, listy i mapy jako JSON.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case *time.Time:
		if x == nil {
			return ""
		}
		return x.Format(time.RFC3339Nano)
	case primitive.DateTime:
		return x.Time().UTC().Format(time.RFC3339Nano)
	case primitive.ObjectID:
		return x.Hex()
	case float64:
		if dataset.Missing(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
	return fmt.Sprint(v)
}

// Cleanup usuwa pliki *.csv starsze niż maxAge. Zwraca liczbę usuniętych.
func Cleanup(dir string, maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(fi.ModTime()) <= maxAge {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
