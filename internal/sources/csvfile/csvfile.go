// Package csvfile czyta surowe zrzuty CSV: <dir>/<zbiór>_<YYYY-MM-DD>.csv.
package csvfile

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"

	"github.com/bartek5186/metaltronic-etl/internal/dataset"
	"github.com/bartek5186/metaltronic-etl/internal/sources"
)

type Config struct {
	Dir       string `json:"dir"`       // np. ./data/raw
	Encoding  string `json:"encoding"`  // utf-8, windows-1250, iso-8859-2 ...
	Delimiter string `json:"delimiter"` // domyślnie ","
}

type CSV struct {
	log   zerolog.Logger
	cfg   Config
	comma rune
}

func init() {
	sources.Register("csv", New)
}

func New(log zerolog.Logger, _ sources.Deps, raw json.RawMessage) (sources.Source, error) {
	cfg := Config{Dir: "./data/raw", Encoding: "utf-8", Delimiter: ","}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("csv: config: %w", err)
		}
	}
	comma := ','
	if d := []rune(cfg.Delimiter); len(d) == 1 {
		comma = d[0]
	} else if cfg.Delimiter != "" {
		return nil, fmt.Errorf("csv: delimiter musi być jednym znakiem, jest %q", cfg.Delimiter)
	}
	return &CSV{log: log, cfg: cfg, comma: comma}, nil
}

func (c *CSV) Name() string { return "csv" }

// Fetch – brak pliku to pusty zbiór, nie błąd.
func (c *CSV) Fetch(ctx context.Context, ds string, w sources.Window) (dataset.Table, error) {
	candidates := []string{filepath.Join(c.cfg.Dir, fmt.Sprintf("%s_%s.csv", ds, w.Date()))}
	if ds == sources.Inventario {
		// inwentarz to snapshot, może leżeć bez daty
		candidates = append(candidates, filepath.Join(c.cfg.Dir, ds+".csv"))
	}
	for _, p := range candidates {
		t, err := c.readFile(ctx, p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %s: %w", filepath.Base(p), err)
		}
		c.log.Debug().Str("file", p).Int("rows", len(t)).Msg("csv: wczytano")
		return t, nil
	}
	c.log.Warn().Str("dataset", ds).Str("dir", c.cfg.Dir).Msg("csv: brak pliku, pomijam")
	return dataset.Table{}, nil
}

func (c *CSV) readFile(ctx context.Context, path string) (dataset.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Buforowany reader + dekoder z obsługą charsetów
	in, err := charset.NewReaderLabel(normalizeCharset(c.cfg.Encoding), bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("kodowanie %q: %w", c.cfg.Encoding, err)
	}
	r := csv.NewReader(in)
	r.Comma = c.comma
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return dataset.Table{}, nil
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var out dataset.Table
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("linia %d: %w", line, err)
		}
		row := make(dataset.Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = parseCell(rec[i])
			} else {
				row[col] = nil
			}
		}
		out = append(out, row)
	}
	if out == nil {
		out = dataset.Table{}
	}
	return out, nil
}

// parseCell: pusty -> nil, "[...]" -> lista (JSON lub repr z apostrofami),
// reszta zostaje tekstem, typy rozwiązują etapy transformacji.
func parseCell(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		var list []any
		if json.Unmarshal([]byte(s), &list) == nil {
			return list
		}
		if json.Unmarshal([]byte(strings.ReplaceAll(s, "'", `"`)), &list) == nil {
			return list
		}
	}
	return s
}

// normalizeCharset mapuje nietypowe etykiety na standardowe nazwy rozpoznawane przez charset.NewReaderLabel
func normalizeCharset(cs string) string {
	c := strings.TrimSpace(strings.ToLower(cs))
	switch c {
	case "":
		return "utf-8"
	case "latin ii", "latin-2", "latin2", "iso8859-2", "iso_8859-2":
		return "iso-8859-2"
	case "cp1250", "windows1250", "win-1250":
		return "windows-1250"
	case "cp1252", "windows1252", "latin1", "latin-1":
		return "windows-1252"
	default:
		return c
	}
}
