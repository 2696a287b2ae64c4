package extract

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	conf "github.com/bartek5186/metaltronic-etl/internal/config"
	"github.com/bartek5186/metaltronic-etl/internal/dataset"
	"github.com/bartek5186/metaltronic-etl/internal/sources"
)

type fakeSource struct {
	name  string
	items map[string]dataset.Table
	err   error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context, ds string, _ sources.Window) (dataset.Table, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items[ds], nil
}

func day(t *testing.T) sources.Window {
	w, err := sources.DayWindow("2024-01-15")
	require.NoError(t, err)
	return w
}

func TestExtractAll(t *testing.T) {
	src := &fakeSource{name: "fake", items: map[string]dataset.Table{
		sources.Ventas:     {{"numero_factura": "F-1"}},
		sources.Inventario: {{"codigo_producto": "MT-001"}, {"codigo_producto": "MT-002"}},
	}}
	e := NewWithSources(zerolog.Nop(), map[string]sources.Source{
		sources.Ventas:     src,
		sources.Inventario: src,
		// logs bez źródła
	})

	in, err := e.ExtractAll(context.Background(), day(t))
	require.NoError(t, err)
	assert.Len(t, in.Ventas, 1)
	assert.Len(t, in.Inventario, 2)
	assert.Empty(t, in.Logs)
}

func TestExtractAll_ErrorIsWrapped(t *testing.T) {
	boom := errors.New("connection refused")
	e := NewWithSources(zerolog.Nop(), map[string]sources.Source{
		sources.Ventas: &fakeSource{name: "sql"},
		sources.Logs:   &fakeSource{name: "mongo", err: boom},
	})

	_, err := e.ExtractAll(context.Background(), day(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtraction)
	assert.ErrorIs(t, err, boom)

	var ee *ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, sources.Logs, ee.Dataset)
	assert.Equal(t, "mongo", ee.Source)
}

func TestNew_FromConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ventas_2024-01-15.csv"),
		[]byte("numero_factura,fecha_venta\nF-1,2024-01-15\n"), 0o644))

	raw, err := json.Marshal(map[string]string{"dir": dir})
	require.NoError(t, err)
	cfg := &conf.Config{
		Sources:  map[string]json.RawMessage{"csv": raw},
		Datasets: map[string]string{sources.Ventas: "csv", sources.Logs: "csv"},
	}

	e, err := New(zerolog.Nop(), cfg, sources.Deps{})
	require.NoError(t, err)
	in, err := e.ExtractAll(context.Background(), day(t))
	require.NoError(t, err)
	assert.Len(t, in.Ventas, 1)
	assert.Empty(t, in.Logs)
	assert.Empty(t, in.Inventario)
}

func TestNew_UnknownSource(t *testing.T) {
	cfg := &conf.Config{Datasets: map[string]string{sources.Ventas: "ftp"}}
	_, err := New(zerolog.Nop(), cfg, sources.Deps{})
	assert.ErrorContains(t, err, "ftp")
}

func TestNew_SourceNeedsConnection(t *testing.T) {
	cfg := &conf.Config{Datasets: map[string]string{sources.Logs: "mongo"}}
	_, err := New(zerolog.Nop(), cfg, sources.Deps{})
	assert.Error(t, err)
}
