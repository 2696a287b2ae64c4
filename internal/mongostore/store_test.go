package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	conf "github.com/bartek5186/metaltronic-etl/internal/config"
	"github.com/bartek5186/metaltronic-etl/internal/quality"
)

// Testy na żywej bazie: MONGO_TEST_URI=mongodb://localhost:27017
func openTest(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI nie ustawione")
	}
	ctx := context.Background()
	s, err := Open(ctx, zerolog.Nop(), conf.MongoConfig{URI: uri, DB: "etl_test_" + uuid.NewString()[:8]})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.db.Drop(ctx)
		_ = s.Close(ctx)
	})
	return s
}

func TestReplaceLogSummaries(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	docs := []LogSummary{
		{Fecha: day, Evento: "venta_completada", TotalMonto: 100, NumEventos: 2},
		{Fecha: day, Evento: "venta_cancelada", NumEventos: 1},
	}
	n, err := s.ReplaceLogSummaries(ctx, docs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// drugi zapis nie dubluje
	_, err = s.ReplaceLogSummaries(ctx, docs[:1])
	require.NoError(t, err)
	count, err := s.CountLogSummaries(ctx, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestFindByTime(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	_, err := s.db.Collection(CollLogs).InsertMany(ctx, []any{
		bson.M{"timestamp": day.Add(-time.Minute), "evento": "x"},
		bson.M{"timestamp": day.Add(8 * time.Hour), "evento": "venta_completada"},
		bson.M{"timestamp": day.Add(24 * time.Hour), "evento": "y"},
	})
	require.NoError(t, err)

	docs, err := s.FindByTime(ctx, CollLogs, "timestamp", day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "venta_completada", docs[0]["evento"])
}

func TestInsertQualityReport(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	r := quality.Report{RunID: "r1", Fecha: "2024-01-15", FechaReporte: time.Now().UTC(),
		ResumenDatasets: map[string]quality.DatasetQuality{"ventas_clean": {TotalRegistros: 3}}}
	require.NoError(t, s.InsertQualityReport(ctx, r))

	n, err := s.db.Collection(CollReportes).CountDocuments(ctx, bson.M{"run_id": "r1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
