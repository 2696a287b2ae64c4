// Package mongostore – dostęp do MongoDB: logi sprzedaży (źródło),
// dzienne podsumowania logów i raporty jakości (cel).
package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	conf "github.com/bartek5186/metaltronic-etl/internal/config"
	"github.com/bartek5186/metaltronic-etl/internal/quality"
)

const (
	CollLogs         = "logs_ventas"
	CollResumenLogs  = "resumen_logs_diario"
	CollReportes     = "reportes_calidad"
	connectTimeout   = 10 * time.Second
	defaultBatchSize = 500
)

// LogSummary – dokument resumen_logs_diario (fecha + evento).
type LogSummary struct {
	Fecha               time.Time      `bson:"fecha" json:"fecha"`
	Evento              string         `bson:"evento" json:"evento"`
	TotalMonto          float64        `bson:"total_monto" json:"total_monto"`
	NumEventos          int            `bson:"num_eventos" json:"num_eventos"`
	Vendedores          []string       `bson:"vendedores" json:"vendedores"`
	DistribucionPeriodo map[string]int `bson:"distribucion_periodo" json:"distribucion_periodo"`
	FechaProcesamiento  time.Time      `bson:"fecha_procesamiento" json:"fecha_procesamiento"`
}

type Store struct {
	log    zerolog.Logger
	client *mongo.Client
	db     *mongo.Database
}

func Open(ctx context.Context, log zerolog.Logger, cfg conf.MongoConfig) (*Store, error) {
	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().
		ApplyURI(cfg.ConnectionURI()).
		SetConnectTimeout(connectTimeout))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	log.Info().Str("db", cfg.DB).Str("host", cfg.Host).Msg("Mongo ready")
	return &Store{log: log, client: client, db: client.Database(cfg.DB)}, nil
}

// Ping – kontrola połączenia przed przebiegiem.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// FindByTime – dokumenty z polem field w [start, end), w kolejności naturalnej,
// pobierane w paczkach.
func (s *Store) FindByTime(ctx context.Context, coll, field string, start, end time.Time) ([]bson.M, error) {
	filter := bson.M{field: bson.M{"$gte": start, "$lt": end}}
	cur, err := s.db.Collection(coll).Find(ctx, filter, options.Find().SetBatchSize(defaultBatchSize))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll, err)
	}
	defer cur.Close(ctx)

	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("read %s: %w", coll, err)
	}
	return docs, nil
}

// ReplaceLogSummaries usuwa podsumowania dla dat z docs i wstawia nowe.
// Bez transakcji: przy błędzie insertu daty mogą zostać puste do
// następnego przebiegu.
func (s *Store) ReplaceLogSummaries(ctx context.Context, docs []LogSummary) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	coll := s.db.Collection(CollResumenLogs)

	fechas := make([]time.Time, 0, len(docs))
	seen := map[time.Time]struct{}{}
	for _, d := range docs {
		if _, ok := seen[d.Fecha]; !ok {
			seen[d.Fecha] = struct{}{}
			fechas = append(fechas, d.Fecha)
		}
	}
	del, err := coll.DeleteMany(ctx, bson.M{"fecha": bson.M{"$in": fechas}})
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", CollResumenLogs, err)
	}

	batch := make([]any, 0, len(docs))
	for _, d := range docs {
		batch = append(batch, d)
	}
	res, err := coll.InsertMany(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", CollResumenLogs, err)
	}
	s.log.Debug().Int64("deleted", del.DeletedCount).Int("inserted", len(res.InsertedIDs)).Msg("resumen_logs_diario zastąpione")
	return len(res.InsertedIDs), nil
}

func (s *Store) InsertQualityReport(ctx context.Context, r quality.Report) error {
	if _, err := s.db.Collection(CollReportes).InsertOne(ctx, r); err != nil {
		return fmt.Errorf("insert %s: %w", CollReportes, err)
	}
	return nil
}

// CountLogSummaries – ile podsumowań ma fecha w [start, end).
func (s *Store) CountLogSummaries(ctx context.Context, start, end time.Time) (int64, error) {
	n, err := s.db.Collection(CollResumenLogs).CountDocuments(ctx, bson.M{"fecha": bson.M{"$gte": start, "$lt": end}})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", CollResumenLogs, err)
	}
	return n, nil
}
