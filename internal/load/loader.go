// Package load zapisuje wyniki transformacji: resumen i analiza inwentarza
// do schematu analitycznego (gorm), podsumowania logów i raport jakości
// do MongoDB.
package load

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bartek5186/metaltronic-etl/internal/db"
	"github.com/bartek5186/metaltronic-etl/internal/mongostore"
	"github.com/bartek5186/metaltronic-etl/internal/quality"
	"github.com/bartek5186/metaltronic-etl/internal/transform"
)

const (
	defaultBatchSize = 500
	maxDiasStock     = transform.DiasStockSinVentas
)

// DocStore – część MongoDB, której potrzebuje loader.
type DocStore interface {
	ReplaceLogSummaries(ctx context.Context, docs []mongostore.LogSummary) (int, error)
	InsertQualityReport(ctx context.Context, r quality.Report) error
	CountLogSummaries(ctx context.Context, start, end time.Time) (int64, error)
}

type Loader struct {
	log       zerolog.Logger
	h         *db.Handle
	schema    string
	docs      DocStore // nil = bez MongoDB, kroki dokumentowe pomijane
	now       func() time.Time
	batchSize int
}

type Option func(*Loader)

func WithClock(now func() time.Time) Option { return func(l *Loader) { l.now = now } }

func WithBatchSize(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.batchSize = n
		}
	}
}

func New(log zerolog.Logger, h *db.Handle, schema string, docs DocStore, opts ...Option) *Loader {
	l := &Loader{
		log:       log.With().Str("component", "load").Logger(),
		h:         h,
		schema:    schema,
		docs:      docs,
		now:       time.Now,
		batchSize: defaultBatchSize,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Loader) table(name string) string { return l.h.Table(l.schema, name) }

// LoadDailySummary: w jednej transakcji kasuje wiersze dla dat obecnych
// w rows i wstawia nowe. Dwa ładowania tego samego dnia = jeden wiersz.
func (l *Loader) LoadDailySummary(ctx context.Context, rows transform.DailySummaryTable) (int, error) {
	name := l.table(db.TableResumenVentasDiario)
	if len(rows) == 0 {
		l.log.Warn().Str("table", name).Msg("resumen diario pusty, pomijam")
		return 0, nil
	}

	models := make([]db.ResumenVentasDiario, 0, len(rows))
	for _, r := range rows {
		models = append(models, db.ResumenVentasDiario{
			FechaResumen:        r.FechaResumen,
			TotalVentas:         money(r.TotalVentas),
			TotalTransacciones:  r.TotalTransacciones,
			ProductosVendidos:   money(r.ProductosVendidos),
			ClientesUnicos:      r.ClientesUnicos,
			ClienteMasFrecuente: nullable(r.ClienteMasFrecuente),
			CategoriaMasVendida: nullable(r.CategoriaMasVendida),
			VendedorTop:         nullable(r.VendedorTop),
			PromedioTicket:      money(r.PromedioTicket),
			FechaProcesamiento:  r.FechaProcesamiento,
		})
	}

	tx := l.h.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return 0, &LoadError{Table: name, Err: tx.Error}
	}
	defer tx.Rollback()

	del := tx.Table(name).Where("fecha_resumen IN ?", rows.Dates()).Delete(&db.ResumenVentasDiario{})
	if del.Error != nil {
		return 0, &LoadError{Table: name, Err: del.Error}
	}
	if err := tx.Table(name).CreateInBatches(&models, l.batchSize).Error; err != nil {
		return 0, &LoadError{Table: name, Err: err}
	}
	if err := tx.Commit().Error; err != nil {
		return 0, &LoadError{Table: name, Err: err}
	}

	l.log.Info().Str("table", name).Int64("deleted", del.RowsAffected).Int("inserted", len(models)).Msg("resumen diario załadowany")
	return len(models), nil
}

// LoadInventoryAnalysis – pełny snapshot: tabela tworzona gdy brak,
// czyszczona i zapisywana od zera.
func (l *Loader) LoadInventoryAnalysis(ctx context.Context, rows transform.InventoryAnalysisTable) (int, error) {
	name := l.table(db.TableAnalisisInventario)
	if len(rows) == 0 {
		l.log.Warn().Str("table", name).Msg("analiza inwentarza pusta, pomijam")
		return 0, nil
	}

	gdb := l.h.DB.WithContext(ctx)
	if err := gdb.Table(name).AutoMigrate(&db.AnalisisInventario{}); err != nil {
		return 0, &LoadError{Table: name, Err: err}
	}

	stamp := l.now()
	models := make([]db.AnalisisInventario, 0, len(rows))
	for _, r := range rows {
		models = append(models, db.AnalisisInventario{
			CodigoProducto:     r.CodigoProducto,
			NombreProducto:     nullable(r.NombreProducto),
			Categoria:          nullable(r.Categoria),
			StockActual:        roundedPtr(r.StockActual),
			CantidadVendida:    int64(math.Round(r.CantidadVendida)),
			IngresosProducto:   money(r.IngresosProducto),
			RotacionInventario: decimal.NewFromFloat(finiteOr(r.RotacionInventario, 0)).Round(4),
			DiasStock:          decimal.NewFromFloat(finiteOr(r.DiasStock, maxDiasStock)).Round(2),
			Performance:        r.Performance,
			FechaActualizacion: stamp,
		})
	}

	err := gdb.Transaction(func(tx *gorm.DB) error {
		// pełny rebuild
		if err := tx.Table(name).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&db.AnalisisInventario{}).Error; err != nil {
			return err
		}
		return tx.Table(name).CreateInBatches(&models, l.batchSize).Error
	})
	if err != nil {
		return 0, &LoadError{Table: name, Err: err}
	}

	l.log.Info().Str("table", name).Int("inserted", len(models)).Msg("analiza inwentarza załadowana")
	return len(models), nil
}

// LoadLogSummary – podsumowanie (fecha, evento) do resumen_logs_diario,
// zastępując dokumenty tych samych dat.
func (l *Loader) LoadLogSummary(ctx context.Context, logs transform.LogEventTable) (int, error) {
	if len(logs) == 0 {
		l.log.Warn().Msg("logi puste, pomijam podsumowanie")
		return 0, nil
	}
	if l.docs == nil {
		l.log.Warn().Msg("brak MongoDB, pomijam podsumowanie logów")
		return 0, nil
	}
	summaries := SummarizeLogs(logs, l.now())
	n, err := l.docs.ReplaceLogSummaries(ctx, summaries)
	if err != nil {
		return 0, &LoadError{Table: mongostore.CollResumenLogs, Err: err}
	}
	l.log.Info().Int("documents", n).Msg("podsumowanie logów załadowane")
	return n, nil
}

func (l *Loader) SaveQualityReport(ctx context.Context, r quality.Report) error {
	if l.docs == nil {
		l.log.Warn().Msg("brak MongoDB, raport jakości tylko w logu")
		return nil
	}
	if err := l.docs.InsertQualityReport(ctx, r); err != nil {
		return &LoadError{Table: mongostore.CollReportes, Err: err}
	}
	l.log.Info().Strs("datasets", r.Datasets()).Str("run_id", r.RunID).Msg("raport jakości zapisany")
	return nil
}

// Result – ile wierszy/dokumentów trafiło do każdego celu.
type Result struct {
	DailyRows     int `json:"resumen_diario"`
	InventoryRows int `json:"analisis_inventario"`
	LogSummaries  int `json:"resumen_logs"`
}

// LoadAll ładuje obecne wyniki po kolei, na końcu raport jakości.
// Pierwszy błąd przerywa; wcześniejsze kroki zostają zapisane.
func (l *Loader) LoadAll(ctx context.Context, out *transform.Output, report quality.Report) (Result, error) {
	var (
		res Result
		err error
	)
	if out.Has(transform.OutResumenDiario) {
		if res.DailyRows, err = l.LoadDailySummary(ctx, out.ResumenDiario); err != nil {
			return res, err
		}
	}
	if out.Has(transform.OutAnalisisInventario) {
		if res.InventoryRows, err = l.LoadInventoryAnalysis(ctx, out.AnalisisInventario); err != nil {
			return res, err
		}
	}
	if out.Has(transform.OutLogsProcessed) {
		if res.LogSummaries, err = l.LoadLogSummary(ctx, out.LogsProcessed); err != nil {
			return res, err
		}
	}
	if err := l.SaveQualityReport(ctx, report); err != nil {
		return res, err
	}
	return res, nil
}

// Validation – stan celów po załadowaniu dnia.
type Validation struct {
	ResumenRows  int64 `json:"resumen_rows"`
	LogSummaries int64 `json:"log_summaries"`
}

// Validate liczy wiersze resumen_ventas_diario dla dnia i podsumowania
// logów z fecha w [day, day+1).
func (l *Loader) Validate(ctx context.Context, day time.Time) (Validation, error) {
	var v Validation
	name := l.table(db.TableResumenVentasDiario)
	if err := l.h.DB.WithContext(ctx).Table(name).Where("fecha_resumen = ?", day).Count(&v.ResumenRows).Error; err != nil {
		return v, &LoadError{Table: name, Err: err}
	}
	if l.docs != nil {
		n, err := l.docs.CountLogSummaries(ctx, day, day.AddDate(0, 0, 1))
		if err != nil {
			return v, &LoadError{Table: mongostore.CollResumenLogs, Err: err}
		}
		v.LogSummaries = n
	}
	l.log.Info().Time("fecha", day).Int64("resumen", v.ResumenRows).Int64("logs", v.LogSummaries).Msg("walidacja załadowanych danych")
	return v, nil
}

func money(f float64) decimal.Decimal {
	return decimal.NewFromFloat(finiteOr(f, 0)).Round(2)
}

func finiteOr(f, fallback float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fallback
	}
	return f
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func roundedPtr(f *float64) *int64 {
	if f == nil || math.IsNaN(*f) || math.IsInf(*f, 0) {
		return nil
	}
	v := int64(math.Round(*f))
	return &v
}
