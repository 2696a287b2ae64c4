package db

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	cgosqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	conf "github.com/bartek5186/metaltronic-etl/internal/config"
)

type Handle struct {
	DB      *gorm.DB
	Dialect string
	Path    string // sqlite: plik bazy, pozostałe: host
}

// Open otwiera bazę wg dialektu. Dla sqlite bez ścieżki plik ląduje w dir.
func Open(cfg conf.DatabaseConfig, dir string) (*Handle, error) {
	var (
		dialector gorm.Dialector
		where     = cfg.Host
	)
	switch cfg.Dialect {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "mysql":
		dialector = mysql.Open(cfg.DSN())
	case "sqlite", "sqlite-pure":
		where = cfg.Path
		if where == "" {
			where = filepath.Join(dir, "metaltronic.db")
		}
		if cfg.Dialect == "sqlite" {
			dialector = cgosqlite.Open(where)
		} else {
			dialector = sqlite.Open(where)
		}
	default:
		return nil, fmt.Errorf("nieobsługiwany dialekt %q", cfg.Dialect)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn), // logger.Info dla verbose SQL
	})
	if err != nil {
		return nil, err
	}
	return &Handle{DB: gdb, Dialect: cfg.Dialect, Path: where}, nil
}

// Wrap – Handle na już otwartym gorm.DB (testy, in-memory).
func Wrap(gdb *gorm.DB) *Handle {
	return &Handle{DB: gdb, Dialect: gdb.Dialector.Name()}
}

// SupportsSchemas – sqlite nie zna schematów, tabele lecą bez prefiksu.
func (h *Handle) SupportsSchemas() bool {
	return h.Dialect == "postgres" || h.Dialect == "mysql"
}

// Table zwraca nazwę tabeli ze schematem (jeśli baza je wspiera).
func (h *Handle) Table(schema, name string) string {
	if schema == "" || !h.SupportsSchemas() {
		return name
	}
	return schema + "." + name
}

func (h *Handle) Close() error {
	sqlDB, err := h.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping – kontrola połączenia przed przebiegiem.
func (h *Handle) Ping(ctx context.Context) error {
	sqlDB, err := h.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
