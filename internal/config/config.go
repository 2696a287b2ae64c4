// internal/config/config.go
package conf

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// DatabaseConfig – baza SQL (źródło ventas/inventario i schemat analytics).
// Zmienne środowiskowe: POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_DB, ...
type DatabaseConfig struct {
	Dialect         string `json:"dialect" validate:"oneof=postgres mysql sqlite sqlite-pure"`
	Host            string `json:"host"`
	Port            int    `json:"port" validate:"gte=0,lte=65535"`
	User            string `json:"user"`
	Password        string `json:"password"`
	DB              string `json:"db"`
	SSLMode         string `json:"sslmode,omitempty"`
	Path            string `json:"path,omitempty"` // tylko sqlite
	AnalyticsSchema string `json:"analytics_schema" split_words:"true"`
	AutoMigrate     bool   `json:"auto_migrate" split_words:"true"`
}

// MongoConfig – logs_ventas, resumen_logs_diario, reportes_calidad.
type MongoConfig struct {
	URI      string `json:"uri,omitempty"`
	Host     string `json:"host"`
	Port     int    `json:"port" validate:"gte=0,lte=65535"`
	User     string `json:"user"`
	Password string `json:"password"`
	DB       string `json:"db" validate:"required"`
}

// Główny config aplikacji
type Config struct {
	AutoStart            bool   `json:"auto_start" split_words:"true"`
	RunHour              int    `json:"run_hour" split_words:"true" validate:"gte=0,lte=23"`
	CheckIntervalSeconds int    `json:"check_interval_seconds" split_words:"true" validate:"gte=0"`
	LogLevel             string `json:"log_level" split_words:"true" validate:"omitempty,oneof=trace debug info warn error"`
	Retries              int    `json:"retries" validate:"gte=0,lte=10"`
	RetryDelaySeconds    int    `json:"retry_delay_seconds" split_words:"true" validate:"gte=0"`
	CheckConnections     bool   `json:"check_connections" split_words:"true"`
	RawDir               string `json:"raw_dir,omitempty" split_words:"true"`    // zrzut surowych zbiorów, "" = wyłączony
	ExportDir            string `json:"export_dir,omitempty" split_words:"true"` // wyniki transformacji
	RetentionDays        int    `json:"retention_days" split_words:"true" validate:"gte=0"`
	MetricsAddr          string `json:"metrics_addr,omitempty" split_words:"true"`

	Database DatabaseConfig `json:"database" ignored:"true"`
	Mongo    MongoConfig    `json:"mongo" ignored:"true"`

	Sources  map[string]json.RawMessage `json:"sources" ignored:"true"`                                                 // nazwa -> surowy JSON źródła
	Datasets map[string]string          `json:"datasets" ignored:"true" validate:"dive,keys,required,endkeys,required"` // zbiór -> nazwa źródła
}

var validate = validator.New()

// Default – config dla docker-compose z oryginalnego pipeline'u.
func Default() *Config {
	rawSQL, _ := json.Marshal(map[string]string{"sales_schema": "ventas", "inventory_schema": "inventario"})
	rawMongo, _ := json.Marshal(map[string]string{"collection": "logs_ventas"})
	rawCSV, _ := json.Marshal(map[string]string{"dir": "./data/raw", "encoding": "utf-8", "delimiter": ","})

	return &Config{
		AutoStart:            false,
		RunHour:              6,
		CheckIntervalSeconds: 60,
		LogLevel:             "info",
		Retries:              2,
		RetryDelaySeconds:    300,
		CheckConnections:     true,
		RawDir:               "./data/staging",
		ExportDir:            "./data/processed",
		RetentionDays:        7,
		MetricsAddr:          "127.0.0.1:9108",
		Database: DatabaseConfig{
			Dialect:         "postgres",
			Host:            "postgres",
			Port:            5432,
			User:            "metaltronic_user",
			Password:        "metaltronic_pass",
			DB:              "metaltronic_db",
			SSLMode:         "disable",
			AnalyticsSchema: "analytics",
			AutoMigrate:     true,
		},
		Mongo: MongoConfig{
			Host:     "mongodb",
			Port:     27017,
			User:     "mongo_user",
			Password: "mongo_pass",
			DB:       "metaltronic_mongo",
		},
		Sources: map[string]json.RawMessage{
			"sql":   rawSQL,
			"mongo": rawMongo,
			"csv":   rawCSV,
		},
		Datasets: map[string]string{
			"ventas":     "sql",
			"inventario": "sql",
			"logs":       "mongo",
		},
	}
}

// LoadOrCreate ładuje config z pliku lub tworzy domyślny. Potem nakłada
// zmienne środowiskowe (.env obok configa też się liczy) i waliduje.
func LoadOrCreate(path string) (*Config, bool, error) {
	// upewnij się, że katalog istnieje
	_ = os.MkdirAll(filepath.Dir(path), 0o755)

	cfg, firstRun, err := readOrCreate(path)
	if err != nil {
		return nil, false, err
	}
	if err := ApplyEnv(cfg, filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return cfg, firstRun, nil
}

func readOrCreate(path string) (*Config, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			if err := Save(path, cfg); err != nil {
				return nil, false, fmt.Errorf("błąd zapisu domyślnego configa: %w", err)
			}
			return cfg, true, nil
		}
		return nil, false, fmt.Errorf("błąd otwierania configa: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, false, fmt.Errorf("błąd parsowania configa: %w", err)
	}
	if cfg.Sources == nil {
		cfg.Sources = map[string]json.RawMessage{}
	}
	if cfg.Datasets == nil {
		cfg.Datasets = map[string]string{}
	}
	return &cfg, false, nil
}

// ApplyEnv nakłada ETL_*, POSTGRES_* i MONGO_*. Pliki .env są opcjonalne
// i nie nadpisują zmiennych już ustawionych w środowisku.
func ApplyEnv(cfg *Config, envFiles ...string) error {
	for _, f := range append(envFiles, ".env") {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("błąd wczytywania %s: %w", f, err)
		}
	}
	if err := envconfig.Process("ETL", cfg); err != nil {
		return fmt.Errorf("env ETL: %w", err)
	}
	if err := envconfig.Process("POSTGRES", &cfg.Database); err != nil {
		return fmt.Errorf("env POSTGRES: %w", err)
	}
	if err := envconfig.Process("MONGO", &cfg.Mongo); err != nil {
		return fmt.Errorf("env MONGO: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("niepoprawny config: %w", err)
	}
	for ds, src := range c.Datasets {
		if _, ok := c.Sources[src]; !ok {
			return fmt.Errorf("niepoprawny config: zbiór %q wskazuje na nieznane źródło %q", ds, src)
		}
	}
	return nil
}

func Save(path string, cfg *Config) error {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

// Helper do odczytu konfiguracji konkretnego źródła do struktury docelowej
func (c *Config) UnmarshalSource(name string, v any) error {
	raw, ok := c.Sources[name]
	if !ok {
		return fmt.Errorf("brak źródła %q w configu", name)
	}
	return json.Unmarshal(raw, v)
}

// DSN dla gorm w zależności od dialektu.
func (d DatabaseConfig) DSN() string {
	switch d.Dialect {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.User, d.Password, d.Host, d.Port, d.DB)
	case "sqlite", "sqlite-pure":
		return d.Path
	default:
		ssl := d.SSLMode
		if ssl == "" {
			ssl = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			d.Host, d.Port, d.User, d.Password, d.DB, ssl)
	}
}

// ConnectionURI – jawne URI albo złożone z host/port/user/password.
func (m MongoConfig) ConnectionURI() string {
	if m.URI != "" {
		return m.URI
	}
	u := url.URL{Scheme: "mongodb", Host: m.Host + ":" + strconv.Itoa(m.Port), Path: "/"}
	if m.User != "" {
		u.User = url.UserPassword(m.User, m.Password)
	}
	return u.String()
}
