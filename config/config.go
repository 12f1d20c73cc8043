package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de flowscan.
type Config struct {
	Scanner    ScannerConfig   `yaml:"scanner"`
	Thresholds ThresholdConfig `yaml:"thresholds"`
	Paper      PaperConfig     `yaml:"paper"`
	API        APIConfig       `yaml:"api"`
	Storage    StorageConfig   `yaml:"storage"`
	Notify     NotifyConfig    `yaml:"notify"`
	Server     ServerConfig    `yaml:"server"`
	Log        LogConfig       `yaml:"log"`
}

// ScannerConfig controla el loop de escaneo.
type ScannerConfig struct {
	IntervalSeconds int      `yaml:"interval_seconds"`
	Tickers         []string `yaml:"tickers"`
	TickerDelayMs   int      `yaml:"ticker_delay_ms"` // pausa entre tickers dentro de un ciclo
	WindowDays      int      `yaml:"window_days"`     // expiraciones a recorrer por ticker
	MaxExpirations  int      `yaml:"max_expirations"` // tope de cadenas por ticker y ciclo
}

// ThresholdConfig son los umbrales del detector de actividad inusual.
type ThresholdConfig struct {
	MinPremium       float64 `yaml:"min_premium"`
	MinVolumeOIRatio float64 `yaml:"min_volume_oi_ratio"`
	MinVolume        int64   `yaml:"min_volume"`
	MaxDTE           int     `yaml:"max_dte"`
	PreferOTMPercent float64 `yaml:"prefer_otm_percent"`
}

// PaperConfig controla la simulación de trades.
type PaperConfig struct {
	AutoEntry         *bool   `yaml:"auto_entry"` // nil = true
	Quantity          int     `yaml:"quantity"`
	TimeLimitHours    float64 `yaml:"time_limit_hours"`
	StopLossPercent   float64 `yaml:"stop_loss_percent"`   // 0 = desactivado
	TakeProfitPercent float64 `yaml:"take_profit_percent"` // 0 = desactivado
}

// APIConfig contiene el acceso a la API de market data (Tradier).
type APIConfig struct {
	BaseURL    string  `yaml:"base_url"`
	Token      string  `yaml:"-"` // solo desde TRADIER_TOKEN
	RatePerSec float64 `yaml:"rate_per_sec"`
	TimeoutSec int     `yaml:"timeout_seconds"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	Driver                 string `yaml:"driver"` // sqlite | postgres
	DSN                    string `yaml:"dsn"`    // ruta SQLite, ":memory:" o DSN de Postgres
	DuplicateWindowMinutes int    `yaml:"duplicate_window_minutes"`
}

// NotifyConfig controla a quién y cómo se avisa de una señal.
type NotifyConfig struct {
	Console     *bool     `yaml:"console"` // nil = true
	Table       bool      `yaml:"table"`
	MinStrength string    `yaml:"min_strength"` // low | medium | high
	SMS         SMSConfig `yaml:"sms"`
}

// SMSConfig son los datos de Twilio. Las credenciales solo vienen del entorno.
type SMSConfig struct {
	Enabled    bool     `yaml:"enabled"`
	From       string   `yaml:"from"`
	To         []string `yaml:"to"`
	AccountSID string   `yaml:"-"`
	AuthToken  string   `yaml:"-"`
}

// ServerConfig controla la API HTTP de solo lectura.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Si path no existe se usan solo defaults y entorno.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate comprueba las combinaciones que no tienen un default razonable.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite":
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("config.Validate: postgres storage needs a DSN (storage.dsn or DATABASE_URL)")
		}
	default:
		return fmt.Errorf("config.Validate: unknown storage driver %q", c.Storage.Driver)
	}
	if c.Notify.SMS.Enabled {
		if c.Notify.SMS.AccountSID == "" || c.Notify.SMS.AuthToken == "" {
			return fmt.Errorf("config.Validate: sms enabled but TWILIO_ACCOUNT_SID / TWILIO_AUTH_TOKEN missing")
		}
		if c.Notify.SMS.From == "" || len(c.Notify.SMS.To) == 0 {
			return fmt.Errorf("config.Validate: sms enabled but from/to not set")
		}
	}
	return nil
}

// ScanInterval devuelve el intervalo de escaneo como time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.IntervalSeconds) * time.Second
}

// TickerDelay devuelve la pausa entre tickers.
func (c *Config) TickerDelay() time.Duration {
	return time.Duration(c.Scanner.TickerDelayMs) * time.Millisecond
}

// TimeLimit devuelve el tiempo máximo de un paper trade.
func (c *Config) TimeLimit() time.Duration {
	return time.Duration(c.Paper.TimeLimitHours * float64(time.Hour))
}

// DuplicateWindow devuelve la ventana de deduplicación de señales.
func (c *Config) DuplicateWindow() time.Duration {
	return time.Duration(c.Storage.DuplicateWindowMinutes) * time.Minute
}

// APITimeout devuelve el timeout HTTP hacia el broker.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSec) * time.Second
}

// ConsoleEnabled indica si se imprime cada señal por stdout.
func (c *Config) ConsoleEnabled() bool {
	return c.Notify.Console == nil || *c.Notify.Console
}

// AutoEntry indica si se abre un paper trade por cada señal nueva.
func (c *Config) AutoEntry() bool {
	return c.Paper.AutoEntry == nil || *c.Paper.AutoEntry
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("TRADIER_TOKEN"); v != "" {
		cfg.API.Token = v
	}
	if v := os.Getenv("TRADIER_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.Driver = "postgres"
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("TWILIO_ACCOUNT_SID"); v != "" {
		cfg.Notify.SMS.AccountSID = v
	}
	if v := os.Getenv("TWILIO_AUTH_TOKEN"); v != "" {
		cfg.Notify.SMS.AuthToken = v
	}
	if v := os.Getenv("TWILIO_FROM"); v != "" {
		cfg.Notify.SMS.From = v
	}
	if v := os.Getenv("TWILIO_TO"); v != "" {
		cfg.Notify.SMS.To = splitList(v)
	}
	if v := os.Getenv("FLOWSCAN_TICKERS"); v != "" {
		cfg.Scanner.Tickers = splitList(v)
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Scanner.IntervalSeconds <= 0 {
		cfg.Scanner.IntervalSeconds = 300
	}
	if len(cfg.Scanner.Tickers) == 0 {
		cfg.Scanner.Tickers = []string{"SPY", "QQQ", "AAPL", "NVDA", "TSLA"}
	}
	for i, t := range cfg.Scanner.Tickers {
		cfg.Scanner.Tickers[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	if cfg.Scanner.TickerDelayMs <= 0 {
		cfg.Scanner.TickerDelayMs = 500
	}
	if cfg.Scanner.WindowDays <= 0 {
		cfg.Scanner.WindowDays = 60
	}
	if cfg.Scanner.MaxExpirations <= 0 {
		cfg.Scanner.MaxExpirations = 4
	}

	if cfg.Thresholds.MinPremium <= 0 {
		cfg.Thresholds.MinPremium = 10_000
	}
	if cfg.Thresholds.MinVolumeOIRatio <= 0 {
		cfg.Thresholds.MinVolumeOIRatio = 2.0
	}
	if cfg.Thresholds.MinVolume <= 0 {
		cfg.Thresholds.MinVolume = 100
	}
	if cfg.Thresholds.MaxDTE <= 0 {
		cfg.Thresholds.MaxDTE = 60
	}
	if cfg.Thresholds.PreferOTMPercent <= 0 {
		cfg.Thresholds.PreferOTMPercent = 5
	}

	if cfg.Paper.Quantity <= 0 {
		cfg.Paper.Quantity = 1
	}
	if cfg.Paper.TimeLimitHours <= 0 {
		cfg.Paper.TimeLimitHours = 24
	}

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "https://api.tradier.com/v1"
	}
	if cfg.API.TimeoutSec <= 0 {
		cfg.API.TimeoutSec = 10
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DSN == "" && cfg.Storage.Driver == "sqlite" {
		cfg.Storage.DSN = "flowscan.db"
	}
	if cfg.Storage.DuplicateWindowMinutes <= 0 {
		cfg.Storage.DuplicateWindowMinutes = 60
	}

	if cfg.Notify.MinStrength == "" {
		cfg.Notify.MinStrength = "low"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
