package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	PrefsMemory   = "memory"
	PrefsSQLite   = "sqlite"
	PrefsPostgres = "postgres"
)

var (
	ErrMissingAPIURL      = errors.New("API_URL is required")
	ErrInvalidPrefsDriver = errors.New("PREFS_DRIVER must be memory, sqlite or postgres")
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required for the postgres preference store")
)

type Config struct {
	API       APIConfig       `envPrefix:"API_"`
	Dashboard DashboardConfig `envPrefix:"DASHBOARD_"`
	Server    ServerConfig    `envPrefix:"HTTP_"`
	Prefs     PrefsConfig     `envPrefix:"PREFS_"`
	MqttCfg   MqttConfig      `envPrefix:"MQTT_"`
	Weather   WeatherConfig   `envPrefix:"WEATHER_"`
	Cron      CronConfig      `envPrefix:"CRON_"`

	DatabaseURL      string `env:"DATABASE_URL"`
	MigrationsFolder string `env:"MIGRATIONS_FOLDER"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"INFO"`
}

// APIConfig authenticates against the home-automation API with either a
// static token or login credentials.
type APIConfig struct {
	URL        string        `env:"URL"`
	Token      string        `env:"TOKEN"`
	Email      string        `env:"EMAIL"`
	Password   string        `env:"PASSWORD"`
	MaxRetries uint64        `env:"MAX_RETRIES" envDefault:"3"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

type DashboardConfig struct {
	// ID of the dashboard to show, empty for the account default.
	ID               string        `env:"ID"`
	PollInterval     time.Duration `env:"POLL_INTERVAL" envDefault:"3s"`
	Debounce         time.Duration `env:"DEBOUNCE" envDefault:"180ms"`
	EditPasswordHash string        `env:"EDIT_PASSWORD_HASH"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"12h"`
}

type ServerConfig struct {
	ListenAddr       string        `env:"LISTEN_ADDR" envDefault:"0.0.0.0:8000"`
	ReadTimeout      time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout     time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	PingIntervalSecs int           `env:"PING_INTERVAL_SECS" envDefault:"30"`
}

type PrefsConfig struct {
	Driver string `env:"DRIVER" envDefault:"memory"`
	Path   string `env:"PATH" envDefault:"homedash.db"`
}

type MqttConfig struct {
	Host        string `env:"HOST"`
	Username    string `env:"USER"`
	Password    string `env:"PASS"`
	ClientID    string `env:"CLIENT_ID" envDefault:"homedash"`
	TopicPrefix string `env:"TOPIC_PREFIX" envDefault:"homedash"`
}

type WeatherConfig struct {
	GeocodingURL string        `env:"GEOCODING_URL"`
	ForecastURL  string        `env:"FORECAST_URL"`
	TTL          time.Duration `env:"TTL" envDefault:"10m"`
}

type CronConfig struct {
	Timezone  string        `env:"TIMEZONE"`
	Reload    string        `env:"RELOAD" envDefault:"*/15 * * * *"`
	Cleanup   string        `env:"CLEANUP" envDefault:"0 3 * * *"`
	Retention time.Duration `env:"RETENTION" envDefault:"192h"`
}

// Spec prefixes a cron expression with the configured timezone.
func (c CronConfig) Spec(expr string) string {
	if c.Timezone == "" {
		return expr
	}
	return fmt.Sprintf("CRON_TZ=%s %s", c.Timezone, expr)
}

// Parse reads the configuration from the environment.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.API.URL == "" {
		return ErrMissingAPIURL
	}
	switch c.Prefs.Driver {
	case PrefsMemory, PrefsSQLite:
	case PrefsPostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPrefsDriver, c.Prefs.Driver)
	}
	return nil
}
