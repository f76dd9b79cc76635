// Package conf loads alertcore settings from YAML files and the environment.
package conf

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/glucoalert/alertcore/internal/errors"
	"github.com/glucoalert/alertcore/internal/units"
)

// EnvPrefix is prepended to environment overrides, e.g. ALERTCTL_DATABASE_DRIVER.
const EnvPrefix = "ALERTCTL"

// Database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Settings is the root configuration.
type Settings struct {
	Database  DatabaseSettings  `mapstructure:"database" yaml:"database"`
	Logging   LoggingSettings   `mapstructure:"logging" yaml:"logging"`
	Display   DisplaySettings   `mapstructure:"display" yaml:"display"`
	HTTP      HTTPSettings      `mapstructure:"http" yaml:"http"`
	MQTT      MQTTSettings      `mapstructure:"mqtt" yaml:"mqtt"`
	Telemetry TelemetrySettings `mapstructure:"telemetry" yaml:"telemetry"`
	Alerting  AlertingSettings  `mapstructure:"alerting" yaml:"alerting"`
}

// DatabaseSettings selects the store backend.
type DatabaseSettings struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	// Path is the sqlite data directory.
	Path string `mapstructure:"path" yaml:"path"`
	// DSN is the mysql connection string.
	DSN   string `mapstructure:"dsn" yaml:"dsn"`
	Debug bool   `mapstructure:"debug" yaml:"debug"`
}

// LoggingSettings configures the zap logger.
type LoggingSettings struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DisplaySettings holds user presentation preferences.
type DisplaySettings struct {
	// Unit is "mgdl" or "mmol".
	Unit string `mapstructure:"unit" yaml:"unit"`
}

// HTTPSettings configures the API server.
type HTTPSettings struct {
	Listen          string        `mapstructure:"listen" yaml:"listen"`
	RateLimit       float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst" yaml:"rate_burst"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// MQTTSettings configures companion sync publishing.
type MQTTSettings struct {
	Enabled        bool          `mapstructure:"enabled" yaml:"enabled"`
	Broker         string        `mapstructure:"broker" yaml:"broker"`
	ClientID       string        `mapstructure:"client_id" yaml:"client_id"`
	Username       string        `mapstructure:"username" yaml:"username"`
	Password       string        `mapstructure:"password" yaml:"password"`
	Topic          string        `mapstructure:"topic" yaml:"topic"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
}

// TelemetrySettings configures Sentry error reporting.
type TelemetrySettings struct {
	Enabled     bool    `mapstructure:"enabled" yaml:"enabled"`
	DSN         string  `mapstructure:"dsn" yaml:"dsn"`
	Environment string  `mapstructure:"environment" yaml:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
}

// AlertingSettings controls seeding and evaluation.
type AlertingSettings struct {
	// SeedDefaults creates the default alert type and start-of-day entries on first start.
	SeedDefaults bool `mapstructure:"seed_defaults" yaml:"seed_defaults"`
	// CacheTTL bounds how long the evaluator keeps a kind's schedule.
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	// Schedule lists extra entries created on first start.
	Schedule []SeedEntry `mapstructure:"schedule" yaml:"schedule"`
}

// SeedEntry is a configured schedule entry. Value is in mg/dL for glucose kinds.
type SeedEntry struct {
	Kind      string    `mapstructure:"kind" yaml:"kind"`
	Start     TimeOfDay `mapstructure:"start" yaml:"start"`
	Value     int       `mapstructure:"value" yaml:"value"`
	AlertType string    `mapstructure:"alert_type" yaml:"alert_type"`
}

// DisplayUnit returns the parsed display unit, falling back to mg/dL.
func (s *Settings) DisplayUnit() units.Unit {
	u, err := units.ParseUnit(s.Display.Unit)
	if err != nil {
		return units.MgDL
	}
	return u
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("display.unit", string(units.MgDL))
	v.SetDefault("http.listen", "127.0.0.1:8088")
	v.SetDefault("http.rate_limit", 20.0)
	v.SetDefault("http.rate_burst", 40)
	v.SetDefault("http.shutdown_timeout", "10s")
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.client_id", "alertcore")
	v.SetDefault("mqtt.topic", "alertcore")
	v.SetDefault("mqtt.connect_timeout", "10s")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.environment", "production")
	v.SetDefault("telemetry.sample_rate", 1.0)
	v.SetDefault("alerting.seed_defaults", true)
	v.SetDefault("alerting.cache_ttl", "5m")
}

// Load reads settings from path, or from alertctl.yaml in the working
// directory and $HOME/.config/alertctl when path is empty. A missing
// default file is not an error; environment variables override both.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("alertctl")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/alertctl")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.New(err).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Context("path", path).
				Build()
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings, viper.DecodeHook(DecodeHook())); err != nil {
		return nil, errors.Newf("failed to decode settings: %w", err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Validate checks settings for values the services cannot start with.
func (s *Settings) Validate() error {
	invalid := func(field string, value any, reason string) error {
		return errors.Newf("invalid %s: %s", field, reason).
			Component("conf").
			Category(errors.CategoryValidation).
			Context("field", field).
			Context("value", value).
			Build()
	}

	switch s.Database.Driver {
	case DriverSQLite:
		if s.Database.Path == "" {
			return invalid("database.path", s.Database.Path, "required for sqlite")
		}
	case DriverMySQL:
		if s.Database.DSN == "" {
			return invalid("database.dsn", s.Database.DSN, "required for mysql")
		}
	default:
		return invalid("database.driver", s.Database.Driver, "expected sqlite or mysql")
	}

	if _, err := units.ParseUnit(s.Display.Unit); err != nil {
		return invalid("display.unit", s.Display.Unit, "expected mgdl or mmol")
	}
	if s.HTTP.RateLimit < 0 || s.HTTP.RateBurst < 0 {
		return invalid("http.rate_limit", s.HTTP.RateLimit, "must not be negative")
	}
	if s.MQTT.Enabled && s.MQTT.Broker == "" {
		return invalid("mqtt.broker", s.MQTT.Broker, "required when mqtt is enabled")
	}
	if s.Telemetry.SampleRate < 0 || s.Telemetry.SampleRate > 1 {
		return invalid("telemetry.sample_rate", s.Telemetry.SampleRate, "must be within [0, 1]")
	}
	for i := range s.Alerting.Schedule {
		if !s.Alerting.Schedule[i].Start.Valid() {
			return invalid("alerting.schedule.start", s.Alerting.Schedule[i].Start.Minutes(), "outside the day")
		}
		if s.Alerting.Schedule[i].Kind == "" {
			return invalid("alerting.schedule.kind", i, "required")
		}
	}
	return nil
}
