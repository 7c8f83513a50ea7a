package sagatx

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
)

// Config is the file and environment configuration of a Saga.
type Config struct {
	StopOnError bool          `mapstructure:"stop_on_error"`
	LogLevel    string        `mapstructure:"log_level"`
	Steps       []string      `mapstructure:"steps"` // names resolved through a StepRegistry
	Metrics     MetricsConfig `mapstructure:"metrics"`
	Tracing     TracingConfig `mapstructure:"tracing"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

type TracingConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	TracerName string `mapstructure:"tracer_name"`
}

const envPrefix = "SAGA"

func setDefaults(v *viper.Viper) {
	v.SetDefault("stop_on_error", true)
	v.SetDefault("log_level", "debug")
	v.SetDefault("steps", []string{})
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.namespace", "")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.tracer_name", tracerName)
}

// LoadConfig reads the config file at path, if any, and applies SAGA_*
// environment overrides (SAGA_STOP_ON_ERROR, SAGA_METRICS_ENABLED, ...).
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
	}
	return cfg, nil
}

// Options turns the configuration into Saga options. Metrics are registered
// on reg, or on the default Prometheus registerer when reg is nil.
func (c Config) Options(reg prometheus.Registerer) ([]Option, error) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}

	opts := []Option{
		WithLogger(NewDefaultLogger().WithLevel(level)),
		WithStopOnError(c.StopOnError),
	}

	if c.Metrics.Enabled {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		m, err := NewMetrics(reg, c.Metrics.Namespace)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		opts = append(opts, WithMetrics(m))
	}

	if c.Tracing.Enabled {
		name := c.Tracing.TracerName
		if name == "" {
			name = tracerName
		}
		opts = append(opts, WithTracer(otel.Tracer(name)))
	}

	return opts, nil
}
