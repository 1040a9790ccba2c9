// Package config loads the engine, transport, logging and metrics settings
// for pulse from an optional YAML file and PULSE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	goerrors "github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/pulse/engine"
	"github.com/robmorgan/pulse/timeexpr"
	"github.com/robmorgan/pulse/transport"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	ErrInvalidLookahead      = errors.New("lookahead must not be negative")
	ErrInvalidUpdateInterval = errors.New("update interval must be positive")
	ErrInvalidSampleRate     = errors.New("sample rate must be positive")
	ErrInvalidBPM            = errors.New("bpm must be a positive number")
	ErrInvalidPPQ            = errors.New("ppq must be positive")
	ErrInvalidTimeSignature  = errors.New("time signature must be [numerator, denominator] with positive values")
	ErrInvalidSwing          = errors.New("swing must be between 0 and 1")
	ErrInvalidExpression     = errors.New("invalid time expression")
	ErrInvalidLogging        = errors.New("invalid logging configuration")
)

// Config is the complete runtime configuration.
type Config struct {
	Engine    EngineConfig    `mapstructure:"engine"`
	Transport TransportConfig `mapstructure:"transport"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type EngineConfig struct {
	Lookahead      time.Duration `mapstructure:"lookahead"`
	UpdateInterval time.Duration `mapstructure:"update_interval"`
	SampleRate     float64       `mapstructure:"sample_rate"`
}

type TransportConfig struct {
	BPM              float64 `mapstructure:"bpm"`
	PPQ              int     `mapstructure:"ppq"`
	TimeSignature    []int   `mapstructure:"time_signature"`
	Swing            float64 `mapstructure:"swing"`
	SwingSubdivision string  `mapstructure:"swing_subdivision"`
	Loop             bool    `mapstructure:"loop"`
	LoopStart        string  `mapstructure:"loop_start"`
	LoopEnd          string  `mapstructure:"loop_end"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// LoadConfig reads the configuration. With an empty path it looks for
// pulse.yaml in the working directory and in ~/.config/pulse, and a missing
// file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pulse")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/pulse")
	}

	v.SetEnvPrefix("PULSE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, goerrors.WithStackTrace(fmt.Errorf("failed to read config file: %w", err))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, goerrors.WithStackTrace(fmt.Errorf("failed to unmarshal config: %w", err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, goerrors.WithStackTrace(fmt.Errorf("invalid configuration: %w", err))
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// The defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.lookahead", engine.DefaultLookahead)
	v.SetDefault("engine.update_interval", engine.DefaultUpdateInterval)
	v.SetDefault("engine.sample_rate", engine.DefaultSampleRate)

	v.SetDefault("transport.bpm", transport.DefaultBPM)
	v.SetDefault("transport.ppq", transport.DefaultPPQ)
	v.SetDefault("transport.time_signature", []int{4, 4})
	v.SetDefault("transport.swing", 0.0)
	v.SetDefault("transport.swing_subdivision", "8n")
	v.SetDefault("transport.loop", false)
	v.SetDefault("transport.loop_start", "0")
	v.SetDefault("transport.loop_end", "4m")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", ":9090")
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if c.Engine.Lookahead < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidLookahead, c.Engine.Lookahead)
	}
	if c.Engine.UpdateInterval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidUpdateInterval, c.Engine.UpdateInterval)
	}
	if c.Engine.SampleRate <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRate, c.Engine.SampleRate)
	}

	t := c.Transport
	if t.BPM <= 0 || math.IsNaN(t.BPM) || math.IsInf(t.BPM, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidBPM, t.BPM)
	}
	if t.PPQ <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPPQ, t.PPQ)
	}
	if len(t.TimeSignature) != 2 || t.TimeSignature[0] <= 0 || t.TimeSignature[1] <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTimeSignature, t.TimeSignature)
	}
	if t.Swing < 0 || t.Swing > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSwing, t.Swing)
	}
	for key, expr := range map[string]string{
		"swing_subdivision": t.SwingSubdivision,
		"loop_start":        t.LoopStart,
		"loop_end":          t.LoopEnd,
	} {
		if _, err := timeexpr.Parse(expr, timeexpr.Ticks); err != nil {
			return fmt.Errorf("%w: transport.%s: %v", ErrInvalidExpression, key, err)
		}
	}

	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLogging, err)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("%w: unknown format %q", ErrInvalidLogging, c.Logging.Format)
	}

	return nil
}

// ContextOptions returns the engine settings as engine.Context options.
func (c *Config) ContextOptions() []engine.Option {
	return []engine.Option{
		engine.WithLookahead(c.Engine.Lookahead),
		engine.WithUpdateInterval(c.Engine.UpdateInterval),
		engine.WithSampleRate(c.Engine.SampleRate),
	}
}

// TransportOptions returns the transport settings as transport options. Tempo
// and resolution come first so that the expressions after them are converted
// with the configured values.
func (c *Config) TransportOptions() []transport.Option {
	t := c.Transport
	opts := []transport.Option{
		transport.WithBPM(t.BPM),
		transport.WithPPQ(t.PPQ),
	}
	if len(t.TimeSignature) == 2 {
		opts = append(opts, transport.WithTimeSignature(t.TimeSignature[0], t.TimeSignature[1]))
	}
	opts = append(opts,
		transport.WithSwing(t.Swing),
		transport.WithSwingSubdivision(t.SwingSubdivision),
	)
	if t.Loop {
		opts = append(opts, transport.WithLoop(t.LoopStart, t.LoopEnd))
	}
	return opts
}
