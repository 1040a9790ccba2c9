package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robmorgan/pulse/engine"
	"github.com/robmorgan/pulse/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, 100*time.Millisecond, cfg.Engine.Lookahead)
	assert.Equal(t, 25*time.Millisecond, cfg.Engine.UpdateInterval)
	assert.Equal(t, 44100.0, cfg.Engine.SampleRate)
	assert.Equal(t, 120.0, cfg.Transport.BPM)
	assert.Equal(t, 192, cfg.Transport.PPQ)
	assert.Equal(t, []int{4, 4}, cfg.Transport.TimeSignature)
	assert.Equal(t, "8n", cfg.Transport.SwingSubdivision)
	assert.False(t, cfg.Transport.Loop)
	assert.Equal(t, "0", cfg.Transport.LoopStart)
	assert.Equal(t, "4m", cfg.Transport.LoopEnd)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9090", cfg.Metrics.Address)

	assert.Equal(t, cfg, Default())
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
engine:
  lookahead: 50ms
  update_interval: 10ms
transport:
  bpm: 90
  ppq: 96
  time_signature: [6, 8]
  swing: 0.5
  swing_subdivision: 16n
  loop: true
  loop_start: 1m
  loop_end: 3m
logging:
  level: debug
  format: json
metrics:
  enabled: true
  address: 127.0.0.1:9100
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 50*time.Millisecond, cfg.Engine.Lookahead)
	assert.Equal(t, 10*time.Millisecond, cfg.Engine.UpdateInterval)
	assert.Equal(t, 90.0, cfg.Transport.BPM)
	assert.Equal(t, 96, cfg.Transport.PPQ)
	assert.Equal(t, []int{6, 8}, cfg.Transport.TimeSignature)
	assert.Equal(t, 0.5, cfg.Transport.Swing)
	assert.True(t, cfg.Transport.Loop)
	assert.Equal(t, "1m", cfg.Transport.LoopStart)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Address)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("PULSE_TRANSPORT_BPM", "140")
	t.Setenv("PULSE_LOGGING_LEVEL", "warn")

	cfg, err := LoadConfig(writeConfig(t, "transport:\n  bpm: 100\n"))
	require.NoError(t, err)

	assert.Equal(t, 140.0, cfg.Transport.BPM)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"negative lookahead", func(c *Config) { c.Engine.Lookahead = -time.Millisecond }, ErrInvalidLookahead},
		{"zero update interval", func(c *Config) { c.Engine.UpdateInterval = 0 }, ErrInvalidUpdateInterval},
		{"zero sample rate", func(c *Config) { c.Engine.SampleRate = 0 }, ErrInvalidSampleRate},
		{"zero bpm", func(c *Config) { c.Transport.BPM = 0 }, ErrInvalidBPM},
		{"zero ppq", func(c *Config) { c.Transport.PPQ = 0 }, ErrInvalidPPQ},
		{"short time signature", func(c *Config) { c.Transport.TimeSignature = []int{4} }, ErrInvalidTimeSignature},
		{"swing above one", func(c *Config) { c.Transport.Swing = 1.5 }, ErrInvalidSwing},
		{"bad loop end", func(c *Config) { c.Transport.LoopEnd = "4q" }, ErrInvalidExpression},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, ErrInvalidLogging},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, ErrInvalidLogging},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tc.mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), tc.want)
		})
	}

	require.NoError(t, Default().Validate())
}

func TestTransportOptions(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Transport.BPM = 60
	cfg.Transport.PPQ = 96
	cfg.Transport.TimeSignature = []int{3, 4}
	cfg.Transport.Swing = 0.25
	cfg.Transport.Loop = true
	cfg.Transport.LoopStart = "1m"
	cfg.Transport.LoopEnd = "2m"

	ctx := engine.NewContext(engine.NewVirtualHeartbeat(), func() float64 { return 0 }, cfg.ContextOptions()...)
	tr, err := transport.New(ctx, cfg.TransportOptions()...)
	require.NoError(t, err)

	assert.Equal(t, 60.0, tr.BPM())
	assert.Equal(t, 96, tr.PPQ())
	assert.Equal(t, 3.0, tr.TimeSignature())
	assert.Equal(t, 0.25, tr.Swing())
	assert.True(t, tr.Loop())
	// One 3/4 measure at 60 BPM lasts three seconds.
	assert.InDelta(t, 3.0, tr.LoopStart(), 1e-9)
	assert.InDelta(t, 6.0, tr.LoopEnd(), 1e-9)
}
