package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigbag/slipstream/internal/slip"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "slipstream.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, slip.DefaultMaxMessageSize, cfg.Decoder.MaxMessageSize)
	assert.Equal(t, slip.DefaultBufferSize, cfg.Decoder.BufferSize)
	assert.Equal(t, slip.DefaultBufferPadding, cfg.Encoder.BufferPadding)
	assert.Equal(t, DefaultBaudRate, cfg.Serial.Baud)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[decoder]
max_message_size = 4096
buffer_size = 256

[serial]
port = "/dev/ttyUSB0"
baud = 921600

[log]
level = "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4096, cfg.Decoder.MaxMessageSize)
	assert.Equal(t, 256, cfg.Decoder.BufferSize)
	assert.Equal(t, slip.DefaultBufferPadding, cfg.Encoder.BufferPadding)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
	assert.Equal(t, 921600, cfg.Serial.Baud)
	assert.Equal(t, "debug", cfg.Log.Level)

	opts := cfg.DecoderOptions()
	assert.Equal(t, 4096, opts.MaxMessageSize)
	assert.Equal(t, 256, opts.BufferSize)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{"syntax", "[decoder\n", "config parse failed"},
		{"unknown key", "[decoder]\nmax_size = 1\n", `unknown key "decoder.max_size"`},
		{"negative size", "[decoder]\nmax_message_size = -1\n", "decoder.max_message_size must be positive"},
		{"bad level", "[log]\nlevel = \"loud\"\n", "log.level must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
