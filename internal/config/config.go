package config

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/bigbag/slipstream/internal/slip"
)

// DefaultBaudRate is used when no baud rate is configured.
const DefaultBaudRate = 115200

type Config struct {
	Decoder DecoderConfig `toml:"decoder"`
	Encoder EncoderConfig `toml:"encoder"`
	Serial  SerialConfig  `toml:"serial"`
	Log     LogConfig     `toml:"log"`
}

type DecoderConfig struct {
	MaxMessageSize int `toml:"max_message_size"`
	BufferSize     int `toml:"buffer_size"`
}

type EncoderConfig struct {
	BufferPadding int `toml:"buffer_padding"`
}

type SerialConfig struct {
	Port string `toml:"port"`
	Baud int    `toml:"baud"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSize    int    `toml:"max_size"` // MB
	MaxBackups int    `toml:"max_backups"`
	MaxAge     int    `toml:"max_age"` // days
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Decoder: DecoderConfig{
			MaxMessageSize: slip.DefaultMaxMessageSize,
			BufferSize:     slip.DefaultBufferSize,
		},
		Encoder: EncoderConfig{
			BufferPadding: slip.DefaultBufferPadding,
		},
		Serial: SerialConfig{
			Baud: DefaultBaudRate,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// Load reads a TOML file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Decoder.MaxMessageSize <= 0 {
		errs = append(errs, fmt.Errorf("decoder.max_message_size must be positive, got %d", c.Decoder.MaxMessageSize))
	}
	if c.Decoder.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("decoder.buffer_size must be positive, got %d", c.Decoder.BufferSize))
	}
	if c.Encoder.BufferPadding < 0 {
		errs = append(errs, fmt.Errorf("encoder.buffer_padding must not be negative, got %d", c.Encoder.BufferPadding))
	}
	if c.Serial.Baud <= 0 {
		errs = append(errs, fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level))
	}
	return errors.Join(errs...)
}

// DecoderOptions maps the decoder section onto slip options.
func (c Config) DecoderOptions() slip.DecoderOptions {
	return slip.DecoderOptions{
		MaxMessageSize: c.Decoder.MaxMessageSize,
		BufferSize:     c.Decoder.BufferSize,
	}
}
