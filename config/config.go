// Package config handles movedump.toml configuration: deserializer limits,
// logging and the module cache.
package config

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/wippyai/move-binary-format/errors"
	"github.com/wippyai/move-binary-format/format"
)

// DefaultCacheSize is the number of modules the release cache keeps.
const DefaultCacheSize = 1024

// Config is the parsed configuration file.
type Config struct {
	Deserializer Deserializer `toml:"deserializer"`
	Log          Log          `toml:"log"`
	Cache        Cache        `toml:"cache"`

	// Path is the file the configuration was loaded from (set at load time).
	Path string `toml:"-"`
}

// Deserializer bounds what the decoder accepts.
type Deserializer struct {
	MaxTypeDepth     int  `toml:"max_type_depth"`
	MaxBinarySize    int  `toml:"max_binary_size"`
	MaxCodeLength    int  `toml:"max_code_length"`
	MaxSignatureSize int  `toml:"max_signature_size"`
	CheckBounds      bool `toml:"check_bounds"`
}

// Log configures the zap logger.
type Log struct {
	Level       string `toml:"level"`
	Encoding    string `toml:"encoding"`
	Development bool   `toml:"development"`
}

// Cache configures the content-addressed module cache.
type Cache struct {
	Size int `toml:"size"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	d := format.DefaultDeserializerConfig()
	return &Config{
		Deserializer: Deserializer{
			MaxTypeDepth:     d.MaxTypeDepth,
			MaxBinarySize:    d.MaxBinarySize,
			MaxCodeLength:    d.MaxCodeLength,
			MaxSignatureSize: d.MaxSignatureSize,
			CheckBounds:      true,
		},
		Log: Log{
			Level:    "info",
			Encoding: "console",
		},
		Cache: Cache{Size: DefaultCacheSize},
	}
}

// Load reads and validates the configuration at path. Keys missing from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "cannot read "+path)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	c.Path = path
	return c, nil
}

// Parse decodes TOML on top of Default and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindMalformed, err, "parse error")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Detail("unknown keys: %s", strings.Join(keys, ", ")).
			Value(keys).
			Build()
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks every value against the format's hard limits.
func (c *Config) Validate() error {
	d := c.Deserializer
	switch {
	case d.MaxTypeDepth < 1 || d.MaxTypeDepth > format.DefaultMaxTypeDepth:
		return invalid("deserializer.max_type_depth", "must be in 1..%d, got %d", format.DefaultMaxTypeDepth, d.MaxTypeDepth)
	case d.MaxBinarySize < 1:
		return invalid("deserializer.max_binary_size", "must be positive, got %d", d.MaxBinarySize)
	case d.MaxCodeLength < 1 || d.MaxCodeLength > format.BytecodeCountMax:
		return invalid("deserializer.max_code_length", "must be in 1..%d, got %d", format.BytecodeCountMax, d.MaxCodeLength)
	case d.MaxSignatureSize < 1 || d.MaxSignatureSize > format.SignatureSizeMax:
		return invalid("deserializer.max_signature_size", "must be in 1..%d, got %d", format.SignatureSizeMax, d.MaxSignatureSize)
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return invalid("log.level", "%v", err)
	}
	if c.Log.Encoding != "json" && c.Log.Encoding != "console" {
		return invalid("log.encoding", "must be json or console, got %q", c.Log.Encoding)
	}
	if c.Cache.Size < 1 {
		return invalid("cache.size", "must be positive, got %d", c.Cache.Size)
	}
	return nil
}

// DeserializerConfig converts the [deserializer] section to decoder limits.
func (c *Config) DeserializerConfig() format.DeserializerConfig {
	return format.DeserializerConfig{
		MaxBinarySize:    c.Deserializer.MaxBinarySize,
		MaxTypeDepth:     c.Deserializer.MaxTypeDepth,
		MaxCodeLength:    c.Deserializer.MaxCodeLength,
		MaxSignatureSize: c.Deserializer.MaxSignatureSize,
		SkipBoundsCheck:  !c.Deserializer.CheckBounds,
	}
}

// Logger builds a zap logger from the [log] section.
func (l Log) Logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(l.Level)
	if err != nil {
		return nil, invalid("log.level", "%v", err)
	}
	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	zc.Encoding = l.Encoding
	logger, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "cannot build logger")
	}
	return logger, nil
}

func invalid(key, detail string, args ...any) error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Path(strings.Split(key, ".")...).
		Detail(detail, args...).
		Build()
}
