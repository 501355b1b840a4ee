// Package config loads stepform settings with Viper.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gabrielmiguelok/stepform/pkg/logging"
	"github.com/gabrielmiguelok/stepform/pkg/protocol"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config holds all configuration values for stepform.
type Config struct {
	Addr            string   `mapstructure:"addr" yaml:"addr"`
	LogLevel        string   `mapstructure:"log_level" yaml:"log_level"`
	LogJSON         bool     `mapstructure:"log_json" yaml:"log_json"`
	Codec           string   `mapstructure:"codec" yaml:"codec"`
	Definition      string   `mapstructure:"definition" yaml:"definition"`
	AllowedOrigins  []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	InsecureDevMode bool     `mapstructure:"insecure_dev_mode" yaml:"insecure_dev_mode"`
	MaxSessions     int      `mapstructure:"max_sessions" yaml:"max_sessions"`
	Timeouts        Timeouts `mapstructure:"timeouts" yaml:"timeouts"`
}

// Timeouts configures server and component deadlines.
type Timeouts struct {
	// Read is the WebSocket read deadline; a silent client is dropped
	// after it.
	Read     time.Duration `mapstructure:"read" yaml:"read"`
	Write    time.Duration `mapstructure:"write" yaml:"write"`
	Mount    time.Duration `mapstructure:"mount" yaml:"mount"`
	Event    time.Duration `mapstructure:"event" yaml:"event"`
	Shutdown time.Duration `mapstructure:"shutdown" yaml:"shutdown"`
}

// DefaultTimeouts returns the default deadlines.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Read:     60 * time.Second,
		Write:    10 * time.Second,
		Mount:    5 * time.Second,
		Event:    3 * time.Second,
		Shutdown: 30 * time.Second,
	}
}

// Options control where Load looks.
type Options struct {
	// File is an explicit config file. When empty, stepform.yaml in the
	// working directory is read if present.
	File string

	// Flags, when set, override file and environment values. Flag names
	// use dashes: --log-level maps to log_level.
	Flags *pflag.FlagSet
}

// ProjectFile is the config file read from the working directory.
const ProjectFile = "stepform.yaml"

// Load resolves configuration with precedence:
// flags > STEPFORM_* env vars > config file > defaults.
func Load(opts Options) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	def := DefaultTimeouts()
	v.SetDefault("addr", ":3000")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("codec", "json")
	v.SetDefault("definition", "")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("insecure_dev_mode", false)
	v.SetDefault("max_sessions", 0)
	v.SetDefault("timeouts.read", def.Read)
	v.SetDefault("timeouts.write", def.Write)
	v.SetDefault("timeouts.mount", def.Mount)
	v.SetDefault("timeouts.event", def.Event)
	v.SetDefault("timeouts.shutdown", def.Shutdown)

	v.SetEnvPrefix("STEPFORM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	switch {
	case opts.File != "":
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", opts.File, err)
		}
	case fileExists(ProjectFile):
		v.SetConfigFile(ProjectFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", ProjectFile, err)
		}
	}

	if opts.Flags != nil {
		var bindErr error
		opts.Flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if !isKnownKey(key) {
				return
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = fmt.Errorf("binding flag %s: %w", f.Name, err)
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.AllowedOrigins = splitList(cfg.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("%w: addr %q: %v", ErrInvalid, c.Addr, err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := protocol.CodecFor(c.Codec); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Definition != "" && !fileExists(c.Definition) {
		return fmt.Errorf("%w: definition %q not found", ErrInvalid, c.Definition)
	}

	if c.MaxSessions < 0 {
		return fmt.Errorf("%w: max_sessions must not be negative", ErrInvalid)
	}

	t := c.Timeouts
	for _, tt := range []struct {
		name string
		d    time.Duration
	}{
		{"read", t.Read},
		{"write", t.Write},
		{"mount", t.Mount},
		{"event", t.Event},
		{"shutdown", t.Shutdown},
	} {
		if tt.d <= 0 {
			return fmt.Errorf("%w: timeouts.%s must be positive, got %s", ErrInvalid, tt.name, tt.d)
		}
	}
	return nil
}

var knownKeys = map[string]struct{}{
	"addr": {}, "log_level": {}, "log_json": {}, "codec": {}, "definition": {},
	"allowed_origins": {}, "insecure_dev_mode": {}, "max_sessions": {},
}

func isKnownKey(key string) bool {
	_, ok := knownKeys[key]
	return ok
}

// splitList accepts both YAML lists and a single comma separated value,
// the form environment variables arrive in.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
