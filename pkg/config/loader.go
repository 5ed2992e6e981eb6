package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/vtree/pkg/telemetry"
)

// Default returns the built-in configuration.
func Default() *Config {
	tel := telemetry.DefaultConfig()
	return &Config{
		Session:   "default",
		Telemetry: *tel,
		Store: StoreConfig{
			Enabled:    false,
			Path:       "vtree.db",
			KeepCycles: 1000,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Run: RunConfig{
			Interval: time.Second,
			Timeout:  5 * time.Second,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  "auto",
		},
	}
}

// Load reads the configuration at path over the defaults. An empty path
// returns the defaults. Files ending in .cue are validated against the
// CUE config schema, everything else is read as YAML.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		if data, err = decodeCUE(path, data); err != nil {
			return nil, err
		}
	}
	if err := decodeYAML(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// decodeYAML decodes data over cfg, rejecting unknown fields. JSON input
// is accepted as YAML.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides settings from the environment. LOG_LEVEL sets the
// log level and VTREE_DB enables the store at the given path.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if level := getenv("LOG_LEVEL"); level != "" {
		c.Telemetry.Logging.Level = strings.ToLower(level)
	}
	if db := getenv("VTREE_DB"); db != "" {
		c.Store.Enabled = true
		c.Store.Path = db
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the telemetry configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return c.Telemetry.Validate()
}
