package config

import (
	"time"

	"github.com/openfroyo/vtree/pkg/telemetry"
)

// Config is the vtree CLI configuration.
type Config struct {
	// Session names the reconciliation session in logs, metrics and history.
	Session string `yaml:"session" validate:"required,excludesall=/@#%"`

	// Telemetry configures logging, tracing and metrics.
	Telemetry telemetry.Config `yaml:"telemetry"`

	// Store configures the cycle history database.
	Store StoreConfig `yaml:"store"`

	// Watch configures file watching.
	Watch WatchConfig `yaml:"watch"`

	// Run configures script-driven sessions.
	Run RunConfig `yaml:"run"`

	// Output configures command output.
	Output OutputConfig `yaml:"output"`
}

// StoreConfig configures the SQLite history store.
type StoreConfig struct {
	// Enabled turns cycle recording on.
	Enabled bool `yaml:"enabled"`

	// Path is the database file, or ":memory:".
	Path string `yaml:"path" validate:"required_if=Enabled true"`

	// KeepCycles bounds the history per session; 0 keeps everything.
	KeepCycles int `yaml:"keep_cycles" validate:"gte=0"`

	// MaxOpenConns bounds the connection pool.
	MaxOpenConns int `yaml:"max_open_conns" validate:"gte=0"`
}

// WatchConfig configures the file watcher.
type WatchConfig struct {
	// Debounce coalesces bursts of file events into one reload.
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
}

// RunConfig configures script-driven sessions.
type RunConfig struct {
	// Interval is the time between view(tick) evaluations.
	Interval time.Duration `yaml:"interval" validate:"gt=0"`

	// Ticks stops the run after this many updates; 0 runs until interrupted.
	Ticks int `yaml:"ticks" validate:"gte=0"`

	// Timeout bounds one view evaluation.
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`

	// Vars are predeclared script globals.
	Vars map[string]any `yaml:"vars"`
}

// OutputConfig configures command output.
type OutputConfig struct {
	// Format is text or json.
	Format string `yaml:"format" validate:"oneof=text json"`

	// Color is auto, always or never.
	Color string `yaml:"color" validate:"oneof=auto always never"`
}
