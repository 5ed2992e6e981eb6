package config

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// configSchema constrains CUE configuration files. Fields left out keep
// their defaults.
const configSchema = `
#Duration: string & =~"^([0-9]+(\\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$"

#Config: {
	session?: string & =~"^[^/@#%]+$"

	telemetry?: {
		service_name?:    string
		service_version?: string
		environment?:     string
		logging?: {
			level?:  "trace" | "debug" | "info" | "warn" | "error" | "fatal"
			format?: "console" | "json"
			output?: string
			...
		}
		tracing?: {
			enabled?:       bool
			exporter?:      "otlp" | "stdout" | "none"
			endpoint?:      string
			sampling_rate?: number & >=0 & <=1
			export_timeout?: #Duration
			...
		}
		metrics?: {
			enabled?:        bool
			listen_address?: string
			path?:           string & =~"^/"
			...
		}
		...
	}

	store?: {
		enabled?:        bool
		path?:           string & !=""
		keep_cycles?:    int & >=0
		max_open_conns?: int & >=0
	}

	watch?: debounce?: #Duration

	run?: {
		interval?: #Duration
		ticks?:    int & >=0
		timeout?:  #Duration
		vars?: {...}
	}

	output?: {
		format?: "text" | "json"
		color?:  "auto" | "always" | "never"
	}
}
`

// decodeCUE validates a CUE configuration against #Config and returns it
// as JSON. A top-level "config" field is used when present.
func decodeCUE(filename string, data []byte) ([]byte, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(configSchema, cue.Filename("config_schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile config schema: %w", err)
	}

	val := ctx.CompileBytes(data, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %s", filename, formatCUEErrors(err))
	}
	if cfg := val.LookupPath(cue.ParsePath("config")); cfg.Exists() {
		val = cfg
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %s", filename, formatCUEErrors(err))
	}

	out, err := unified.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", filename, err)
	}
	return out, nil
}

func formatCUEErrors(err error) string {
	var msgs []string
	for _, e := range cueerrors.Errors(err) {
		msg := cueerrors.Details(e, nil)
		if pos := cueerrors.Positions(e); len(pos) > 0 {
			msg = fmt.Sprintf("%s:%d:%d: %s", pos[0].Filename(), pos[0].Line(), pos[0].Column(), strings.TrimSpace(msg))
		}
		msgs = append(msgs, strings.TrimSpace(msg))
	}
	if len(msgs) == 0 {
		return err.Error()
	}
	return strings.Join(msgs, "; ")
}
