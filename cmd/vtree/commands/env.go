package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/vtree/pkg/config"
	"github.com/openfroyo/vtree/pkg/host"
	"github.com/openfroyo/vtree/pkg/stores"
	"github.com/openfroyo/vtree/pkg/telemetry"
	"github.com/openfroyo/vtree/pkg/treefile"
	"github.com/openfroyo/vtree/pkg/vtree"
	"github.com/openfroyo/vtree/pkg/widgets"
)

// env is the per-invocation runtime shared by the commands.
type env struct {
	cfg    *config.Config
	tel    *telemetry.Telemetry
	logger zerolog.Logger
	out    *printer
	loader *treefile.Loader
	store  *stores.SQLiteStore
}

// setup loads configuration, applies flag overrides and builds telemetry.
// The store is opened only when needStore is set and a database is
// configured.
func setup(cmd *cobra.Command, needStore bool) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)

	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if jsonOutput {
		cfg.Output.Format = "json"
	}
	if noColor {
		cfg.Output.Color = "never"
		cfg.Telemetry.Logging.NoColor = true
	}
	if sessionName != "" {
		cfg.Session = sessionName
	}
	if dbPath != "" {
		cfg.Store.Enabled = true
		cfg.Store.Path = dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tel, err := telemetry.NewTelemetry(&cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	// Per-logger levels apply from here on.
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	log.Logger = tel.Logger.Zerolog()

	e := &env{
		cfg:    cfg,
		tel:    tel,
		logger: tel.Logger.NewComponentLogger("cli").Zerolog(),
		out:    newPrinter(cmd.OutOrStdout(), cfg.Output),
		loader: treefile.NewLoader(widgets.Schema),
	}

	if needStore && cfg.Store.Enabled {
		store, err := stores.NewSQLiteStore(stores.Config{
			Path:         cfg.Store.Path,
			MaxOpenConns: cfg.Store.MaxOpenConns,
		})
		if err != nil {
			return nil, err
		}
		ctx := cmd.Context()
		if err := store.Init(ctx); err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		e.store = store
		e.logger.Debug().Str("path", cfg.Store.Path).Msg("Cycle history enabled")
	}
	return e, nil
}

// context returns ctx carrying the telemetry instance.
func (e *env) context(ctx context.Context) context.Context {
	return e.tel.WithContext(ctx)
}

// close releases the store and flushes telemetry.
func (e *env) close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.logger.Warn().Err(err).Msg("Failed to close store")
		}
	}
	if err := e.tel.Shutdown(context.Background()); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to shut down telemetry")
	}
}

// newHost builds a host wired into telemetry and, when enabled, the store.
func (e *env) newHost() *host.Host {
	var h *host.Host
	opts := e.tel.SessionOptions(e.cfg.Session)
	if e.store != nil {
		snapshot := func() []stores.RegistryEntry { return h.Snapshot() }
		opts = append(opts, vtree.WithObserver(stores.NewObserver(e.store, e.logger, snapshot)))
	}
	h = host.New(e.logger, opts...)
	return h
}

// load reads a snapshot file as an instrumented source load.
func (e *env) load(ctx context.Context, path string) (*vtree.Node, error) {
	return telemetry.LoadSource(ctx, path, func(context.Context) (*vtree.Node, error) {
		return e.loader.LoadFile(path)
	})
}

// applied runs the bookkeeping that follows every cycle.
func (e *env) applied(ctx context.Context, h *host.Host, report *vtree.Report, err error) {
	e.tel.Metrics.SetRegistryEntries(e.cfg.Session, len(h.Registry()))
	if report != nil {
		if perr := e.out.report(report, err); perr != nil {
			e.logger.Warn().Err(perr).Msg("Failed to print report")
		}
	}
	if e.store == nil || e.cfg.Store.KeepCycles == 0 {
		return
	}
	n, perr := e.store.PruneCycles(ctx, e.cfg.Session, e.cfg.Store.KeepCycles)
	if perr != nil {
		e.logger.Warn().Err(perr).Msg("Failed to prune cycle history")
		return
	}
	if n > 0 {
		e.logger.Debug().Int64("pruned", n).Msg("Pruned cycle history")
	}
}

// startServer starts the status server on addr, if set.
func (e *env) startServer(addr string, h *host.Host) (*telemetry.Server, error) {
	if addr == "" {
		return nil, nil
	}
	mcfg := e.cfg.Telemetry.Metrics
	mcfg.ListenAddress = addr
	srv := telemetry.NewServer(mcfg, e.tel.Metrics, e.tel.Logger)
	if e.store != nil {
		srv.AddHealthCheck("store", e.store.HealthCheck)
	}
	srv.AddHealthCheck("session", func(context.Context) error {
		if !h.Live() {
			return fmt.Errorf("no live session")
		}
		return nil
	})
	srv.HandleJSON("/registry", func(*http.Request) (any, error) {
		return h.Registry(), nil
	})
	srv.HandleJSON("/tree", func(*http.Request) (any, error) {
		last := h.Last()
		if last == nil {
			return nil, fmt.Errorf("no live session")
		}
		return treefile.FromNode(last)
	})
	if err := srv.Start(); err != nil {
		return nil, fmt.Errorf("failed to start status server: %w", err)
	}
	return srv, nil
}
