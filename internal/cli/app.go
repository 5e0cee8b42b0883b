package cli

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aretw0/sequence"
	"github.com/aretw0/sequence/pkg/adapters/memory"
	"github.com/aretw0/sequence/pkg/adapters/redis"
	"github.com/aretw0/sequence/pkg/observability"
	"github.com/aretw0/sequence/pkg/persistence/middleware"
	"github.com/aretw0/sequence/pkg/pipeline"
	"github.com/aretw0/sequence/pkg/ports"
	"github.com/aretw0/sequence/pkg/registry"
	"github.com/aretw0/sequence/pkg/runner"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App wires the registry, run store, metrics and runner for a command.
type App struct {
	Logger   *slog.Logger
	Registry *registry.Registry
	Runner   *runner.Runner
	Metrics  *prometheus.Registry

	hooks   []sequence.Option
	closers []func() error
}

// NewApp builds an App from the shared options and loads opts.Dir if set.
func NewApp(opts RunOptions) (*App, error) {
	logger, err := createLogger(opts.LogLevel)
	if err != nil {
		return nil, err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := observability.NewMetrics(promReg)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	app := &App{
		Logger:   logger,
		Registry: registry.Default(),
		Metrics:  promReg,
		hooks: []sequence.Option{
			sequence.WithLogger(logger),
			sequence.WithLifecycleHooks(observability.Chain(
				metrics.Hooks(),
				observability.DebugHooks(logger),
			)),
		},
	}

	var store ports.RunStore = memory.NewStore()
	runnerOpts := []runner.Option{runner.WithLogger(logger)}
	if opts.RedisAddr != "" {
		rs := redis.New(opts.RedisAddr, "", 0)
		store = rs
		runnerOpts = append(runnerOpts, runner.WithLocker(redis.NewLocker(rs.Client(), "sequence:"), runner.DefaultLockTTL))
		app.closers = append(app.closers, rs.Close)
		logger.Debug("using redis run store", "addr", opts.RedisAddr)
	}

	mws, err := storeMiddleware(opts)
	if err != nil {
		app.Close()
		return nil, err
	}
	runnerOpts = append(runnerOpts, runner.WithStore(middleware.Chain(store, mws...)))
	app.Runner = runner.NewRunner(runnerOpts...)

	if opts.Dir != "" {
		defs, err := pipeline.LoadDir(opts.Dir)
		if err != nil {
			app.Close()
			return nil, err
		}
		names := make([]string, 0, len(defs))
		for name := range defs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := app.Add(defs[name]); err != nil {
				app.Close()
				return nil, err
			}
		}
		logger.Info("pipelines loaded", "dir", opts.Dir, "count", len(names))
	}

	return app, nil
}

func storeMiddleware(opts RunOptions) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(opts.MaskPatterns) > 0 {
		pii, err := middleware.NewPIIMiddleware(opts.MaskPatterns)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	if opts.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(opts.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decode encryption key: %w", err)
		}
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return mws, nil
}

// Add compiles def and registers it with the runner.
func (a *App) Add(def *pipeline.Definition) error {
	seq, err := pipeline.Compile(def, a.Registry, a.hooks...)
	if err != nil {
		return err
	}
	a.Runner.Register(def.Name, seq)
	return nil
}

// Store exposes the run store in use.
func (a *App) Store() ports.RunStore {
	return a.Runner.Store
}

// Close releases the run store connection.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
