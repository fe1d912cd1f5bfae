package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aretw0/sluice"
	"github.com/aretw0/sluice/internal/config"
	"github.com/aretw0/sluice/internal/telemetry"
	"github.com/aretw0/sluice/pkg/contrib"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/observability"
	"github.com/aretw0/sluice/pkg/registry"
	"github.com/aretw0/sluice/pkg/session"
)

// Runtime bundles everything a command needs, built from one configuration.
type Runtime struct {
	Config   *config.Config
	Logger   *slog.Logger
	Engine   *sluice.Engine
	Registry *registry.Registry
	Manager  *session.Manager

	// Metrics and Gatherer are nil unless telemetry.metrics is enabled.
	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer
}

// Build wires the engine, contributors and parked-run store described by cfg.
// reg may be nil, in which case only the built-in capabilities are available.
// extra hooks are combined with the logging and metrics hooks.
// Close the returned runtime's Engine to release the store and tracer.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg *registry.Registry, extra ...domain.LifecycleHooks) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if reg == nil {
		reg = registry.NewRegistry()
		contrib.RegisterBuiltins(reg)
	}

	rt := &Runtime{Config: cfg, Logger: logger, Registry: reg}
	opts := append([]sluice.Option{sluice.WithLogger(logger)}, cfg.Pipeline.Manifest.EngineOptions()...)

	hooks := []domain.LifecycleHooks{observability.LoggingHooks(logger)}
	if cfg.Telemetry.Metrics {
		promReg := prometheus.NewRegistry()
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m, err := observability.NewMetrics(promReg)
		if err != nil {
			return nil, err
		}
		rt.Metrics, rt.Gatherer = m, promReg
		hooks = append(hooks, m.Hooks())
	}
	hooks = append(hooks, extra...)
	opts = append(opts, sluice.WithLifecycleHooks(observability.Combine(hooks...)))

	var closers []func() error
	if cfg.Telemetry.Tracing {
		p, err := telemetry.InitTracer("sluice", os.Stderr, logger)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		opts = append(opts, sluice.WithTracer(p.Tracer("github.com/aretw0/sluice")))
		closers = append(closers, func() error { return p.Shutdown(context.Background()) })
	}

	st, err := newStore(cfg.Store, logger)
	if err != nil {
		return nil, errors.Join(err, runClosers(closers))
	}
	closers = append(closers, st.close)
	for _, c := range closers {
		opts = append(opts, sluice.WithCloser(c))
	}

	mgrOpts := []session.Option{session.WithLogger(logger)}
	if st.locker != nil {
		mgrOpts = append(mgrOpts, session.WithLocker(st.locker))
	}
	rt.Manager = session.NewManager(st.store, mgrOpts...)

	eng, err := sluice.New(opts...)
	if err != nil {
		return nil, errors.Join(err, runClosers(closers))
	}
	rt.Engine = eng

	if err := cfg.Pipeline.Manifest.Apply(ctx, eng, reg); err != nil {
		return nil, errors.Join(err, eng.Close())
	}
	return rt, nil
}

func runClosers(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = append(errs, closers[i]())
	}
	return errors.Join(errs...)
}
