package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aretw0/sluice/internal/cli"
	"github.com/aretw0/sluice/internal/presentation/tui"
	sluicehttp "github.com/aretw0/sluice/pkg/adapters/http"
	"github.com/aretw0/sluice/pkg/domain"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP host",
	Long: `Serves HTTP requests through the pipeline. Requests no contributor
claims by uri_matching fall through to a 404. The admin API, metrics and SSE
run events are mounted when enabled in the configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		streams := sluicehttp.NewStreamManager(logger)
		rt, err := cli.Build(sc, cfg, logger, nil, streams.Hooks())
		if err != nil {
			return err
		}
		defer func() {
			if err := rt.Engine.Close(); err != nil {
				logger.Error("engine shutdown failed", "err", err)
			}
		}()

		// Finalize now so ordering errors surface before the port opens.
		steps, err := rt.Engine.Steps()
		if err != nil {
			return err
		}

		host := sluicehttp.NewStaticHost(rt.Engine,
			sluicehttp.WithSuspendAfter(domain.Identity(cfg.Server.SuspendAfter)),
			sluicehttp.WithHostLogger(logger),
		)

		r := chi.NewRouter()
		r.Use(sluicehttp.RequestID, sluicehttp.Logger(logger))
		if rt.Gatherer != nil {
			r.Handle(cfg.Telemetry.MetricsPath, promhttp.HandlerFor(rt.Gatherer, promhttp.HandlerOpts{}))
		}
		if cfg.Server.Admin {
			r.Mount(cfg.Server.AdminPrefix, sluicehttp.NewAdminHandler(sluicehttp.AdminOptions{
				Host:    host,
				Manager: rt.Manager,
				Streams: streams,
				Logger:  logger,
			}))
		}
		var app http.Handler = host
		if cfg.Server.Timeout > 0 {
			app = http.TimeoutHandler(host, cfg.Server.Timeout, "")
		}
		r.Handle("/*", app)

		var handler http.Handler = r
		if cfg.Telemetry.Tracing {
			handler = otelhttp.NewHandler(r, "sluice")
		}

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
			tui.PrintBanner(cmd.ErrOrStderr())
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("sluice listening", "addr", srv.Addr, "steps", len(steps), "admin", cfg.Server.Admin)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		case <-sc.Done():
			cli.PrintSystemMessage(cmd.ErrOrStderr(), "shutting down (%v)", sc.Signal())

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				return srv.Close()
			}
			logger.Info("sluice stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (overrides server.addr)")
	serveCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}
