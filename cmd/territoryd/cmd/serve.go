package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	territory "github.com/tingold/orb-territory"
	"github.com/tingold/orb-territory/internal/config"
	"github.com/tingold/orb-territory/internal/logging"
	"github.com/tingold/orb-territory/internal/metrics"
	"github.com/tingold/orb-territory/internal/server"
)

var addr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve territory resolution over HTTP",
	Long: `Start the HTTP server.

  POST /resolve        resolve the request body into a territory feature
  GET  /style          style for ?status=&hovered=&selected=
  GET  /registry.fgb   the place registry as FlatGeobuf
  GET  /metrics        Prometheus metrics (TERRITORY_METRICS=true)`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if addr != "" {
			cfg.Addr = addr
		}
		log := newLogger(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, log)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides TERRITORY_ADDR)")
}

func serve(ctx context.Context, cfg *config.Config, log logging.Logger) error {
	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	opts, err := resolverOptions(cfg, reg, log)
	if err != nil {
		return err
	}

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector, err = metrics.New(prometheus.DefaultRegisterer)
		if err != nil {
			return err
		}
		opts = append(opts, territory.WithObserver(collector))
	}

	handler, err := server.New(server.Options{
		Registry: reg,
		Resolver: territory.NewResolver(opts...),
		Metrics:  collector,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "server starting",
			logging.String("addr", cfg.Addr),
			logging.Int("places", reg.Len()),
			logging.Bool("metrics", cfg.MetricsEnabled))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info(context.Background(), "server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
