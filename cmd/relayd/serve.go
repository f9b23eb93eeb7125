package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/adamwoolhether/pacer/client"
	"github.com/adamwoolhether/pacer/relay"
	"github.com/adamwoolhether/pacer/web"
	"github.com/adamwoolhether/pacer/web/middleware"
	"github.com/adamwoolhether/pacer/web/mux"
	"github.com/adamwoolhether/pacer/web/server"
)

const instrumentationName = "github.com/adamwoolhether/pacer"

func newServeCmd(load func() (config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the relay HTTP server",
		Long: `Run the relay HTTP server until SIGINT or SIGTERM, then drain
in-flight requests and flush metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, os.Stderr)
		},
	}
}

// telemetry holds the meter relayd records with and the handler that
// exposes it. Disabled metrics leave a noop meter and no handler.
type telemetry struct {
	meter    metric.Meter
	handler  http.Handler
	shutdown func(context.Context) error
}

func newTelemetry(cfg metricsConfig) (telemetry, error) {
	if !cfg.Enabled {
		return telemetry{
			meter:    noop.NewMeterProvider().Meter(instrumentationName),
			shutdown: func(context.Context) error { return nil },
		}, nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return telemetry{}, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	return telemetry{
		meter:    provider.Meter(instrumentationName),
		handler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		shutdown: provider.Shutdown,
	}, nil
}

// newApp wires the relay and its supporting routes onto a mux.App.
func newApp(cfg config, log *slog.Logger, tel telemetry) (*mux.App, *relay.Relay, error) {
	clientOpts := []client.Option{
		client.WithLogger(log),
		client.WithUserAgent(cfg.Client.UserAgent),
		client.WithTimeout(cfg.Client.Timeout),
	}
	if cfg.Client.RPS > 0 {
		clientOpts = append(clientOpts, client.WithThrottle(cfg.Client.RPS, cfg.Client.Burst))
	}

	c, err := client.Build(clientOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("building upstream client: %w", err)
	}

	tracer := otel.Tracer(instrumentationName)

	r, err := relay.New(c, cfg.Relay,
		relay.WithLogger(log),
		relay.WithMeter(tel.meter),
		relay.WithTracer(tracer),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("building relay: %w", err)
	}

	metrics, err := middleware.Metrics(tel.meter)
	if err != nil {
		return nil, nil, fmt.Errorf("building metrics middleware: %w", err)
	}

	app := mux.New(
		mux.WithLogger(log),
		mux.WithTracer(tracer),
		mux.WithMiddleware(
			middleware.Logger(log),
			middleware.Errors(log),
			metrics,
			middleware.Panics(),
		),
	)

	r.Register(app)

	app.Get("/healthz", func(ctx context.Context, w http.ResponseWriter, _ *http.Request) error {
		return web.RespondJSON(ctx, w, http.StatusOK, map[string]string{"status": "ok", "version": version})
	})

	if tel.handler != nil {
		app.HandleRaw(http.MethodGet, cfg.Metrics.Path, tel.handler)
	}

	return app, r, nil
}

func serve(ctx context.Context, cfg config, logOut io.Writer) error {
	log := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: cfg.Log.level()}))

	tel, err := newTelemetry(cfg.Metrics)
	if err != nil {
		return err
	}

	app, r, err := newApp(cfg, log, tel)
	if err != nil {
		return err
	}

	if cfg.Warm {
		go func() {
			if err := r.Warm(ctx); err != nil {
				log.Warn("relay warm-up incomplete", "error", err)
			}
		}()
	}

	srv := server.New(app,
		server.WithHost(cfg.Server.Host),
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		server.WithLogger(log),
		server.WithShutdownFunc(tel.shutdown),
	)

	log.Info("relayd starting", "version", version, "routes", len(cfg.Relay.Routes), "metrics", cfg.Metrics.Enabled)

	return srv.Run(ctx)
}
