// Command counterhealth samples Go runtime counters, grades them against
// configured thresholds and serves the verdict over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/counterhealth/auth"
	"github.com/jonwraymond/counterhealth/config"
	"github.com/jonwraymond/counterhealth/eventcounter"
	"github.com/jonwraymond/counterhealth/health"
	"github.com/jonwraymond/counterhealth/instrument"
	"github.com/jonwraymond/counterhealth/observe"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "counterhealth: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) (err error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	reg := promclient.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	obsCfg := cfg.ObserverConfig()
	obsCfg.Metrics.Registerer = reg
	obs, err := observe.NewObserver(ctx, obsCfg)
	if err != nil {
		return fmt.Errorf("observer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		err = errors.Join(err, obs.Shutdown(shutdownCtx))
	}()
	logger := obs.Logger()

	hub := instrument.NewHub()
	runtimeSrc, err := instrument.NewRuntimeSource(hub)
	if err != nil {
		return fmt.Errorf("runtime source: %w", err)
	}
	defer runtimeSrc.Close()

	filters, err := cfg.ThresholdFilters()
	if err != nil {
		return err
	}
	metrics, err := observe.NewCounterMetrics(obs.Meter())
	if err != nil {
		return fmt.Errorf("counter metrics: %w", err)
	}

	opts := []eventcounter.Option{
		eventcounter.WithInterval(cfg.Interval),
		eventcounter.WithLogger(logger),
		eventcounter.WithMetrics(metrics),
		eventcounter.WithTracer(observe.NewTracer(obs.Tracer())),
	}
	if cfg.Isolation.Enabled {
		opts = append(opts, eventcounter.WithFilterIsolation(cfg.BreakerConfig()))
	}
	counters, err := eventcounter.New(hub, filters, opts...)
	if err != nil {
		return fmt.Errorf("event counter aggregator: %w", err)
	}

	checks := health.NewAggregator()
	checks.Register(counters.Name(), counters)

	mux := http.NewServeMux()
	health.RegisterHandlers(mux, checks, auth.Require(logger, authenticators(cfg.Auth)...))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	mw := observe.MiddlewareFromObserver(obs)
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mw.Wrap("diagnostics", mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return counters.Run(gctx)
	})
	g.Go(func() error {
		logger.Info(gctx, "diagnostics server listening", observe.Field{Key: "addr", Value: cfg.HTTP.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error(ctx, "shutdown with error", observe.Field{Key: "error", Value: err})
		return err
	}
	logger.Info(ctx, "shutdown complete")
	return nil
}

func authenticators(cfg config.AuthConfig) []auth.Authenticator {
	var out []auth.Authenticator
	if len(cfg.APIKeys) > 0 {
		out = append(out, auth.NewAPIKeyAuthenticator(cfg.APIKeyHeader, cfg.APIKeys))
	}
	if cfg.JWTSecret != "" {
		out = append(out, auth.NewJWTAuthenticator(auth.JWTConfig{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		}))
	}
	return out
}
