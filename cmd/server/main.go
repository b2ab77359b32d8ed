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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	apphttp "github.com/amakane-hakari/clockkv/internal/api/http"
	"github.com/amakane-hakari/clockkv/internal/cache"
	"github.com/amakane-hakari/clockkv/internal/config"
	ilog "github.com/amakane-hakari/clockkv/internal/log"
	"github.com/amakane-hakari/clockkv/internal/metrics"
)

func main() {
	configFile := flag.String("config", os.Getenv("CLOCKKV_CONFIG"), "path to a TOML config file")
	flag.Parse()

	if err := run(*configFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	logger, closer := ilog.New(ilog.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	defer closer.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mx := metrics.NewProm(cfg.MetricsNamespace, reg)

	opts := []cache.Option{
		cache.WithShards(cfg.Shards),
		cache.WithLogger(logger),
		cache.WithMetrics(mx),
		cache.WithCleanupInterval(cfg.CleanupInterval.Duration),
	}
	if cfg.AsyncEviction {
		opts = append(opts, cache.WithAsyncEviction())
	}
	c, err := cache.New[string, string](cfg.Capacity, opts...)
	if err != nil {
		return err
	}
	defer c.Close()

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	router := apphttp.NewRouter(apphttp.Deps{
		Cache:         c,
		Logger:        logger,
		Limiter:       limiter,
		Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		MaxValueBytes: cfg.MaxValueBytes,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("server.start",
		"addr", cfg.HTTPAddr,
		"capacity", cfg.Capacity,
		"shards", cfg.Shards,
		"async_eviction", cfg.AsyncEviction,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("server.shutdown", "reason", "signal")
	case err := <-errCh:
		logger.Error("server.error", "err", err)
	}

	apphttp.SetDraining(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Duration)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server.shutdown.error", "err", err)
		return err
	}
	st := c.Stats()
	logger.Info("server.stopped", "len", st.Len, "generation", st.Generation)
	return nil
}
