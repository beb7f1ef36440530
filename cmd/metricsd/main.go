package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GoSim-25-26J-441/metrics-loadgen/internal/target"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/logger"
)

func main() {
	var (
		addr          string
		redisAddr     string
		redisPassword string
		redisDB       int
		window        int
		threshold     float64
		cacheTTL      time.Duration
		logLevel      string
		logFormat     string
	)

	flag.StringVar(&addr, "addr", ":8080", "HTTP listen address")
	flag.StringVar(&redisAddr, "redis-addr", "", "Redis address for the analytics cache (empty = in-memory)")
	flag.StringVar(&redisPassword, "redis-password", "", "Redis password")
	flag.IntVar(&redisDB, "redis-db", 0, "Redis database number")
	flag.IntVar(&window, "window", target.DefaultWindowSize, "rolling window size per device")
	flag.Float64Var(&threshold, "threshold", target.DefaultThreshold, "z-score anomaly threshold")
	flag.DurationVar(&cacheTTL, "cache-ttl", target.DefaultCacheTTL, "analytics cache TTL")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	flag.Parse()

	logger.SetDefault(logger.NewWithFormat(logFormat, logLevel, os.Stdout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cache target.Cache = target.NewMemoryCache()
	if redisAddr != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		rc, err := target.NewRedisCache(connectCtx, &redis.Options{
			Addr:     redisAddr,
			Password: redisPassword,
			DB:       redisDB,
		})
		cancel()
		if err != nil {
			logger.Error("failed to connect to redis", "addr", redisAddr, "error", err)
			os.Exit(1)
		}
		cache = rc
		logger.Info("using redis analytics cache", "addr", redisAddr, "db", redisDB)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Warn("cache close error", "error", err)
		}
	}()

	analyzer := target.NewAnalyzer(cache,
		target.WithWindowSize(window),
		target.WithThreshold(threshold),
		target.WithCacheTTL(cacheTTL))

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           target.NewServer(analyzer).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("metrics service listening",
			"addr", addr,
			"window", analyzer.WindowSize(),
			"threshold", analyzer.Threshold())
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
}
