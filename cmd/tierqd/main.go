// Command tierqd runs the tierq scheduler behind the HTTP API with a set
// of demo handlers. Configuration comes from environment variables (a
// local .env file is loaded if present):
//
//	PORT             listen port (default 8080)
//	MAX_WORKERS      global worker bound (default 10)
//	AGING_INTERVAL   priority rescore interval (default 1s)
//	GLOBAL_RATE_RPS  process-wide HTTP rate limit; 0 disables (default 0)
//	REDIS_ADDR       optional Redis address for shared rate windows
//	LOG_LEVEL        debug | info | warn | error (default info)
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/xraph/tierq"
	"github.com/xraph/tierq/httpapi"
	"github.com/xraph/tierq/quota/rediswindow"
	"github.com/xraph/tierq/request"
	"github.com/xraph/tierq/sched"
)

func main() {
	// Load env if it exists.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	slog.SetDefault(logger)

	cfg := tierq.DefaultConfig()
	if n := envInt("MAX_WORKERS", 0); n > 0 {
		cfg.MaxWorkers = n
	}
	if d := envDuration("AGING_INTERVAL", 0); d > 0 {
		cfg.AgingInterval = d
	}

	schedOpts := []sched.Option{sched.WithLogger(logger)}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Error("redis unreachable", slog.String("addr", addr), slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer rdb.Close()
		schedOpts = append(schedOpts, sched.WithWindowFactory(rediswindow.Factory(rdb)))
		logger.Info("using redis rate windows", slog.String("addr", addr))
	}

	s := sched.New(cfg, schedOpts...)
	registerDemoHandlers(s)

	if err := s.Start(context.Background()); err != nil {
		logger.Error("scheduler start failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srvOpts := []httpapi.ServerOption{httpapi.WithServerLogger(logger)}
	if rps := envInt("GLOBAL_RATE_RPS", 0); rps > 0 {
		srvOpts = append(srvOpts, httpapi.WithGlobalRateLimit(
			rate.NewLimiter(rate.Limit(rps), rps)))
	}
	srv := httpapi.NewServer(s, srvOpts...)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	go func() {
		if err := srv.Run(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	if err := s.Stop(ctx); err != nil {
		logger.Error("scheduler shutdown error", slog.String("error", err.Error()))
	}
}

// registerDemoHandlers installs a few handlers so the API is usable out
// of the box.
func registerDemoHandlers(s *sched.Scheduler) {
	s.RegisterHandler("echo", func(_ context.Context, payload []byte) ([]byte, error) {
		return payload, nil
	})

	type sleepIn struct {
		Duration string `json:"duration"`
	}
	type sleepOut struct {
		Slept string `json:"slept"`
	}
	sched.Register(s, request.NewDefinition("sleep",
		func(ctx context.Context, in sleepIn) (sleepOut, error) {
			d, err := time.ParseDuration(in.Duration)
			if err != nil {
				return sleepOut{}, err
			}
			select {
			case <-time.After(d):
				return sleepOut{Slept: d.String()}, nil
			case <-ctx.Done():
				return sleepOut{}, ctx.Err()
			}
		}))

	type wordCountIn struct {
		Text string `json:"text"`
	}
	type wordCountOut struct {
		Words int `json:"words"`
	}
	sched.Register(s, request.NewDefinition("wordcount",
		func(_ context.Context, in wordCountIn) (wordCountOut, error) {
			return wordCountOut{Words: len(strings.Fields(in.Text))}, nil
		}))
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func logLevel() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
