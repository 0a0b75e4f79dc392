// Command memoriz-server serves the memoriz REST API and a gRPC health endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/memoriz/internal/auth"
	"github.com/and161185/memoriz/internal/config"
	"github.com/and161185/memoriz/internal/logger"
	"github.com/and161185/memoriz/internal/repository"
	"github.com/and161185/memoriz/internal/repository/embedded"
	"github.com/and161185/memoriz/internal/repository/postgres"
	"github.com/and161185/memoriz/internal/repository/redisearch"
	grpcserver "github.com/and161185/memoriz/internal/server/grpc"
	httpserver "github.com/and161185/memoriz/internal/server/http"
	"github.com/and161185/memoriz/internal/service"
	"github.com/and161185/memoriz/internal/version"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	log, err := logger.New(cfg.Env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	vi := version.Get()
	log.Info("starting",
		zap.String("version", vi.Version),
		zap.String("commit", vi.Commit),
		zap.String("buildDate", vi.BuildDate),
		zap.String("env", cfg.Env),
		zap.String("backend", cfg.Storage.Backend),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		log.Fatal("open storage", zap.Error(err))
	}
	defer store.Close()

	deps := map[string]grpcserver.Pinger{"storage": store}

	var search repository.SearchEngine
	if cfg.Search.Enabled {
		eng, err := openSearch(ctx, cfg.Search)
		if err != nil {
			log.Fatal("open search", zap.Error(err))
		}
		defer eng.Close()
		search = eng
		deps["search"] = eng
	} else {
		log.Info("search disabled")
	}

	svc := service.NewMemorizService(store, search, log)

	api := httpserver.New(svc, auth.NewVerifier([]byte(cfg.Auth.JWTKey)), cfg.HTTP.StaticDir, log)
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("listening (HTTP)", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	var gs *grpcserver.Server
	if cfg.GRPC.Addr != "" {
		gs = grpcserver.New(log, cfg.GRPC.Reflection)
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			log.Fatal("listen", zap.Error(err))
		}
		go gs.Watch(ctx, time.Duration(cfg.GRPC.HealthIntervalSec)*time.Second, deps)
		go func() {
			log.Info("listening (gRPC health)", zap.String("addr", cfg.GRPC.Addr))
			if err := gs.GRPC.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	// Wait for stop
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	timeout := time.Duration(cfg.HTTP.ShutdownSec) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	if gs != nil {
		gs.Stop(timeout)
	}

	log.Info("shutdown complete")
}

func openStorage(ctx context.Context, cfg config.StorageConfig) (repository.Storage, error) {
	switch cfg.Backend {
	case config.BackendEmbedded:
		s, err := embedded.Open(cfg.Embedded.Dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendPostgres:
		pg := cfg.Postgres
		db, err := postgres.New(ctx, postgres.Config{
			Database: pg.Database,
			Host:     pg.Host,
			Port:     uint16(pg.Port), //nolint:gosec // range checked by config.Validate
			User:     pg.User,
			Password: pg.Password,
			MaxConns: int32(pg.MaxConns), //nolint:gosec // small operator-supplied value
			Schema:   pg.Schema,
		})
		if err != nil {
			return nil, err
		}
		return postgres.NewStorage(db), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func openSearch(ctx context.Context, cfg config.SearchConfig) (*redisearch.Engine, error) {
	eng, err := redisearch.New(redisearch.Config{
		Index:  cfg.Index,
		Host:   cfg.Host,
		Port:   cfg.Port,
		Token:  cfg.Token,
		Prefix: cfg.Prefix,
		Limit:  cfg.Limit,
	})
	if err != nil {
		return nil, err
	}
	if err := eng.EnsureIndex(ctx); err != nil {
		eng.Close()
		return nil, err
	}
	return eng, nil
}
