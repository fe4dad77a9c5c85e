package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Artanty/key/internal/db"
	"github.com/Artanty/key/internal/handlers"
	"github.com/Artanty/key/internal/logger"
	"github.com/Artanty/key/internal/repository/postgres"
	"github.com/Artanty/key/internal/secrets"
	"github.com/Artanty/key/internal/service/registry"
	"github.com/Artanty/key/internal/service/token"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
	Logger     logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	log, err := newLogger(c)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger. Err: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize services
	deriver, err := secrets.NewDeriver(c.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("error while creating key deriver. Err: %w", err)
	}
	registryService := registry.NewService(deriver, storage)
	tokenService := token.NewService(token.Config{TokenTTL: c.TokenTTL}, deriver, storage)

	mux := handlers.NewRouter(registryService, tokenService, log)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		Logger:     log,
	}, nil
}

func newLogger(c *Config) (logger.Logger, error) {
	switch c.Environment {
	case EnvDev:
		return logger.NewTextLogger(c.LogLevel)
	case EnvProduction:
		return logger.NewJSONLogger(c.LogLevel)
	default:
		return nil, fmt.Errorf("unknown environment: %q", c.Environment)
	}
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.Logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.Logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close connections gracefully
	s.Logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
