package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ddfinv/portal/internal/api"
	"github.com/ddfinv/portal/internal/api/events"
	"github.com/ddfinv/portal/internal/clients/ddfinv"
	"github.com/ddfinv/portal/internal/guard"
	"github.com/ddfinv/portal/internal/rbac"
	"github.com/ddfinv/portal/internal/repository"
	"github.com/ddfinv/portal/internal/service"
	"github.com/ddfinv/portal/internal/session"
	"github.com/ddfinv/portal/pkg/broker"
	"github.com/ddfinv/portal/pkg/config"
	"github.com/ddfinv/portal/pkg/logger"
	"github.com/ddfinv/portal/pkg/postgres"
)

const (
	ReadTimeout       = 10 * time.Second
	WriteTimeout      = 30 * time.Second
	IdleTimeout       = 60 * time.Second
	ReadHeaderTimeout = 2 * time.Second
)

// @title ddfinv portal
// @version 1.0
// @description Session and access gateway for the ddfinv web portal.
//
//nolint:funlen
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.New(".env")
	panicOnErr("load config", err)

	l := logger.New(logger.ParseLevel(cfg.LogLevel))
	slog.SetDefault(l)

	err = rbac.Validate()
	panicOnErr("validate permission table", err)

	g, err := guard.New(guard.DefaultRoutes())
	panicOnErr("build route guard", err)

	pool, err := postgres.ConnectToPostgres(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	panicOnErr("connect to postgres", err)

	defer pool.Close()

	err = postgres.UpMigrations(cfg.PostgresDSN)
	panicOnErr("up migrations", err)

	sessionRepo := repository.NewSessionRepository(pool)
	store := session.NewStore(sessionRepo)

	backend := ddfinv.NewClient(cfg)
	resolver := rbac.NewResolver(store, backend)

	producer := broker.NewProducer(l, cfg.KafkaBrokers, cfg.KafkaSessionTopic)
	defer producer.Close()

	s := service.NewService(cfg, store, backend, producer, g)

	// Kafka consumers
	{
		consumer := broker.NewConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerID, cfg.KafkaSessionTopic)
		defer consumer.Close()

		eventHandler := events.NewHandler(s)

		consumer.Handle(cfg.KafkaSessionTopic, eventHandler.HandleSessionEvent)
		consumer.Consume(ctx)
	}

	h := api.NewHandler(s)
	mw := api.NewMiddleware(store, resolver, g, cfg.Session)
	router := api.NewRouter(h, mw)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
		ReadHeaderTimeout: ReadHeaderTimeout,
	}

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		l.Info("http server started", "port", cfg.HTTPPort)

		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Panicf("listen and serve: %s", err)
		}

		l.Debug("http server stopped")
	}()

	wg.Add(1)

	go func() {
		defer wg.Done()

		ticker := time.NewTicker(cfg.Session.CleanupInterval)
		defer ticker.Stop()

		l := l.With("job", "delete_stale_sessions")
		for {
			l.Debug("job started")

			err := sessionRepo.DeleteStale(ctx, cfg.Session.MaxAge)
			if err != nil {
				l.Error(fmt.Sprintf("job failed: %s", err))
			} else {
				l.Debug("job finished")
			}

			select {
			case <-ctx.Done():
				l.Debug("job stopped by ctx")
				return
			case <-ticker.C:
			}
		}
	}()

	waitSignal(l, cancel, server)
	wg.Wait()
}

func waitSignal(l *slog.Logger, cancel context.CancelFunc, server *http.Server) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	sig := <-ch

	l.Info("got OS signal", "signal", sig.String())

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	err := server.Shutdown(shutdownCtx)
	if err != nil {
		l.Error("server shutdown", "error", err)
	}
}

func panicOnErr(msg string, err error) {
	if err != nil {
		log.Panicf("%s: %s", msg, err)
	}
}
