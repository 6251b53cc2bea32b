package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FinFuzz/internal/handler/api"
	"FinFuzz/internal/handler/ws"
	"FinFuzz/internal/usecase"
	pkgch "FinFuzz/pkg/clickhouse"
	"FinFuzz/pkg/config"
	xhttp "FinFuzz/pkg/http"
	pkgkafka "FinFuzz/pkg/kafka"
	applogger "FinFuzz/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	api        *api.ExcessDemandHandler
	hub        *ws.Hub
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	proc       *usecase.CandleProcessor
	chClient   *pkgch.Client
	closers    []io.Closer
}

// New creates a new App instance with all dependencies. consumer, kh and proc may be nil.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	apiHandler *api.ExcessDemandHandler,
	hub *ws.Hub,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	proc *usecase.CandleProcessor,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:        cfg,
		l:          l,
		httpServer: httpServer,
		api:        apiHandler,
		hub:        hub,
		consumer:   consumer,
		kh:         kh,
		proc:       proc,
		chClient:   chClient,
	}
}

// AddCloser registers a resource closed last on shutdown.
func (a *App) AddCloser(c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, c)
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			a.l.Error("kafka consumer error", applogger.Error(err))
			return err
		}
		a.l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.api != nil {
		go a.sweepLimiter(ctx, 5*time.Minute)
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("finfuzz started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("backend", a.cfg.Backend.Type),
		applogger.Int("port", a.cfg.Server.Port),
	)

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

func (a *App) sweepLimiter(ctx context.Context, idle time.Duration) {
	ticker := time.NewTicker(idle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.api.SweepLimiter(idle); n > 0 {
				a.l.Debug("rate limiter swept", applogger.Int("buckets", n))
			}
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop accepting requests first
	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}
	if a.hub != nil {
		a.hub.Close()
	}

	// Drain in-flight messages before closing the stores they write to
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Closes the producer shared by the candle and signal publishers
	if a.proc != nil {
		a.proc.Close()
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.l.Warn("close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
