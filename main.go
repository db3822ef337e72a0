package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xiaot623/formdesk/internal/config"
	"github.com/xiaot623/formdesk/internal/hub"
	"github.com/xiaot623/formdesk/internal/logging"
	"github.com/xiaot623/formdesk/internal/policy"
	"github.com/xiaot623/formdesk/internal/store"
	"github.com/xiaot623/formdesk/internal/surveyapi"
	internalhttp "github.com/xiaot623/formdesk/internal/transport/http"
	"github.com/xiaot623/formdesk/internal/ws"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting formdesk",
		zap.Int("console_port", cfg.ConsolePort),
		zap.Int("form_port", cfg.FormPort),
		zap.String("survey_api_url", cfg.SurveyAPIURL))

	// Initialize session pointer store
	pointers, err := store.NewSQLiteStore(cfg.SessionStoreDSN)
	if err != nil {
		logger.Fatal("failed to initialize store", zap.Error(err))
	}
	defer pointers.Close()

	// Initialize survey API client
	api := surveyapi.NewClient(cfg.SurveyAPIURL, cfg.PublicHost, cfg.APITimeout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize policy engine
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		logger.Fatal("failed to initialize policy engine", zap.Error(err))
	}

	// Console server
	consoleServer := internalhttp.NewConsoleServer(api, policyEngine, logger)

	// Form server
	connectionHub := hub.NewHub(logger)
	formServer := echo.New()
	formServer.HideBanner = true
	formServer.HidePort = true
	formServer.Use(middleware.Logger())
	formServer.Use(middleware.Recover())
	ws.NewServer(cfg, connectionHub, api, pointers, logger).Register(formServer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		connectionHub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return serve(consoleServer, cfg.ConsolePort)
	})
	g.Go(func() error {
		return serve(formServer, cfg.FormPort)
	})

	logger.Info("servers started")

	// Shut down once a signal arrives or a server fails.
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down formdesk")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := consoleServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to shutdown console server gracefully", zap.Error(err))
		}
		if err := formServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to shutdown form server gracefully", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("formdesk stopped with error", zap.Error(err))
		return
	}
	logger.Info("formdesk stopped")
}

func serve(e *echo.Echo, port int) error {
	addr := fmt.Sprintf(":%d", port)
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server on %s: %w", addr, err)
	}
	return nil
}
