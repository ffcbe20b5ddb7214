// Package main запускает HTTP-сервер маркетплейса стройматериалов.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/config"
	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/gateway"
	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/handler"
	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/middleware"
	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/repository"
	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/service"
	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/settlement"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	var gateways []gateway.Gateway
	if cfg.CardGatewayAddress != "" {
		gateways = append(gateways, gateway.NewCardGateway(
			cfg.CardGatewayAddress, cfg.CardGatewayKey, cfg.PaymentCeilingCents))
	}
	if cfg.InstantGatewayAddress != "" {
		gateways = append(gateways, gateway.NewInstantGateway(
			cfg.InstantGatewayAddress, cfg.InstantGatewayKeyID,
			cfg.InstantGatewayKeySecret, cfg.PaymentCeilingCents))
	}
	if len(gateways) == 0 {
		sugar.Fatalw("no payment gateways configured")
	}

	orchestrator := settlement.NewOrchestrator(repo, gateways, cfg.PaymentCeilingCents, logger)
	svc := service.NewService(orchestrator)

	authMiddleware := middleware.NewAuthMiddleware(cfg.AdminSecret)
	h := handler.NewHandler(svc, logger, authMiddleware, cfg.AdminPassword)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск фоновой сверки платежей, помеченных для ручной проверки
	g.Go(func() error {
		orchestrator.StartReconciliation(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting marketplace server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
