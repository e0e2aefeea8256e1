package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/velmor/dnslinkbot/internal/admin"
	"github.com/velmor/dnslinkbot/internal/cloudflare"
	"github.com/velmor/dnslinkbot/internal/config"
	"github.com/velmor/dnslinkbot/internal/database"
	"github.com/velmor/dnslinkbot/internal/repository"
	"github.com/velmor/dnslinkbot/internal/service"
	"github.com/velmor/dnslinkbot/internal/telegram"
	"github.com/velmor/dnslinkbot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("telegram bot: %v", err)
	}

	dnsClient := cloudflare.NewClient(cfg, logr)

	userRepo := repository.NewUserRepository(db)
	quotaRepo := repository.NewQuotaRepository(db)
	domainRepo := repository.NewDomainRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	userService := service.NewUserService(userRepo)
	quotaService := service.NewQuotaService(cfg, quotaRepo)
	settingsService := service.NewSettingsService(settingsRepo)
	domainService := service.NewDomainService(cfg, logr, quotaService, dnsClient, domainRepo, settingsService)

	if err := settingsService.Bootstrap(ctx); err != nil {
		log.Fatalf("bootstrap settings: %v", err)
	}

	bot := telegram.NewBot(cfg, botAPI, logr, userService, quotaService, domainService, settingsService)

	adminServer := admin.NewServer(cfg.AdminListenAddr, cfg.AdminUsername, cfg.AdminPassword, logr, userService, domainService, settingsService, botAPI)
	go func() {
		if err := adminServer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logr.Error("admin server stopped", "err", err)
		}
	}()

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("bot stopped", "err", err)
	}
}
