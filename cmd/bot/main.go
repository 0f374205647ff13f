package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"wedstrijd-bot/internal/config"
	"wedstrijd-bot/internal/outreach"
	"wedstrijd-bot/internal/roster"
	"wedstrijd-bot/internal/server"
	"wedstrijd-bot/internal/sheets"
	"wedstrijd-bot/internal/store"
	"wedstrijd-bot/internal/tgbot"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	cfg.ApplyLogLevel()
	if err := cfg.RequireBot(); err != nil {
		logrus.Fatalf("config: %v", err)
	}

	st, err := store.New(cfg.DataDir)
	if err != nil {
		logrus.Fatalf("store: %v", err)
	}
	svc := roster.NewService(st)

	renderer, err := outreach.NewRenderer(cfg.OutreachTemplate)
	if err != nil {
		logrus.Fatalf("outreach template: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pub tgbot.Publisher
	if cfg.SheetsEnabled() {
		sheetsClient, err := sheets.New(ctx, cfg.GoogleServiceAccountJSON, cfg.SpreadsheetID)
		if err != nil {
			logrus.Fatalf("sheets: %v", err)
		}
		pub = sheetsClient
	} else {
		logrus.Info("google sheets not configured, publishing disabled")
	}

	botApp, err := tgbot.New(cfg, svc, renderer, pub)
	if err != nil {
		logrus.Fatalf("telegram: %v", err)
	}

	httpSrv := server.New(cfg, svc)

	// Start HTTP server
	go func() {
		logrus.Infof("HTTP listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("http server: %v", err)
		}
	}()

	// Start Telegram
	go func() {
		if err := botApp.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logrus.Errorf("bot stopped: %v", err)
			cancel()
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logrus.Info("shutting down...")

	cancel()
	ctxTimeout, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = httpSrv.Shutdown(ctxTimeout)

	logrus.Info("bye")
}
