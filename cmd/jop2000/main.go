package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jop2000ksa-sketch/jop2000/internal/config"
	"github.com/jop2000ksa-sketch/jop2000/internal/flow"
	"github.com/jop2000ksa-sketch/jop2000/internal/server"
	"github.com/jop2000ksa-sketch/jop2000/internal/store"
	"github.com/jop2000ksa-sketch/jop2000/internal/ui/telegram"
)

func main() {
	fmt.Println("🤖 jop2000 publishing bot starting...")

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}

	bot, err := telegram.NewBot(cfg.Token, cfg.APITimeout)
	if err != nil {
		log.Error("telegram", "err", err)
		os.Exit(1)
	}

	bindings := store.NewBindings()
	pubSessions := store.NewPublishSessions()
	inqSessions := store.NewInquirySessions()
	records := store.NewRecords()
	slots := store.NewReplySlots()
	votes := store.NewVotes()

	publisher := flow.NewPublisher(bot, bot, bindings, pubSessions, log)
	inquirer := flow.NewInquirer(bot, bot, inqSessions, records, log)
	responder := flow.NewResponder(bot, bot, records, slots, cfg.QuickReplies, log)
	tally := flow.NewTally(bot, votes, log)

	router := telegram.NewRouter(bot, publisher, inquirer, responder, tally, pubSessions, inqSessions, log)
	srv := server.New(cfg.ListenAddr, cfg.WebhookSecret, router, log)

	if cfg.PublicURL != "" {
		url := fmt.Sprintf("%s/webhook/%s", cfg.PublicURL, cfg.WebhookSecret)
		wh, err := tgbotapi.NewWebhook(url)
		if err != nil {
			log.Error("webhook config", "err", err)
			os.Exit(1)
		}
		if _, err := bot.API().Request(wh); err != nil {
			log.Error("webhook register", "err", err)
			os.Exit(1)
		}
		log.Info("webhook set", "url", url)
	} else {
		log.Warn("PUBLIC_URL/RENDER_EXTERNAL_URL not set; webhook not registered")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	fmt.Println("🚀 System fully operational.")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			log.Error("http server", "err", err)
		}
	}

	if cfg.PublicURL != "" {
		if _, err := bot.API().Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.Warn("webhook delete failed", "err", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown", "err", err)
	}
}
