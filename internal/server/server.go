// Package server exposes the HTTP surface: uptime probes and the Telegram
// webhook receiver.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Dispatcher consumes decoded updates. Dispatch may block on per-actor
// serialization, so the webhook handler runs it off the request goroutine.
type Dispatcher interface {
	Dispatch(ctx context.Context, update tgbotapi.Update)
}

type Server struct {
	secret     string
	dispatcher Dispatcher
	log        *slog.Logger
	srv        *http.Server
}

func New(listenAddr, secret string, dispatcher Dispatcher, log *slog.Logger) *Server {
	s := &Server{secret: secret, dispatcher: dispatcher, log: log}
	s.srv = &http.Server{
		Addr:         listenAddr,
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Bot is running. Use /health for uptime checks."))
	})
	// Some uptime monitors probe with HEAD.
	r.Get("/health", s.ok)
	r.Head("/health", s.ok)

	r.Post("/webhook/{secret}", s.webhook)
	// GET on the webhook path avoids 405s from misconfigured monitors.
	r.Get("/webhook/{secret}", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "secret") != s.secret {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		s.ok(w, req)
	})
	return r
}

func (s *Server) ok(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) webhook(w http.ResponseWriter, req *http.Request) {
	defer req.Body.Close()
	if chi.URLParam(req, "secret") != s.secret {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	var update tgbotapi.Update
	if err := json.NewDecoder(req.Body).Decode(&update); err != nil {
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	// Updates are dispatched concurrently; the router serializes per actor.
	go s.dispatcher.Dispatch(context.Background(), update)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) ListenAndServe() error {
	s.log.Info("http server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
