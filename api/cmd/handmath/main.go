package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Surihub/handmath/api/internal/config"
	"github.com/Surihub/handmath/api/internal/gateway"
	"github.com/Surihub/handmath/api/internal/handle"
	"github.com/Surihub/handmath/api/internal/httpserver"
	"github.com/Surihub/handmath/api/internal/shell"
	"github.com/Surihub/handmath/api/internal/store"
	"github.com/Surihub/handmath/api/internal/tutor"
	"github.com/Surihub/handmath/api/internal/tutor/gemini"
	"github.com/Surihub/handmath/api/internal/tutor/openai"
	"github.com/Surihub/handmath/api/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- history store ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	repo, err := store.Open(openCtx, cfg.StoreDriver, cfg.StoreDSN())
	cancel()
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer repo.Close()
	logger.Info("store ready", "driver", cfg.StoreDriver, "dsn", store.SafeDSNSummary(cfg.StoreDriver, cfg.StoreDSN()))

	// --- proxy ---
	engines := &tutor.Engines{
		Gemini: gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel),
		OpenAI: openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel),
	}
	if e, err := engines.GetEngine(cfg.LLMName); err != nil {
		log.Fatalf("engine: %v", err)
	} else if !e.Configured() {
		logger.Warn("engine has no API key; tutor requests will fail", "engine", e.Name())
	}
	h := handle.New(engines, cfg.LLMName, cfg.RequestTimeout, logger)

	// --- sessions ---
	gatewayURL := cfg.GatewayURL
	if gatewayURL == "" {
		gatewayURL = "http://127.0.0.1:" + cfg.Port + "/api/gemini"
	}
	sessions := shell.NewManager(gateway.New(gatewayURL), repo)
	go sessions.RunJanitor(ctx, time.Minute)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", handle.Healthz)
	r.Handle("/api/gemini", http.HandlerFunc(h.Tutor))
	web.New(sessions, logger).Routes(r)

	if err := httpserver.Run(ctx, ":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
