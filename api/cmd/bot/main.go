package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Surihub/handmath/api/internal/config"
	"github.com/Surihub/handmath/api/internal/gateway"
	"github.com/Surihub/handmath/api/internal/handle"
	"github.com/Surihub/handmath/api/internal/httpserver"
	"github.com/Surihub/handmath/api/internal/shell"
	"github.com/Surihub/handmath/api/internal/store"
	"github.com/Surihub/handmath/api/internal/telegram"
	"github.com/Surihub/handmath/api/internal/tutor"
	"github.com/Surihub/handmath/api/internal/tutor/gemini"
	"github.com/Surihub/handmath/api/internal/tutor/openai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.TelegramBotToken == "" {
		log.Fatal("missing required env TELEGRAM_BOT_TOKEN")
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

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal(err)
	}
	bot.Debug = false

	// The bot serves its own proxy unless pointed at another one.
	h := handle.New(&tutor.Engines{
		Gemini: gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel),
		OpenAI: openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel),
	}, cfg.LLMName, cfg.RequestTimeout, logger)
	gatewayURL := cfg.GatewayURL
	if gatewayURL == "" {
		gatewayURL = "http://127.0.0.1:" + cfg.Port + "/api/gemini"
	}
	sessions := shell.NewManager(gateway.New(gatewayURL), repo)
	go sessions.RunJanitor(ctx, time.Minute)
	router := telegram.NewRouter(bot, sessions)

	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		pctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := repo.DB.PingContext(pctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/api/gemini", http.HandlerFunc(h.Tutor))

	addr := "0.0.0.0:" + cfg.Port

	// --- Choose mode: Webhook vs Polling ---
	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		if err := setWebhook(bot, mux, router, webhookURL); err != nil {
			log.Fatal(err)
		}
	} else {
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			logger.Warn("delete webhook", "error", err)
		}
		go runPolling(ctx, bot, func(upd tgbotapi.Update) {
			router.HandleUpdate(ctx, upd)
		})
	}

	if err := httpserver.Run(ctx, addr, mux); err != nil {
		log.Fatal(err)
	}
}

// ---------------- Modes -----------------

func setWebhook(bot *tgbotapi.BotAPI, mux chi.Router, r *telegram.Router, baseURL string) error {
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		return err
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return err
	}

	mux.Post(path, func(w http.ResponseWriter, req *http.Request) {
		upd, err := bot.HandleUpdate(req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// Telegram retries slow webhooks, so the AI round-trip runs detached.
		go r.HandleUpdate(context.Background(), *upd)
	})
	slog.Info("webhook registered", "path", path)
	return nil
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") {
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			slog.Info("polling: context cancelled")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := min(max(retryDelayFromError(err), baseDelay), maxDelay)
			slog.Warn("polling error", "error", err, "retry_in", d)
			select {
			case <-ctx.Done():
				return
			case <-time.After(d):
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			time.Sleep(200 * time.Millisecond)
		}
	}
}

// ---------------- Helpers -----------------

// shortHash is FNV-1a over the token; it only keeps the webhook path unguessable.
func shortHash(s string) string {
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(out)
}
