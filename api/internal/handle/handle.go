package handle

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Surihub/handmath/api/internal/apperr"
	"github.com/Surihub/handmath/api/internal/tutor"
)

type Handle struct {
	engs     *tutor.Engines
	llmName  string
	deadline time.Duration
	log      *slog.Logger
}

func New(engs *tutor.Engines, llmName string, deadline time.Duration, log *slog.Logger) *Handle {
	if deadline <= 0 {
		deadline = 180 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handle{
		engs:     engs,
		llmName:  llmName,
		deadline: deadline,
		log:      log,
	}
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type resultBody struct {
	Result string `json:"result"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, kind apperr.Kind, msg string) {
	writeJSON(w, code, errorBody{Error: msg, Kind: string(kind)})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
