package handle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Surihub/handmath/api/internal/apperr"
	"github.com/Surihub/handmath/api/internal/tutor"
	"github.com/Surihub/handmath/api/internal/util"
)

// --- TUTOR PROXY ------------------------------------------------------------

type tutorReq struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

type tutorPayload struct {
	Problem             string `json:"problem"`
	SolutionImageBase64 string `json:"solutionImageBase64"`
	FormulaImageBase64  string `json:"formulaImageBase64"`
}

// Tutor is the single proxy entry point: {action, payload} in, {result} out.
func (h *Handle) Tutor(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			h.log.Error("tutor: panic", "panic", rec)
			writeError(w, http.StatusInternalServerError, apperr.Provider, "An unknown server error occurred.")
		}
	}()

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "", "Method Not Allowed")
		return
	}

	engine, err := h.engs.GetEngine(h.llmName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, apperr.Configuration, err.Error())
		return
	}
	if !engine.Configured() {
		writeError(w, http.StatusInternalServerError, apperr.Configuration, notConfigured(engine))
		return
	}

	defer r.Body.Close()
	var req tutorReq
	if err := json.NewDecoder(io.LimitReader(r.Body, 16<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.Validation, "bad json: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Action) == "" || isEmptyPayload(req.Payload) {
		writeError(w, http.StatusBadRequest, apperr.Validation, "Missing action or payload.")
		return
	}
	var p tutorPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		writeError(w, http.StatusBadRequest, apperr.Validation, "bad payload: "+err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestDeadline(r))
	defer cancel()

	result, err := h.dispatch(ctx, engine, req.Action, p)
	if err != nil {
		kind := apperr.KindOf(err)
		if kind == apperr.Provider {
			h.log.Error("tutor: engine failed", "action", req.Action, "engine", engine.Name(), "error", err)
		}
		writeError(w, apperr.Status(kind), kind, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resultBody{Result: result})
}

func (h *Handle) dispatch(ctx context.Context, engine tutor.Engine, action string, p tutorPayload) (string, error) {
	switch action {
	case "evaluate":
		if strings.TrimSpace(p.Problem) == "" || strings.TrimSpace(p.SolutionImageBase64) == "" {
			return "", apperr.New(apperr.Validation, "Missing problem or solution image.")
		}
		img, err := decodeImage(p.SolutionImageBase64)
		if err != nil {
			return "", err
		}
		return engine.Evaluate(ctx, p.Problem, img)

	case "hint":
		if strings.TrimSpace(p.Problem) == "" {
			return "", apperr.New(apperr.Validation, "Missing problem.")
		}
		return engine.Hint(ctx, p.Problem)

	case "recognize":
		src := p.FormulaImageBase64
		if strings.TrimSpace(src) == "" {
			src = p.SolutionImageBase64
		}
		if strings.TrimSpace(src) == "" {
			return "", apperr.New(apperr.Validation, "Missing formula image.")
		}
		img, err := decodeImage(src)
		if err != nil {
			return "", err
		}
		return engine.Recognize(ctx, img)

	default:
		return "", apperr.New(apperr.Validation, fmt.Sprintf("Invalid action: %s", action))
	}
}

func decodeImage(s string) (tutor.Image, error) {
	data, mime, err := util.DecodeBase64MaybeDataURL(s)
	if err != nil || len(data) == 0 {
		return tutor.Image{}, apperr.New(apperr.Validation, "Invalid image data.")
	}
	return tutor.Image{MIME: util.PickMIME("", mime, data), Data: data}, nil
}

func isEmptyPayload(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

func notConfigured(e tutor.Engine) string {
	if e.Name() == "gpt" {
		return "OpenAI API key not configured on the server."
	}
	return "Gemini API key not configured on the server."
}

func (h *Handle) requestDeadline(r *http.Request) time.Duration {
	deadline := h.deadline
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	}
	return deadline
}
