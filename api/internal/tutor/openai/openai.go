package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Surihub/handmath/api/internal/apperr"
	"github.com/Surihub/handmath/api/internal/tutor"
	"github.com/Surihub/handmath/api/internal/util"
)

const defaultEndpoint = "https://api.openai.com/v1/chat/completions"

type Engine struct {
	APIKey   string
	Model    string
	Endpoint string
	httpc    *http.Client
}

func New(key, model string) *Engine {
	return &Engine{
		APIKey:   strings.TrimSpace(key),
		Model:    strings.TrimSpace(model),
		Endpoint: defaultEndpoint,
		httpc:    &http.Client{Timeout: 120 * time.Second},
	}
}

func (e *Engine) Name() string      { return "gpt" }
func (e *Engine) GetModel() string  { return e.Model }
func (e *Engine) Configured() bool  { return e.APIKey != "" }
func (e *Engine) SetModel(m string) { e.Model = strings.TrimSpace(m) }

func (e *Engine) Evaluate(ctx context.Context, problem string, solution tutor.Image) (string, error) {
	return e.chat(ctx, "evaluate", tutor.EvaluatePrompt(problem), &solution)
}

func (e *Engine) Hint(ctx context.Context, problem string) (string, error) {
	return e.chat(ctx, "hint", tutor.HintPrompt(problem), nil)
}

func (e *Engine) Recognize(ctx context.Context, formula tutor.Image) (string, error) {
	out, err := e.chat(ctx, "recognize", tutor.RecognizePrompt, &formula)
	if err != nil {
		return "", err
	}
	return util.StripCodeFences(out), nil
}

func (e *Engine) chat(ctx context.Context, op, text string, img *tutor.Image) (string, error) {
	if e.APIKey == "" {
		return "", apperr.New(apperr.Configuration, "OPENAI_API_KEY is empty")
	}

	content := []any{map[string]any{"type": "text", "text": text}}
	if img != nil {
		mime := util.PickMIME(img.MIME, "", img.Data)
		dataURL := util.MakeDataURL(mime, base64.StdEncoding.EncodeToString(img.Data))
		content = append(content, map[string]any{
			"type":      "image_url",
			"image_url": map[string]any{"url": dataURL, "detail": "high"},
		})
	}
	body := map[string]any{
		"model": e.Model,
		"messages": []any{
			map[string]any{"role": "user", "content": content},
		},
	}
	payload, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai %s %d: %s", op, resp.StatusCode, strings.TrimSpace(string(x)))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", err
	}
	if len(raw.Choices) == 0 {
		return "", fmt.Errorf("openai %s: empty response", op)
	}
	out := strings.TrimSpace(raw.Choices[0].Message.Content)
	if out == "" {
		return "", fmt.Errorf("openai %s: empty response", op)
	}
	return out, nil
}
