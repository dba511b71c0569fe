package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Surihub/handmath/api/internal/apperr"
	"github.com/Surihub/handmath/api/internal/tutor"
	"github.com/Surihub/handmath/api/internal/util"
)

const attempts = 3

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string      { return "gemini" }
func (e *Engine) GetModel() string  { return e.Model }
func (e *Engine) Configured() bool  { return e.APIKey != "" }
func (e *Engine) SetModel(m string) { e.Model = strings.TrimSpace(m) }

// --------------------------- EVALUATE ---------------------------

func (e *Engine) Evaluate(ctx context.Context, problem string, solution tutor.Image) (string, error) {
	return e.generate(ctx, "evaluate",
		genai.Text(tutor.EvaluatePrompt(problem)),
		blob(solution),
	)
}

// --------------------------- HINT ---------------------------

func (e *Engine) Hint(ctx context.Context, problem string) (string, error) {
	return e.generate(ctx, "hint", genai.Text(tutor.HintPrompt(problem)))
}

// --------------------------- RECOGNIZE ---------------------------

func (e *Engine) Recognize(ctx context.Context, formula tutor.Image) (string, error) {
	txt, err := e.generate(ctx, "recognize",
		genai.Text(tutor.RecognizePrompt),
		blob(formula),
	)
	if err != nil {
		return "", err
	}
	return util.StripCodeFences(txt), nil
}

// --------------------------- helpers ---------------------------

func (e *Engine) generate(ctx context.Context, op string, parts ...genai.Part) (string, error) {
	if e.APIKey == "" {
		return "", apperr.New(apperr.Configuration, "GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return "", fmt.Errorf("gemini: model is nil")
	}

	// retries for 5xx / transient failures
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			if attempt == attempts {
				break
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
			}
			continue
		}
		txt := strings.TrimSpace(allText(resp))
		if txt == "" {
			return "", fmt.Errorf("gemini %s: empty response", op)
		}
		return txt, nil
	}
	return "", fmt.Errorf("gemini %s: %w", op, lastErr)
}

func blob(img tutor.Image) genai.Part {
	return &genai.Blob{MIMEType: util.PickMIME(img.MIME, "", img.Data), Data: img.Data}
}

// allText joins the text parts of the first candidate that has any.
func allText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}
