// Package gateway is the client side of the tutor proxy: it turns an action
// and payload into one POST and returns the result text.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Surihub/handmath/api/internal/apperr"
)

type Action string

const (
	ActionEvaluate  Action = "evaluate"
	ActionHint      Action = "hint"
	ActionRecognize Action = "recognize"
)

type Request struct {
	Action  Action `json:"action"`
	Payload any    `json:"payload"`
}

type Response struct {
	Result *string `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
	Kind   string  `json:"kind,omitempty"`
}

type EvaluatePayload struct {
	Problem             string `json:"problem"`
	SolutionImageBase64 string `json:"solutionImageBase64"`
}

type HintPayload struct {
	Problem string `json:"problem"`
}

type RecognizePayload struct {
	FormulaImageBase64 string `json:"formulaImageBase64"`
}

// Client has no client-side timeout; cancellation comes from the caller's context.
type Client struct {
	Endpoint string
	httpc    *http.Client
	log      *slog.Logger
}

func New(endpoint string) *Client {
	return &Client{Endpoint: endpoint, httpc: &http.Client{}, log: slog.Default()}
}

func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.httpc = h
	return c
}

func (c *Client) Call(ctx context.Context, action Action, payload any) (string, error) {
	body, err := json.Marshal(Request{Action: action, Payload: payload})
	if err != nil {
		return "", apperr.Wrap(apperr.Validation, "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", apperr.Wrap(apperr.Transport, "", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.Transport, "", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var out Response
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := out.Error
		if decodeErr != nil || msg == "" {
			msg = fmt.Sprintf("Request failed with status %d", resp.StatusCode)
		}
		kind := apperr.Kind(out.Kind)
		if kind == "" {
			kind = apperr.Transport
		}
		return "", apperr.New(kind, msg)
	}
	if decodeErr != nil {
		return "", apperr.Wrap(apperr.Transport, "bad response", decodeErr)
	}
	if out.Result == nil {
		return "", apperr.New(apperr.Transport, "response has no result")
	}
	return *out.Result, nil
}

func (c *Client) EvaluateSolution(ctx context.Context, problem, solutionImageBase64 string) (string, error) {
	res, err := c.Call(ctx, ActionEvaluate, EvaluatePayload{Problem: problem, SolutionImageBase64: solutionImageBase64})
	if err != nil {
		c.log.Error("gateway: evaluate solution", "error", err)
		return "", rewrap("풀이 피드백을 받는 데 실패했습니다", err)
	}
	return res, nil
}

func (c *Client) GetHint(ctx context.Context, problem string) (string, error) {
	res, err := c.Call(ctx, ActionHint, HintPayload{Problem: problem})
	if err != nil {
		c.log.Error("gateway: get hint", "error", err)
		return "", rewrap("힌트를 받는 데 실패했습니다", err)
	}
	return res, nil
}

func (c *Client) RecognizeFormula(ctx context.Context, formulaImageBase64 string) (string, error) {
	res, err := c.Call(ctx, ActionRecognize, RecognizePayload{FormulaImageBase64: formulaImageBase64})
	if err != nil {
		c.log.Error("gateway: recognize formula", "error", err)
		return "", rewrap("수식을 인식하는 데 실패했습니다", err)
	}
	return res, nil
}

// rewrap keeps the underlying message as detail and its kind for callers.
func rewrap(msg string, err error) error {
	return apperr.Wrap(apperr.KindOf(err), msg, err)
}
