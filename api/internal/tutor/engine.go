package tutor

import (
	"context"
	"errors"
)

// Image is an inline attachment for a generation call.
type Image struct {
	MIME string
	Data []byte
}

type Engine interface {
	Name() string
	GetModel() string
	// Configured reports whether the server-held credential is present.
	Configured() bool
	Evaluate(ctx context.Context, problem string, solution Image) (string, error)
	Hint(ctx context.Context, problem string) (string, error)
	Recognize(ctx context.Context, formula Image) (string, error)
}

type Engines struct {
	Gemini Engine
	OpenAI Engine
}

func (e *Engines) GetEngine(llmName string) (Engine, error) {
	switch llmName {
	case "", "gemini":
		if e.Gemini != nil {
			return e.Gemini, nil
		}
	case "gpt", "openai":
		if e.OpenAI != nil {
			return e.OpenAI, nil
		}
	}
	return nil, errors.New("unknown llm_name; use 'gemini' or 'gpt'")
}
