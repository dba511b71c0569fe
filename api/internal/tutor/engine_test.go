package tutor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct{ name string }

func (s stubEngine) Name() string     { return s.name }
func (s stubEngine) GetModel() string { return "stub" }
func (s stubEngine) Configured() bool { return true }
func (s stubEngine) Evaluate(context.Context, string, Image) (string, error) {
	return "", nil
}
func (s stubEngine) Hint(context.Context, string) (string, error)     { return "", nil }
func (s stubEngine) Recognize(context.Context, Image) (string, error) { return "", nil }

func TestEngines_GetEngine(t *testing.T) {
	engs := &Engines{Gemini: stubEngine{"gemini"}, OpenAI: stubEngine{"gpt"}}

	e, err := engs.GetEngine("")
	require.NoError(t, err)
	assert.Equal(t, "gemini", e.Name())

	e, err = engs.GetEngine("openai")
	require.NoError(t, err)
	assert.Equal(t, "gpt", e.Name())

	_, err = engs.GetEngine("deepseek")
	assert.Error(t, err)

	_, err = (&Engines{}).GetEngine("gpt")
	assert.Error(t, err)
}

func TestPrompts_EmbedProblem(t *testing.T) {
	p := "$x^2 - 5x + 6 = 0$"
	assert.Contains(t, EvaluatePrompt(p), p)
	assert.Contains(t, HintPrompt(p), p)
	assert.Contains(t, RecognizePrompt, "$$...$$")
}
