package handle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Surihub/handmath/api/internal/tutor"
)

var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 1, 2, 3}

type fakeEngine struct {
	name       string
	configured bool
	err        error
	calls      int
	problem    string
	image      tutor.Image
	panics     bool
}

func (f *fakeEngine) Name() string     { return f.name }
func (f *fakeEngine) GetModel() string { return "fake" }
func (f *fakeEngine) Configured() bool { return f.configured }

func (f *fakeEngine) Evaluate(_ context.Context, problem string, img tutor.Image) (string, error) {
	f.calls++
	f.problem, f.image = problem, img
	if f.panics {
		panic("boom")
	}
	return "feedback for " + problem, f.err
}

func (f *fakeEngine) Hint(_ context.Context, problem string) (string, error) {
	f.calls++
	f.problem = problem
	return "hint for " + problem, f.err
}

func (f *fakeEngine) Recognize(_ context.Context, img tutor.Image) (string, error) {
	f.calls++
	f.image = img
	return "$$x^2$$", f.err
}

func do(t *testing.T, h *Handle, method, body string) (int, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(method, "/api/gemini", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Tutor(rec, req)
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func newHandle(e *fakeEngine) *Handle {
	return New(&tutor.Engines{Gemini: e}, "gemini", 0, nil)
}

func b64() string { return base64.StdEncoding.EncodeToString(pngBytes) }

func TestTutor_MethodNotAllowed(t *testing.T) {
	e := &fakeEngine{name: "gemini", configured: true}
	code, out := do(t, newHandle(e), http.MethodGet, "")
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	assert.Equal(t, "Method Not Allowed", out["error"])
}

func TestTutor_MissingCredential(t *testing.T) {
	e := &fakeEngine{name: "gemini"}
	code, out := do(t, newHandle(e), http.MethodPost, `{"action":"hint","payload":{"problem":"p"}}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Gemini API key not configured on the server.", out["error"])
	assert.Equal(t, "configuration", out["kind"])
	assert.Zero(t, e.calls)
}

func TestTutor_MissingActionOrPayload(t *testing.T) {
	e := &fakeEngine{name: "gemini", configured: true}
	for _, body := range []string{`{}`, `{"action":"hint"}`, `{"payload":{"problem":"p"}}`, `{"action":"hint","payload":null}`} {
		code, out := do(t, newHandle(e), http.MethodPost, body)
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.Equal(t, "Missing action or payload.", out["error"], body)
	}
	code, _ := do(t, newHandle(e), http.MethodPost, `{not json`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Zero(t, e.calls)
}

func TestTutor_EvaluateRequiresImage(t *testing.T) {
	e := &fakeEngine{name: "gemini", configured: true}
	code, out := do(t, newHandle(e), http.MethodPost,
		`{"action":"evaluate","payload":{"problem":"x^2-5x+6=0","solutionImageBase64":""}}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, out["error"], "image")
	assert.Zero(t, e.calls)
}

func TestTutor_EvaluateInvalidImage(t *testing.T) {
	e := &fakeEngine{name: "gemini", configured: true}
	code, out := do(t, newHandle(e), http.MethodPost,
		`{"action":"evaluate","payload":{"problem":"p","solutionImageBase64":"%%%"}}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid image data.", out["error"])
}

func TestTutor_Evaluate(t *testing.T) {
	e := &fakeEngine{name: "gemini", configured: true}
	body := `{"action":"evaluate","payload":{"problem":"x^2-5x+6=0","solutionImageBase64":"` + b64() + `"}}`
	code, out := do(t, newHandle(e), http.MethodPost, body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "feedback for x^2-5x+6=0", out["result"])
	assert.Equal(t, pngBytes, e.image.Data)
	assert.Equal(t, "image/png", e.image.MIME)
}

func TestTutor_Hint(t *testing.T) {
	e := &fakeEngine{name: "gemini", configured: true}
	code, out := do(t, newHandle(e), http.MethodPost, `{"action":"hint","payload":{"problem":"p"}}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "hint for p", out["result"])

	code, out = do(t, newHandle(e), http.MethodPost, `{"action":"hint","payload":{}}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing problem.", out["error"])
}

func TestTutor_RecognizeAcceptsBothFieldNames(t *testing.T) {
	e := &fakeEngine{name: "gemini", configured: true}
	for _, field := range []string{"formulaImageBase64", "solutionImageBase64"} {
		code, out := do(t, newHandle(e), http.MethodPost,
			`{"action":"recognize","payload":{"`+field+`":"data:image/png;base64,`+b64()+`"}}`)
		assert.Equal(t, http.StatusOK, code, field)
		assert.Equal(t, "$$x^2$$", out["result"])
	}
	code, out := do(t, newHandle(e), http.MethodPost, `{"action":"recognize","payload":{}}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing formula image.", out["error"])
}

func TestTutor_InvalidAction(t *testing.T) {
	e := &fakeEngine{name: "gemini", configured: true}
	code, out := do(t, newHandle(e), http.MethodPost, `{"action":"solve","payload":{"problem":"p"}}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid action: solve", out["error"])
}

func TestTutor_ProviderErrorAndPanic(t *testing.T) {
	e := &fakeEngine{name: "gemini", configured: true, err: errors.New("quota exceeded")}
	code, out := do(t, newHandle(e), http.MethodPost, `{"action":"hint","payload":{"problem":"p"}}`)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "quota exceeded", out["error"])
	assert.Equal(t, "provider", out["kind"])

	e = &fakeEngine{name: "gemini", configured: true, panics: true}
	code, out = do(t, newHandle(e), http.MethodPost,
		`{"action":"evaluate","payload":{"problem":"p","solutionImageBase64":"`+b64()+`"}}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.NotEmpty(t, out["error"])
}

func TestTutor_OpenAIEngineMessage(t *testing.T) {
	e := &fakeEngine{name: "gpt"}
	h := New(&tutor.Engines{OpenAI: e}, "gpt", 0, nil)
	code, out := do(t, h, http.MethodPost, `{"action":"hint","payload":{"problem":"p"}}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "OpenAI API key not configured on the server.", out["error"])
}

func TestRequestDeadline(t *testing.T) {
	h := newHandle(&fakeEngine{})
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	assert.Equal(t, h.deadline, h.requestDeadline(r))
	r.Header.Set("X-Request-Timeout", "5")
	assert.Equal(t, "5s", h.requestDeadline(r).String())
}
