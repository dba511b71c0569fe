// Package shell owns one tutoring session: mode, current problem, per-action
// loading flags, the last hint/feedback/recognized text, the drawing surface
// and the history log. Front-ends drive it through its methods and render
// Snapshot().
package shell

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/Surihub/handmath/api/internal/apperr"
	"github.com/Surihub/handmath/api/internal/canvas"
	"github.com/Surihub/handmath/api/internal/history"
	"github.com/Surihub/handmath/api/internal/util"
)

type Mode string

const (
	ModePractice    Mode = "practice"
	ModeRecognition Mode = "recognition"
)

type Action string

const (
	ActionProblem   Action = "problem"
	ActionHint      Action = "hint"
	ActionFeedback  Action = "feedback"
	ActionRecognize Action = "recognize"
)

const (
	MsgEmptySolution = "제출하기 전에 캔버스에 풀이를 작성해주세요."
	MsgEmptyFormula  = "먼저 캔버스에 수식을 그려주세요."
	MsgUndecodable   = "그림을 처리할 수 없습니다. 다시 시도해주세요."
	MsgNoProblem     = "풀 문제가 없습니다. 문제 풀이 모드로 전환해주세요."

	maxCanvasWidth = 600
	canvasGutter   = 40
)

// SampleProblem is the only problem there is; "new problem" resets to it.
var SampleProblem = history.Problem{
	Problem: "이차방정식 $x^2 - 5x + 6 = 0$ 의 두 근을 $\\alpha, \\beta$ 라고 할 때, $\\alpha^2 + \\beta^2$ 의 값을 구하시오.",
	Answer:  "13",
}

var (
	ErrNoProblem = apperr.New(apperr.Validation, MsgNoProblem)
	// ErrStale is returned when a response arrived after the request was
	// superseded; its result has been dropped.
	ErrStale = errors.New("shell: response superseded")
)

// Tutor is the AI gateway as seen by the shell.
type Tutor interface {
	EvaluateSolution(ctx context.Context, problem, solutionImageBase64 string) (string, error)
	GetHint(ctx context.Context, problem string) (string, error)
	RecognizeFormula(ctx context.Context, formulaImageBase64 string) (string, error)
}

type State struct {
	Mode         Mode             `json:"mode"`
	Problem      *history.Problem `json:"problem"`
	Loading      map[Action]bool  `json:"loading"`
	Error        string           `json:"error,omitempty"`
	Hint         string           `json:"hint,omitempty"`
	Feedback     string           `json:"feedback,omitempty"`
	Recognized   string           `json:"recognized,omitempty"`
	HasDrawing   bool             `json:"hasDrawing"`
	CanvasWidth  int              `json:"canvasWidth"`
	CanvasHeight int              `json:"canvasHeight"`
}

type Snapshot struct {
	State
	History []history.Entry `json:"history"`
}

type App struct {
	mu      sync.Mutex
	tutor   Tutor
	surface *canvas.Surface
	history *history.Log
	log     *slog.Logger
	now     func() time.Time

	state State
	// seq holds the token of the latest request per action; responses
	// carrying an older token are dropped.
	seq map[Action]uint64
}

func New(tutor Tutor, log *history.Log) *App {
	p := SampleProblem
	return &App{
		tutor:   tutor,
		surface: canvas.New(canvas.DefaultWidth, canvas.DefaultHeight),
		history: log,
		log:     slog.Default(),
		now:     time.Now,
		state: State{
			Mode:    ModePractice,
			Problem: &p,
			Loading: map[Action]bool{},
		},
		seq: map[Action]uint64{},
	}
}

// Surface is the pointer-input side of the drawing surface.
func (a *App) Surface() *canvas.Surface { return a.surface }

func (a *App) Snapshot() Snapshot {
	a.mu.Lock()
	st := a.state
	st.Loading = maps.Clone(a.state.Loading)
	if a.state.Problem != nil {
		p := *a.state.Problem
		st.Problem = &p
	}
	a.mu.Unlock()

	st.HasDrawing = a.surface.HasContent()
	st.CanvasWidth, st.CanvasHeight = a.surface.Size()
	return Snapshot{State: st, History: a.history.Entries()}
}

// --- synchronous transitions ------------------------------------------------

func (a *App) SwitchMode(m Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Mode = m
	a.clearCanvasLocked()
	if m == ModePractice {
		p := SampleProblem
		a.state.Problem = &p
	} else {
		a.state.Problem = nil
	}
}

// NewProblem resets to the sample problem; there is no generator.
func (a *App) NewProblem() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Error = ""
	a.state.Feedback = ""
	a.state.Hint = ""
	a.surface.Clear()
	a.invalidateLocked()
	p := SampleProblem
	a.state.Problem = &p
}

func (a *App) ClearCanvas() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clearCanvasLocked()
}

func (a *App) clearCanvasLocked() {
	a.surface.Clear()
	a.state.Feedback = ""
	a.state.Hint = ""
	a.state.Error = ""
	a.state.Recognized = ""
	a.invalidateLocked()
}

// Resize fits the surface to a container width. The surface is reallocated
// (and its content lost) only when the size actually changes.
func (a *App) Resize(containerWidth int) {
	w := min(containerWidth-canvasGutter, maxCanvasWidth)
	if w <= 0 {
		return
	}
	h := int(float64(w) * 0.75)
	if cw, ch := a.surface.Size(); cw == w && ch == h {
		return
	}
	a.surface.Resize(w, h)
}

// Busy reports whether any AI request is in flight.
func (a *App) Busy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, v := range a.state.Loading {
		if v {
			return true
		}
	}
	return false
}

// --- history ----------------------------------------------------------------

func (a *App) DeleteEntry(ctx context.Context, id string) error {
	return a.history.Delete(ctx, id)
}

func (a *App) ClearHistory(ctx context.Context) error {
	return a.history.Clear(ctx)
}

// --- request tokens ---------------------------------------------------------

func (a *App) beginLocked(act Action) uint64 {
	a.seq[act]++
	a.state.Loading[act] = true
	return a.seq[act]
}

// endLocked reports whether tok is still the current request for act.
func (a *App) endLocked(act Action, tok uint64) bool {
	if a.seq[act] != tok {
		return false
	}
	a.state.Loading[act] = false
	return true
}

func (a *App) invalidateLocked() {
	for _, act := range []Action{ActionHint, ActionFeedback, ActionRecognize} {
		if a.state.Loading[act] {
			a.seq[act]++
			a.state.Loading[act] = false
		}
	}
}

// --- AI-backed actions ------------------------------------------------------

func (a *App) GetHint(ctx context.Context) error {
	a.mu.Lock()
	if a.state.Problem == nil {
		a.state.Error = MsgNoProblem
		a.mu.Unlock()
		return ErrNoProblem
	}
	problem := a.state.Problem.Problem
	tok := a.beginLocked(ActionHint)
	a.state.Error = ""
	a.mu.Unlock()

	text, err := a.tutor.GetHint(ctx, problem)

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.endLocked(ActionHint, tok) {
		return ErrStale
	}
	if err != nil {
		a.state.Error = err.Error()
		return err
	}
	a.state.Hint = text
	return nil
}

func (a *App) SubmitSolution(ctx context.Context) error {
	a.mu.Lock()
	if a.state.Problem == nil {
		a.state.Error = MsgNoProblem
		a.mu.Unlock()
		return ErrNoProblem
	}
	uri, b64, err := a.exportLocked(MsgEmptySolution)
	if err != nil {
		a.mu.Unlock()
		return err
	}
	problem := *a.state.Problem
	tok := a.beginLocked(ActionFeedback)
	a.state.Error = ""
	a.state.Feedback = ""
	a.mu.Unlock()

	text, err := a.tutor.EvaluateSolution(ctx, problem.Problem, b64)

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.endLocked(ActionFeedback, tok) {
		return ErrStale
	}
	if err != nil {
		a.state.Error = err.Error()
		return err
	}
	a.state.Feedback = text
	entry := history.NewEntry(problem, uri, text, a.now())
	if err := a.history.Prepend(ctx, entry); err != nil {
		a.log.Error("shell: persist history", "key", a.history.Key(), "error", err)
		a.state.Error = err.Error()
		return err
	}
	return nil
}

func (a *App) Recognize(ctx context.Context) error {
	a.mu.Lock()
	_, b64, err := a.exportLocked(MsgEmptyFormula)
	if err != nil {
		a.mu.Unlock()
		return err
	}
	tok := a.beginLocked(ActionRecognize)
	a.state.Error = ""
	a.state.Recognized = ""
	a.mu.Unlock()

	text, err := a.tutor.RecognizeFormula(ctx, b64)

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.endLocked(ActionRecognize, tok) {
		return ErrStale
	}
	if err != nil {
		a.state.Error = err.Error()
		return err
	}
	a.state.Recognized = text
	return nil
}

// exportLocked fails fast, setting the error slot, when there is nothing to send.
func (a *App) exportLocked(emptyMsg string) (uri, b64 string, err error) {
	uri = a.surface.ExportImage()
	if uri == "" {
		a.state.Error = emptyMsg
		return "", "", apperr.New(apperr.Validation, emptyMsg)
	}
	if _, b64 = util.SplitDataURL(uri); b64 == "" {
		a.state.Error = MsgUndecodable
		return "", "", apperr.New(apperr.Validation, MsgUndecodable)
	}
	return uri, b64, nil
}
