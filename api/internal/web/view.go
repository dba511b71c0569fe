package web

import (
	"html/template"
	"regexp"

	"github.com/microcosm-cc/bluemonday"

	"github.com/Surihub/handmath/api/internal/canvas"
	"github.com/Surihub/handmath/api/internal/history"
	"github.com/Surihub/handmath/api/internal/shell"
)

// view is a Snapshot with every text slot pre-rendered for the page.
type view struct {
	shell.State
	ProblemHTML    template.HTML `json:"problemHtml,omitempty"`
	HintHTML       template.HTML `json:"hintHtml,omitempty"`
	FeedbackHTML   template.HTML `json:"feedbackHtml,omitempty"`
	RecognizedHTML template.HTML `json:"recognizedHtml,omitempty"`
	History        []entryView   `json:"history"`

	// MaxStrokePoints tells the page how to split long strokes.
	MaxStrokePoints int `json:"maxStrokePoints"`
}

type entryView struct {
	history.Entry
	ProblemHTML  template.HTML `json:"problemHtml"`
	FeedbackHTML template.HTML `json:"feedbackHtml"`
}

// fragmentPolicy admits exactly what latex.Renderer emits.
func fragmentPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("br")
	p.AllowAttrs("class").
		Matching(regexp.MustCompile(`^math math-(inline|display)$`)).
		OnElements("span")
	return p
}

func (s *Server) html(text string) template.HTML {
	if text == "" {
		return ""
	}
	return template.HTML(s.policy.Sanitize(string(s.render.Render(text))))
}

func (s *Server) view(snap shell.Snapshot) view {
	v := view{
		State:          snap.State,
		HintHTML:       s.html(snap.Hint),
		FeedbackHTML:   s.html(snap.Feedback),
		RecognizedHTML: s.html(snap.Recognized),
		History:        make([]entryView, 0, len(snap.History)),

		MaxStrokePoints: canvas.MaxStrokePoints,
	}
	if snap.Problem != nil {
		v.ProblemHTML = s.html(snap.Problem.Problem)
	}
	for _, e := range snap.History {
		v.History = append(v.History, entryView{
			Entry:        e,
			ProblemHTML:  s.html(e.Problem.Problem),
			FeedbackHTML: s.html(e.Feedback),
		})
	}
	return v
}
