package latex

import (
	"html"
	"html/template"
	"log/slog"
	"strings"
)

type Renderer struct {
	// Typesetter may be nil, in which case the input is shown as-is.
	Typesetter Typesetter
	Logger     *slog.Logger
}

func NewRenderer() *Renderer {
	return &Renderer{Typesetter: Markup{}}
}

// Render turns s into HTML. Only typesetter output is emitted unescaped.
func (r *Renderer) Render(s string) template.HTML {
	if r == nil || r.Typesetter == nil || s == "" {
		return template.HTML(html.EscapeString(s))
	}
	var b strings.Builder
	for _, seg := range Tokenize(s) {
		if seg.Kind == Text {
			writeText(&b, seg.Body)
			continue
		}
		out, err := r.Typesetter.Typeset(seg.Body, seg.Kind == DisplayMath)
		if err != nil {
			r.logger().Debug("latex: segment left as text", "kind", seg.Kind.String(), "error", err)
			writeText(&b, seg.Raw)
			continue
		}
		b.WriteString(out)
	}
	return template.HTML(b.String())
}

func (r *Renderer) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func writeText(b *strings.Builder, s string) {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		b.WriteString(html.EscapeString(line))
		if i < len(lines)-1 {
			b.WriteString("<br>")
		}
	}
}
