package latex

import (
	"errors"
	"html"
	"strings"
)

var ErrUnbalanced = errors.New("latex: unbalanced braces")

type Typesetter interface {
	Typeset(tex string, display bool) (string, error)
}

type TypesetFunc func(tex string, display bool) (string, error)

func (f TypesetFunc) Typeset(tex string, display bool) (string, error) { return f(tex, display) }

// Markup emits KaTeX auto-render markup. The browser does the actual
// typesetting; this only refuses TeX that cannot possibly render.
type Markup struct{}

func (Markup) Typeset(tex string, display bool) (string, error) {
	if !balanced(tex) {
		return "", ErrUnbalanced
	}
	esc := html.EscapeString(strings.TrimSpace(tex))
	if display {
		return `<span class="math math-display">\[` + esc + `\]</span>`, nil
	}
	return `<span class="math math-inline">\(` + esc + `\)</span>`, nil
}

func balanced(tex string) bool {
	depth := 0
	for i := 0; i < len(tex); i++ {
		switch tex[i] {
		case '\\':
			i++ // \{ and \} are literal braces
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}
