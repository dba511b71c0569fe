// Package latex splits tutor output into text and TeX segments and renders
// them to HTML.
package latex

import "regexp"

type Kind int

const (
	Text Kind = iota
	InlineMath
	DisplayMath
)

func (k Kind) String() string {
	switch k {
	case InlineMath:
		return "inline"
	case DisplayMath:
		return "display"
	default:
		return "text"
	}
}

// Segment is one piece of the input. For math segments Body is the TeX
// without delimiters and Raw keeps them.
type Segment struct {
	Kind Kind
	Body string
	Raw  string
}

// $$...$$ is listed first so it wins over two adjacent $...$ matches.
var mathRe = regexp.MustCompile(`\$\$(?s:(.*?))\$\$|\$(?s:(.*?))\$`)

func Tokenize(s string) []Segment {
	var out []Segment
	pos := 0
	for _, m := range mathRe.FindAllStringSubmatchIndex(s, -1) {
		if m[0] > pos {
			out = append(out, Segment{Kind: Text, Body: s[pos:m[0]], Raw: s[pos:m[0]]})
		}
		seg := Segment{Raw: s[m[0]:m[1]]}
		if m[2] >= 0 {
			seg.Kind, seg.Body = DisplayMath, s[m[2]:m[3]]
		} else {
			seg.Kind, seg.Body = InlineMath, s[m[4]:m[5]]
		}
		out = append(out, seg)
		pos = m[1]
	}
	if pos < len(s) {
		out = append(out, Segment{Kind: Text, Body: s[pos:], Raw: s[pos:]})
	}
	return out
}
