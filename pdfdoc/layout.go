package pdfdoc

import (
	"strings"
	"unicode"

	"github.com/ieltsdesk/backend/grammar"
)

// Measurer returns the printed width of s in the current font.
type Measurer func(s string) float64

// Fragment is a piece of one line drawn at horizontal offset X from the
// left margin.
type Fragment struct {
	Text    string
	X       float64
	Width   float64
	IsError bool
}

type Line struct {
	Fragments []Fragment
}

func (l Line) Text() string {
	var sb strings.Builder
	for _, f := range l.Fragments {
		sb.WriteString(f.Text)
	}
	return sb.String()
}

// Layout breaks runs into lines no wider than width. Text is split into
// alternating whitespace and word tokens; a token that does not fit moves
// to a new line unless the line is still empty, whitespace at the start of
// a wrapped line is dropped and "\n" always starts a new line.
func Layout(runs []grammar.Run, width float64, measure Measurer) []Line {
	l := &layouter{width: width, measure: measure}
	for _, run := range runs {
		for _, tok := range tokenize(run.Text) {
			l.add(tok, run.IsError)
		}
	}
	if l.started {
		l.lines = append(l.lines, l.current)
	}
	return l.lines
}

type layouter struct {
	width   float64
	measure Measurer

	lines   []Line
	current Line
	x       float64
	wrapped bool // current line began with a soft wrap
	started bool
}

func (l *layouter) add(tok string, isError bool) {
	l.started = true

	if tok == "\n" {
		l.newLine(false)
		return
	}

	space := isSpace(tok)
	if space && l.x == 0 && l.wrapped {
		return
	}

	w := l.measure(tok)
	if l.x+w > l.width && l.x > 0 {
		l.newLine(true)
		if space {
			return
		}
	}

	frags := l.current.Fragments
	if n := len(frags); n > 0 && frags[n-1].IsError == isError {
		frags[n-1].Text += tok
		frags[n-1].Width += w
	} else {
		l.current.Fragments = append(frags, Fragment{Text: tok, X: l.x, Width: w, IsError: isError})
	}
	l.x += w
}

func (l *layouter) newLine(wrapped bool) {
	l.lines = append(l.lines, l.current)
	l.current = Line{}
	l.x = 0
	l.wrapped = wrapped
}

func isSpace(tok string) bool {
	for _, r := range tok {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// tokenize splits s into newline, whitespace and word tokens. Carriage
// returns are dropped and tabs become four spaces.
func tokenize(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\t", "    ")

	var tokens []string
	start := 0
	prevSpace := false
	for i, r := range s {
		if r == '\n' {
			if i > start {
				tokens = append(tokens, s[start:i])
			}
			tokens = append(tokens, "\n")
			start = i + 1
			continue
		}
		space := unicode.IsSpace(r)
		if i > start && space != prevSpace {
			tokens = append(tokens, s[start:i])
			start = i
		}
		prevSpace = space
	}
	if start < len(s) {
		tokens = append(tokens, s[start:])
	}
	return tokens
}
