package console

import "strings"

// Span is one run of text drawn in a single color. An empty Color means the
// default foreground.
type Span struct {
	Text  string
	Color string
}

// StyledText is an ordered sequence of colored spans.
type StyledText []Span

// Plain returns uncolored styled text.
func Plain(text string) StyledText {
	return StyledText{{Text: text}}
}

// Colored returns styled text drawn entirely in color.
func Colored(text, color string) StyledText {
	return StyledText{{Text: text, Color: strings.TrimSpace(color)}}
}

// Then returns a copy of s with one more span appended.
func (s StyledText) Then(text, color string) StyledText {
	out := make(StyledText, 0, len(s)+1)
	out = append(out, s...)
	return append(out, Span{Text: text, Color: strings.TrimSpace(color)})
}

// String flattens the spans into plain text.
func (s StyledText) String() string {
	var b strings.Builder
	for _, span := range s {
		b.WriteString(span.Text)
	}
	return b.String()
}

func (s StyledText) clone() StyledText {
	if s == nil {
		return nil
	}
	out := make(StyledText, len(s))
	copy(out, s)
	return out
}
