package console

import "github.com/google/uuid"

// DefaultMaxLines bounds the transcript when no explicit capacity is configured.
const DefaultMaxLines = 100

// LineKind tags the content of a transcript line.
type LineKind int

const (
	// LineOutput is text emitted by the program or the echoed user input.
	LineOutput LineKind = iota
	// LineInput is the placeholder shown while a read is pending.
	LineInput
)

func (k LineKind) String() string {
	switch k {
	case LineOutput:
		return "output"
	case LineInput:
		return "input"
	default:
		return "unknown"
	}
}

// Line is one transcript entry. ID is unique and stable for display diffing.
type Line struct {
	ID   uuid.UUID
	Kind LineKind
	Text StyledText
}

// OutputLine builds an output line with a fresh id.
func OutputLine(text StyledText) Line {
	return Line{ID: uuid.New(), Kind: LineOutput, Text: text.clone()}
}

// InputLine builds a pending-input placeholder with a fresh id.
func InputLine() Line {
	return Line{ID: uuid.New(), Kind: LineInput}
}

// LineBuffer is a bounded, insertion-ordered transcript. When full, the oldest
// line is evicted before a new one is pushed. It is not synchronized; the
// owning Session serializes access and enforces the Running guard.
type LineBuffer struct {
	lines []Line
	max   int
}

// NewLineBuffer returns a buffer holding at most maxLines entries.
func NewLineBuffer(maxLines int) *LineBuffer {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	return &LineBuffer{max: maxLines}
}

// Push appends line, evicting from the front at capacity. Re-slicing the front
// keeps eviction O(1); the next growth copies only the live window.
func (b *LineBuffer) Push(line Line) {
	if len(b.lines) >= b.max {
		b.lines[0] = Line{}
		b.lines = b.lines[1:]
	}
	b.lines = append(b.lines, line)
}

// ReplaceLast swaps the newest line's content in place. It reports false when
// the buffer is empty.
func (b *LineBuffer) ReplaceLast(kind LineKind, text StyledText) bool {
	if len(b.lines) == 0 {
		return false
	}
	last := &b.lines[len(b.lines)-1]
	last.Kind = kind
	last.Text = text.clone()
	return true
}

// Last returns the newest line.
func (b *LineBuffer) Last() (Line, bool) {
	if len(b.lines) == 0 {
		return Line{}, false
	}
	return b.lines[len(b.lines)-1], true
}

// Snapshot returns a copy of the lines in insertion order.
func (b *LineBuffer) Snapshot() []Line {
	out := make([]Line, len(b.lines))
	for i, line := range b.lines {
		line.Text = line.Text.clone()
		out[i] = line
	}
	return out
}

// Len reports the number of retained lines.
func (b *LineBuffer) Len() int {
	return len(b.lines)
}

// Cap reports the retention bound.
func (b *LineBuffer) Cap() int {
	return b.max
}

// Reset drops every line.
func (b *LineBuffer) Reset() {
	b.lines = nil
}
