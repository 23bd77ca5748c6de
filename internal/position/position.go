// Package position converts between protocol coordinates and byte offsets.
//
// The language server protocol addresses text by zero-based line and a
// character offset counted in UTF-16 code units, while buffers are stored as
// UTF-8 bytes. Every coordinate that crosses the protocol boundary goes
// through this package exactly once in each direction.
//
// Lines are separated by '\n'. A '\r' before the '\n' counts as part of the
// line's content.
package position

import (
	"unicode/utf16"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Buffer is a read-only view of UTF-8 text with line lookups. rope.Rope
// satisfies it.
type Buffer interface {
	Len() int
	LineCount() int
	LineStart(line int) int
	LineOf(offset int) int
	Slice(start, end int) string
}

// Point is a row and a byte column, the coordinates tree-sitter works in.
type Point struct {
	Row    uint32
	Column uint32
}

// ToByteOffset resolves pos to an absolute byte offset in buf.
//
// The line must exist and the character must not exceed the UTF-16 length of
// that line or fall between the two halves of a surrogate pair; otherwise an
// error matching ErrCoordinateOutOfRange is returned.
func ToByteOffset(buf Buffer, pos protocol.Position) (int, error) {
	line := int(pos.Line)
	if line >= buf.LineCount() {
		return 0, positionError(pos, "line %d does not exist, last line is %d", line, buf.LineCount()-1)
	}

	start := buf.LineStart(line)
	text := buf.Slice(start, lineEnd(buf, line))

	want := int(pos.Character)
	units := 0
	for i, r := range text {
		if units == want {
			return start + i, nil
		}
		units += runeUnits(r)
		if units > want {
			return 0, positionError(pos, "character %d splits a surrogate pair", want)
		}
	}
	if units == want {
		return start + len(text), nil
	}
	return 0, positionError(pos, "character %d is past the end of line %d (%d UTF-16 units)", want, line, units)
}

// ToPosition resolves a byte offset in buf to a protocol position.
//
// The offset must lie in [0, Len] and on the first byte of a UTF-8 sequence
// (or at Len); otherwise an error matching ErrCoordinateOutOfRange is
// returned.
func ToPosition(buf Buffer, offset int) (protocol.Position, error) {
	if err := checkOffset(buf, offset); err != nil {
		return protocol.Position{}, err
	}

	line := buf.LineOf(offset)
	prefix := buf.Slice(buf.LineStart(line), offset)

	return protocol.Position{
		Line:      protocol.UInteger(line),
		Character: protocol.UInteger(utf16Len(prefix)),
	}, nil
}

// ToPoint resolves a byte offset in buf to a row and byte column.
func ToPoint(buf Buffer, offset int) (Point, error) {
	if err := checkOffset(buf, offset); err != nil {
		return Point{}, err
	}

	line := buf.LineOf(offset)
	return Point{
		Row:    uint32(line),
		Column: uint32(offset - buf.LineStart(line)),
	}, nil
}

// PointAfter returns the point reached by writing text starting at start.
func PointAfter(start Point, text string) Point {
	for i := len(text) - 1; i >= 0; i-- {
		if text[i] == '\n' {
			return Point{
				Row:    start.Row + uint32(countNewlines(text)),
				Column: uint32(len(text) - i - 1),
			}
		}
	}
	return Point{Row: start.Row, Column: start.Column + uint32(len(text))}
}

// Compare orders two positions in document order.
func Compare(a, b protocol.Position) int {
	switch {
	case a.Line < b.Line:
		return -1
	case a.Line > b.Line:
		return 1
	case a.Character < b.Character:
		return -1
	case a.Character > b.Character:
		return 1
	}
	return 0
}

func checkOffset(buf Buffer, offset int) error {
	if offset < 0 || offset > buf.Len() {
		return offsetError(offset, "offset is outside [0, %d]", buf.Len())
	}
	if offset < buf.Len() {
		if b := buf.Slice(offset, offset+1); !utf8.RuneStart(b[0]) {
			return offsetError(offset, "offset is inside a UTF-8 sequence")
		}
	}
	return nil
}

// lineEnd returns the offset of the newline ending line, or Len for the
// last line.
func lineEnd(buf Buffer, line int) int {
	if line+1 < buf.LineCount() {
		return buf.LineStart(line+1) - 1
	}
	return buf.Len()
}

func runeUnits(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

func utf16Len(s string) int {
	units := 0
	for _, r := range s {
		units += runeUnits(r)
	}
	return units
}

func countNewlines(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
		}
	}
	return n
}
