// Package document holds the server's copy of a single open text buffer.
//
// A Document is created from the text the client sends when it opens a
// buffer and is then kept in step by applying the client's incremental
// changes in the order they arrive. Each change's range is interpreted
// against the result of every change before it, so changes must be applied
// exactly once and in order.
package document

import (
	"fmt"
	"leptosls/internal/position"
	"leptosls/internal/rope"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Document is one buffer's content plus its identity. Content lives in an
// immutable rope, so Clone is O(1).
//
// A Document is not safe for concurrent mutation; the store serializes
// access per document.
type Document struct {
	uri        protocol.DocumentUri
	languageID string
	version    protocol.Integer
	content    rope.Rope
}

// Change is one incremental edit. A nil Range replaces the whole buffer.
type Change struct {
	Range *protocol.Range
	Text  string
}

// Edit describes an applied change in bytes and (row, byte column) points:
// the bytes [StartByte, OldEndByte) of the previous content were replaced by
// the bytes [StartByte, NewEndByte) of the new content.
type Edit struct {
	StartByte   int
	OldEndByte  int
	NewEndByte  int
	StartPoint  position.Point
	OldEndPoint position.Point
	NewEndPoint position.Point
}

// New creates a document holding text verbatim.
func New(uri protocol.DocumentUri, languageID string, version protocol.Integer, text string) *Document {
	return &Document{
		uri:        uri,
		languageID: languageID,
		version:    version,
		content:    rope.FromString(text),
	}
}

func (d *Document) URI() protocol.DocumentUri { return d.uri }

func (d *Document) LanguageID() string { return d.languageID }

func (d *Document) Version() protocol.Integer { return d.version }

// Len returns the content length in bytes.
func (d *Document) Len() int { return d.content.Len() }

// Text returns the complete current content.
func (d *Document) Text() string {
	return d.content.String()
}

// Clone returns an independent snapshot of the document.
func (d *Document) Clone() *Document {
	clone := *d
	return &clone
}

// Region returns a copy of the text between start and end.
func (d *Document) Region(start, end protocol.Position) (string, error) {
	from, to, err := resolve(d.content, protocol.Range{Start: start, End: end})
	if err != nil {
		return "", err
	}
	return d.content.Slice(from, to), nil
}

// Offset converts a protocol position to a byte offset in the content.
func (d *Document) Offset(pos protocol.Position) (int, error) {
	return position.ToByteOffset(d.content, pos)
}

// Position converts a byte offset in the content to a protocol position.
func (d *Document) Position(offset int) (protocol.Position, error) {
	return position.ToPosition(d.content, offset)
}

// Range converts the byte span [start, end) to a protocol range.
func (d *Document) Range(start, end int) (protocol.Range, error) {
	from, err := d.Position(start)
	if err != nil {
		return protocol.Range{}, err
	}
	to, err := d.Position(end)
	if err != nil {
		return protocol.Range{}, err
	}
	return protocol.Range{Start: from, End: to}, nil
}

// ApplyChange applies a single change. On error the content is unchanged.
func (d *Document) ApplyChange(change Change) (Edit, error) {
	content, edit, err := apply(d.content, change)
	if err != nil {
		return Edit{}, err
	}
	d.content = content
	return edit, nil
}

// ApplyChanges applies a batch of changes in order and sets the document
// version. The batch is atomic: if any change is rejected, neither the
// content nor the version changes. A version that does not advance past
// the current one is rejected with ErrStaleVersion.
func (d *Document) ApplyChanges(version protocol.Integer, changes []Change) ([]Edit, error) {
	if version <= d.version {
		return nil, fmt.Errorf("%w: got version %d, document %s is at %d", ErrStaleVersion, version, d.uri, d.version)
	}

	content := d.content
	edits := make([]Edit, 0, len(changes))
	for i, change := range changes {
		next, edit, err := apply(content, change)
		if err != nil {
			return nil, fmt.Errorf("change %d of %d: %w", i+1, len(changes), err)
		}
		content = next
		edits = append(edits, edit)
	}

	d.content = content
	d.version = version
	return edits, nil
}

// resolve converts a protocol range to byte offsets in content.
func resolve(content rope.Rope, r protocol.Range) (int, int, error) {
	if position.Compare(r.Start, r.End) > 0 {
		return 0, 0, fmt.Errorf("%w: start %d:%d is after end %d:%d",
			ErrInvalidRange, r.Start.Line, r.Start.Character, r.End.Line, r.End.Character)
	}
	start, err := position.ToByteOffset(content, r.Start)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: start: %w", ErrInvalidRange, err)
	}
	end, err := position.ToByteOffset(content, r.End)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: end: %w", ErrInvalidRange, err)
	}
	return start, end, nil
}

// apply computes the content after change, along with the edit describing
// it. Both offsets are resolved against content before anything is
// modified.
func apply(content rope.Rope, change Change) (rope.Rope, Edit, error) {
	start, end := 0, content.Len()
	if change.Range != nil {
		var err error
		if start, end, err = resolve(content, *change.Range); err != nil {
			return content, Edit{}, err
		}
	}

	startPoint, err := position.ToPoint(content, start)
	if err != nil {
		return content, Edit{}, fmt.Errorf("%w: %w", ErrInvalidRange, err)
	}
	oldEndPoint, err := position.ToPoint(content, end)
	if err != nil {
		return content, Edit{}, fmt.Errorf("%w: %w", ErrInvalidRange, err)
	}

	edit := Edit{
		StartByte:   start,
		OldEndByte:  end,
		NewEndByte:  start + len(change.Text),
		StartPoint:  startPoint,
		OldEndPoint: oldEndPoint,
		NewEndPoint: position.PointAfter(startPoint, change.Text),
	}
	return content.Replace(start, end, change.Text), edit, nil
}
