package document_test

import (
	"errors"
	"leptosls/internal/document"
	"leptosls/internal/position"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

const sample = "this is\na\npiece of text"

func span(startLine, startChar, endLine, endChar uint32) *protocol.Range {
	return &protocol.Range{
		Start: protocol.Position{Line: startLine, Character: startChar},
		End:   protocol.Position{Line: endLine, Character: endChar},
	}
}

func newDoc(text string) *document.Document {
	return document.New("file:///src/app.rs", "rust", 0, text)
}

func TestApplyChange(t *testing.T) {
	tests := []struct {
		name     string
		initial  string
		change   document.Change
		expected string
	}{
		{
			name:     "Insertion",
			initial:  sample,
			change:   document.Change{Range: span(1, 1, 1, 1), Text: " nice"},
			expected: "this is\na nice\npiece of text",
		},
		{
			name:     "Replacement",
			initial:  sample,
			change:   document.Change{Range: span(2, 9, 2, 13), Text: "cake"},
			expected: "this is\na\npiece of cake",
		},
		{
			name:     "Full Replacement",
			initial:  "old",
			change:   document.Change{Text: "new"},
			expected: "new",
		},
		{
			name:     "Deletion Across Lines",
			initial:  sample,
			change:   document.Change{Range: span(0, 4, 2, 5), Text: ""},
			expected: "this of text",
		},
		{
			name:     "Insert Newline",
			initial:  sample,
			change:   document.Change{Range: span(0, 7, 0, 7), Text: "\nreally"},
			expected: "this is\nreally\na\npiece of text",
		},
		{
			name:     "Append At End",
			initial:  sample,
			change:   document.Change{Range: span(2, 13, 2, 13), Text: "!"},
			expected: "this is\na\npiece of text!",
		},
		{
			name:     "After Surrogate Pair",
			initial:  "let s = \"🌍\";",
			change:   document.Change{Range: span(0, 11, 0, 12), Text: "'"},
			expected: "let s = \"🌍';",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newDoc(tt.initial)
			if _, err := doc.ApplyChange(tt.change); err != nil {
				t.Fatalf("Failed to apply change: %v", err)
			}
			if got := doc.Text(); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestApplyChangeRejected(t *testing.T) {
	tests := []struct {
		name   string
		change document.Change
	}{
		{"End Before Start", document.Change{Range: span(2, 4, 1, 0), Text: "x"}},
		{"Line Past End", document.Change{Range: span(3, 0, 3, 0), Text: "x"}},
		{"Character Past Line", document.Change{Range: span(1, 0, 1, 5), Text: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newDoc(sample)
			_, err := doc.ApplyChange(tt.change)
			if !errors.Is(err, document.ErrInvalidRange) {
				t.Fatalf("Expected ErrInvalidRange, got %v", err)
			}
			if doc.Text() != sample {
				t.Errorf("Rejected change modified content: %q", doc.Text())
			}
		})
	}

	t.Run("Out Of Range Is Distinguishable", func(t *testing.T) {
		_, err := newDoc(sample).ApplyChange(document.Change{Range: span(9, 0, 9, 0)})
		if !errors.Is(err, position.ErrCoordinateOutOfRange) {
			t.Errorf("Expected ErrCoordinateOutOfRange in chain, got %v", err)
		}
	})
}

func TestApplyChanges(t *testing.T) {
	t.Run("Sequential", func(t *testing.T) {
		doc := newDoc(sample)
		changes := []document.Change{
			{Range: span(1, 1, 1, 1), Text: " nice"},
			// Interpreted against the result of the first change.
			{Range: span(1, 2, 1, 6), Text: "tasty"},
			{Range: span(2, 9, 2, 13), Text: "cake"},
		}
		edits, err := doc.ApplyChanges(1, changes)
		if err != nil {
			t.Fatalf("Failed to apply changes: %v", err)
		}
		if len(edits) != 3 {
			t.Errorf("Expected 3 edits, got %d", len(edits))
		}
		if expected := "this is\na tasty\npiece of cake"; doc.Text() != expected {
			t.Errorf("Expected %q, got %q", expected, doc.Text())
		}
		if doc.Version() != 1 {
			t.Errorf("Expected version 1, got %d", doc.Version())
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		changes := []document.Change{
			{Range: span(0, 0, 0, 4), Text: "that"},
			{Text: "fresh\nstart"},
			{Range: span(1, 5, 1, 5), Text: "ed"},
		}
		first, second := newDoc(sample), newDoc(sample)
		if _, err := first.ApplyChanges(1, changes); err != nil {
			t.Fatal(err)
		}
		if _, err := second.ApplyChanges(1, changes); err != nil {
			t.Fatal(err)
		}
		if first.Text() != second.Text() || first.Text() != "fresh\nstarted" {
			t.Errorf("Expected identical results, got %q and %q", first.Text(), second.Text())
		}
	})

	t.Run("Atomic", func(t *testing.T) {
		doc := newDoc(sample)
		changes := []document.Change{
			{Range: span(0, 0, 0, 4), Text: "that"},
			{Range: span(7, 0, 7, 0), Text: "bad"},
		}
		if _, err := doc.ApplyChanges(1, changes); !errors.Is(err, document.ErrInvalidRange) {
			t.Fatalf("Expected ErrInvalidRange, got %v", err)
		}
		if doc.Text() != sample {
			t.Errorf("Failed batch modified content: %q", doc.Text())
		}
		if doc.Version() != 0 {
			t.Errorf("Failed batch changed version to %d", doc.Version())
		}
	})

	t.Run("Stale Version", func(t *testing.T) {
		doc := document.New("file:///a.rs", "rust", 4, sample)
		_, err := doc.ApplyChanges(4, []document.Change{{Text: "x"}})
		if !errors.Is(err, document.ErrStaleVersion) {
			t.Fatalf("Expected ErrStaleVersion, got %v", err)
		}
		if doc.Text() != sample {
			t.Errorf("Stale batch modified content: %q", doc.Text())
		}
	})
}

func TestEdits(t *testing.T) {
	doc := newDoc("fn main() {\n    é\n}")
	edit, err := doc.ApplyChange(document.Change{Range: span(1, 5, 1, 5), Text: "\n    x"})
	if err != nil {
		t.Fatal(err)
	}

	expected := document.Edit{
		StartByte:   18,
		OldEndByte:  18,
		NewEndByte:  24,
		StartPoint:  position.Point{Row: 1, Column: 6},
		OldEndPoint: position.Point{Row: 1, Column: 6},
		NewEndPoint: position.Point{Row: 2, Column: 5},
	}
	if edit != expected {
		t.Errorf("Expected %+v, got %+v", expected, edit)
	}
}

func TestRegion(t *testing.T) {
	doc := newDoc(sample)

	got, err := doc.Region(protocol.Position{Line: 0, Character: 5}, protocol.Position{Line: 2, Character: 5})
	if err != nil {
		t.Fatal(err)
	}
	if got != "is\na\npiece" {
		t.Errorf("Expected %q, got %q", "is\na\npiece", got)
	}

	_, err = doc.Region(protocol.Position{Line: 2, Character: 0}, protocol.Position{Line: 1, Character: 0})
	if !errors.Is(err, document.ErrInvalidRange) {
		t.Errorf("Expected ErrInvalidRange, got %v", err)
	}

	// The copy must not observe later edits.
	if _, err := doc.ApplyChange(document.Change{Text: "gone"}); err != nil {
		t.Fatal(err)
	}
	if got != "is\na\npiece" {
		t.Errorf("Region changed after mutation: %q", got)
	}
}

func TestClone(t *testing.T) {
	doc := newDoc(sample)
	snapshot := doc.Clone()
	if _, err := doc.ApplyChanges(1, []document.Change{{Text: "changed"}}); err != nil {
		t.Fatal(err)
	}
	if snapshot.Text() != sample || snapshot.Version() != 0 {
		t.Errorf("Snapshot observed mutation: %q v%d", snapshot.Text(), snapshot.Version())
	}
}

func TestChangesFromProtocol(t *testing.T) {
	raw := []any{
		protocol.TextDocumentContentChangeEvent{Range: span(0, 0, 0, 1), Text: "a"},
		protocol.TextDocumentContentChangeEventWhole{Text: "whole"},
	}
	changes, err := document.ChangesFromProtocol(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 2 || changes[0].Range == nil || changes[1].Range != nil {
		t.Errorf("Unexpected conversion: %+v", changes)
	}

	if _, err := document.ChangesFromProtocol([]any{"nope"}); !errors.Is(err, document.ErrUnsupportedChange) {
		t.Errorf("Expected ErrUnsupportedChange, got %v", err)
	}
}
