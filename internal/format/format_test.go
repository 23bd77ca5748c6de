package format_test

import (
	"context"
	"errors"
	"leptosls/internal/cache"
	"leptosls/internal/document"
	"leptosls/internal/format"
	"leptosls/internal/syntax"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

const source = `fn app() -> impl IntoView {
    view! {   <p>"a"</p>   }
}

fn other() -> impl IntoView {
    view! { <p>"ok"</p> }
}
`

// squash collapses runs of spaces and puts the body on its own line, so
// the output has a continuation line to re-indent.
var squash = format.Func(func(_ context.Context, src string) (string, error) {
	body := strings.TrimSuffix(strings.TrimPrefix(src, "view! {"), "}")
	return "view! {\n    " + strings.Join(strings.Fields(body), " ") + "\n}\n", nil
})

func callsitesOf(text string) []syntax.Callsite {
	var found []syntax.Callsite
	for offset := 0; ; {
		i := strings.Index(text[offset:], "view! {")
		if i < 0 {
			return found
		}
		start := offset + i
		end := start + strings.Index(text[start:], "}") + 1
		found = append(found, syntax.Callsite{Name: "view", StartByte: start, EndByte: end})
		offset = end
	}
}

func TestEdits(t *testing.T) {
	doc := document.New("file:///app.rs", "rust", 1, source)

	edits, err := format.Edits(context.Background(), doc, callsitesOf(source), squash, 2)
	if err != nil {
		t.Fatalf("Failed to compute edits: %v", err)
	}
	if len(edits) != 2 {
		t.Fatalf("Expected 2 edits, got %d: %+v", len(edits), edits)
	}

	first := edits[0]
	if first.Range.Start != (protocol.Position{Line: 1, Character: 4}) {
		t.Errorf("Unexpected start %+v", first.Range.Start)
	}
	if first.Range.End != (protocol.Position{Line: 1, Character: 28}) {
		t.Errorf("Unexpected end %+v", first.Range.End)
	}
	if expected := "view! {\n        <p>\"a\"</p>\n    }"; first.NewText != expected {
		t.Errorf("Expected %q, got %q", expected, first.NewText)
	}
	if edits[1].Range.Start.Line != 5 {
		t.Errorf("Expected second edit on line 5, got %d", edits[1].Range.Start.Line)
	}
}

func TestEditsSkipsUnchanged(t *testing.T) {
	doc := document.New("file:///app.rs", "rust", 1, source)
	identity := format.Func(func(_ context.Context, src string) (string, error) {
		return src + "\n", nil
	})

	edits, err := format.Edits(context.Background(), doc, callsitesOf(source), identity, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(edits) != 0 {
		t.Errorf("Expected no edits, got %+v", edits)
	}
}

func TestEditsError(t *testing.T) {
	doc := document.New("file:///app.rs", "rust", 1, source)
	boom := errors.New("boom")
	rejectFirst := format.Func(func(ctx context.Context, src string) (string, error) {
		if strings.Contains(src, `"a"`) {
			return "", boom
		}
		return squash(ctx, src)
	})

	// The rejected callsite is left alone, the rest still format.
	edits, err := format.Edits(context.Background(), doc, callsitesOf(source), rejectFirst, 1)
	if err != nil {
		t.Fatalf("Expected rejected callsite to be skipped, got %v", err)
	}
	if len(edits) != 1 || edits[0].Range.Start.Line != 5 {
		t.Errorf("Expected only the second callsite to be edited, got %+v", edits)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cancelled := format.Func(func(ctx context.Context, _ string) (string, error) {
		return "", ctx.Err()
	})
	if _, err := format.Edits(ctx, doc, callsitesOf(source), cancelled, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}

	bad := []syntax.Callsite{{Name: "view", StartByte: 0, EndByte: len(source) + 1}}
	if _, err := format.Edits(context.Background(), doc, bad, squash, 1); err == nil {
		t.Error("Expected error for a callsite outside the document")
	}
}

func TestEditsDelimiters(t *testing.T) {
	text := "view!(  <p/>  )\nview! [  <p/>  ]\nview! {  <p/>  }\n"
	doc := document.New("file:///delims.rs", "rust", 1, text)
	callsites := []syntax.Callsite{
		{Name: "view", StartByte: 0, EndByte: 15},
		{Name: "view", StartByte: 16, EndByte: 32},
		{Name: "view", StartByte: 33, EndByte: 49},
	}

	var mu sync.Mutex
	var inputs []string
	collapse := format.Func(func(_ context.Context, src string) (string, error) {
		mu.Lock()
		inputs = append(inputs, src)
		mu.Unlock()
		if !strings.Contains(src, "{") && !strings.HasSuffix(src, ";") {
			return "", errors.New("expected an item")
		}
		return strings.Join(strings.Fields(src), " ") + "\n", nil
	})

	edits, err := format.Edits(context.Background(), doc, callsites, collapse, 1)
	if err != nil {
		t.Fatal(err)
	}

	expected := []string{"view!( <p/> )", "view! [ <p/> ]", "view! { <p/> }"}
	if len(edits) != len(expected) {
		t.Fatalf("Expected %d edits, got %+v (inputs %q)", len(expected), edits, inputs)
	}
	for i, e := range edits {
		if e.NewText != expected[i] {
			t.Errorf("Edit %d: expected %q, got %q", i, expected[i], e.NewText)
		}
		if e.Range.Start.Line != uint32(i) {
			t.Errorf("Edit %d: expected line %d, got %d", i, i, e.Range.Start.Line)
		}
	}

	for _, in := range inputs {
		if strings.Contains(in, "{") == strings.HasSuffix(in, ";") {
			t.Errorf("Unexpected formatter input %q", in)
		}
	}
}

func TestEditsParallelism(t *testing.T) {
	text := strings.Repeat("view! { <p/> }\n", 12)
	doc := document.New("file:///many.rs", "rust", 1, text)

	var running, peak atomic.Int32
	slow := format.Func(func(_ context.Context, src string) (string, error) {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return src, nil
	})

	if _, err := format.Edits(context.Background(), doc, callsitesOf(text), slow, 3); err != nil {
		t.Fatal(err)
	}
	if peak.Load() > 3 {
		t.Errorf("Expected at most 3 concurrent formatter calls, saw %d", peak.Load())
	}
}

func TestInRange(t *testing.T) {
	doc := document.New("file:///app.rs", "rust", 1, source)
	callsites := callsitesOf(source)

	tests := []struct {
		name     string
		r        protocol.Range
		expected int
	}{
		{"Whole Document", protocol.Range{End: protocol.Position{Line: 7}}, 2},
		{"First Function", protocol.Range{Start: protocol.Position{Line: 0}, End: protocol.Position{Line: 2}}, 1},
		{"Cursor Inside Second", protocol.Range{
			Start: protocol.Position{Line: 5, Character: 10},
			End:   protocol.Position{Line: 5, Character: 10},
		}, 1},
		{"Between Callsites", protocol.Range{Start: protocol.Position{Line: 3}, End: protocol.Position{Line: 4}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selected, err := format.InRange(doc, callsites, tt.r)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(selected) != tt.expected {
				t.Errorf("Expected %d callsites, got %d", tt.expected, len(selected))
			}
		})
	}

	_, err := format.InRange(doc, callsites, protocol.Range{End: protocol.Position{Line: 40}})
	if !errors.Is(err, document.ErrInvalidRange) {
		t.Errorf("Expected ErrInvalidRange, got %v", err)
	}
}

func TestCached(t *testing.T) {
	var calls atomic.Int32
	counting := format.Func(func(_ context.Context, src string) (string, error) {
		calls.Add(1)
		return strings.ToUpper(src), nil
	})
	c := &format.Cached{Formatter: counting, Cache: cache.NewMemory(), Salt: "upper"}

	for i := 0; i < 3; i++ {
		got, err := c.Format(context.Background(), "view! {}")
		if err != nil {
			t.Fatal(err)
		}
		if got != "VIEW! {}" {
			t.Errorf("Expected %q, got %q", "VIEW! {}", got)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("Expected 1 formatter call, got %d", calls.Load())
	}
}

func TestCommand(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}

	cmd := &format.Command{Name: "cat", Timeout: time.Second}
	got, err := cmd.Format(context.Background(), "view! { <p/> }")
	if err != nil {
		t.Fatalf("Failed to run command: %v", err)
	}
	if got != "view! { <p/> }" {
		t.Errorf("Expected input echoed back, got %q", got)
	}

	missing := &format.Command{Name: "leptosls-no-such-formatter"}
	if _, err := missing.Format(context.Background(), "x"); err == nil {
		t.Error("Expected error for a missing command")
	}
}

func TestCommandTimeout(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}

	cmd := &format.Command{Name: "sleep", Args: []string{"5"}, Timeout: 50 * time.Millisecond}
	_, err := cmd.Format(context.Background(), "")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}
