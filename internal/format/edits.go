package format

import (
	"context"
	"fmt"
	"leptosls/internal/document"
	"leptosls/internal/syntax"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"
	"golang.org/x/sync/errgroup"
)

// Edits formats every callsite of doc and returns one edit per callsite
// whose text changes, in callsite order. At most parallelism formatter
// calls run at once. A callsite the formatter rejects is logged and left
// untouched; only cancellation fails the whole request.
func Edits(ctx context.Context, doc *document.Document, callsites []syntax.Callsite, f Formatter, parallelism int) ([]protocol.TextEdit, error) {
	text := doc.Text()
	for _, c := range callsites {
		if c.StartByte < 0 || c.EndByte > len(text) || c.StartByte > c.EndByte {
			return nil, fmt.Errorf("callsite [%d, %d) outside document of %d bytes", c.StartByte, c.EndByte, len(text))
		}
	}
	results := make([]*protocol.TextEdit, len(callsites))

	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}

	for i, c := range callsites {
		g.Go(func() error {
			original := text[c.StartByte:c.EndByte]
			input, wrapped := asItem(original)
			formatted, err := f.Format(gctx, input)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return fmt.Errorf("failed to format %s! at byte %d: %w", c.Name, c.StartByte, ctxErr)
				}
				log.Warningf("skipping %s! at byte %d: %v", c.Name, c.StartByte, err)
				return nil
			}

			formatted = strings.TrimRight(formatted, "\n")
			if wrapped {
				formatted = strings.TrimSuffix(strings.TrimRight(formatted, " \t"), ";")
			}
			formatted = reindent(formatted, indentation(text, c.StartByte))
			if formatted == original {
				return nil
			}

			r, err := doc.Range(c.StartByte, c.EndByte)
			if err != nil {
				return err
			}
			results[i] = &protocol.TextEdit{Range: r, NewText: formatted}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	edits := make([]protocol.TextEdit, 0, len(results))
	for _, e := range results {
		if e != nil {
			edits = append(edits, *e)
		}
	}
	return edits, nil
}

// asItem makes a macro invocation parse as a standalone item. Only brace
// delimited invocations are items on their own; parenthesized and
// bracketed ones need a trailing semicolon.
func asItem(invocation string) (string, bool) {
	bang := strings.IndexByte(invocation, '!')
	if bang < 0 {
		return invocation, false
	}
	rest := strings.TrimLeft(invocation[bang+1:], " \t\r\n")
	if rest == "" || rest[0] == '{' {
		return invocation, false
	}
	return invocation + ";", true
}

// InRange returns the callsites that overlap r. An empty range selects the
// callsites containing its position.
func InRange(doc *document.Document, callsites []syntax.Callsite, r protocol.Range) ([]syntax.Callsite, error) {
	start, err := doc.Offset(r.Start)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", document.ErrInvalidRange, err)
	}
	end, err := doc.Offset(r.End)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", document.ErrInvalidRange, err)
	}
	if start > end {
		return nil, fmt.Errorf("%w: start is after end", document.ErrInvalidRange)
	}

	var selected []syntax.Callsite
	for _, c := range callsites {
		var hit bool
		if start == end {
			hit = c.StartByte <= start && start <= c.EndByte
		} else {
			hit = c.StartByte < end && start < c.EndByte
		}
		if hit {
			selected = append(selected, c)
		}
	}
	return selected, nil
}

// indentation returns the leading whitespace of the line containing offset.
func indentation(text string, offset int) string {
	lineStart := strings.LastIndexByte(text[:offset], '\n') + 1
	line := text[lineStart:offset]
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// reindent prefixes every non-empty line after the first with indent.
func reindent(text, indent string) string {
	if indent == "" || !strings.Contains(text, "\n") {
		return text
	}
	lines := strings.Split(text, "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i] != "" {
			lines[i] = indent + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}
