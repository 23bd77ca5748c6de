package syntax

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

var (
	lang = rust.GetLanguage()

	identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

const (
	captureCallsite = "callsite"
	captureName     = "name"
)

// Callsite is one macro invocation, as the byte span [StartByte, EndByte)
// from the macro name through its closing delimiter.
type Callsite struct {
	Name      string
	StartByte int
	EndByte   int
}

// callsiteQuery matches `name!(...)` and `path::name!(...)` for the given
// macro names.
func callsiteQuery(macros []string) ([]byte, error) {
	if len(macros) == 0 {
		return nil, fmt.Errorf("no macro names configured")
	}
	for _, m := range macros {
		if !identifier.MatchString(m) {
			return nil, fmt.Errorf("invalid macro name %q", m)
		}
	}
	predicate := fmt.Sprintf(`(#match? @%s "^(%s)$")`, captureName, strings.Join(macros, "|"))

	return []byte(fmt.Sprintf(`
(macro_invocation
  macro: (identifier) @%[1]s
  %[3]s) @%[2]s

(macro_invocation
  macro: (scoped_identifier name: (identifier) @%[1]s)
  %[3]s) @%[2]s
`, captureName, captureCallsite, predicate)), nil
}

func executeQuery(q *sitter.Query, root *sitter.Node, source []byte) []Callsite {
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)

	var found []Callsite
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		m = qc.FilterPredicates(m, source)

		var c Callsite
		var matched bool
		for _, capture := range m.Captures {
			switch q.CaptureNameForId(capture.Index) {
			case captureName:
				c.Name = capture.Node.Content(source)
			case captureCallsite:
				c.StartByte = int(capture.Node.StartByte())
				c.EndByte = int(capture.Node.EndByte())
				matched = true
			}
		}
		if matched && c.Name != "" {
			found = append(found, c)
		}
	}

	return outermost(found)
}

// outermost orders callsites by start and drops those nested in another.
func outermost(callsites []Callsite) []Callsite {
	sort.Slice(callsites, func(i, j int) bool {
		if callsites[i].StartByte != callsites[j].StartByte {
			return callsites[i].StartByte < callsites[j].StartByte
		}
		return callsites[i].EndByte > callsites[j].EndByte
	})

	result := callsites[:0]
	end := -1
	for _, c := range callsites {
		if c.StartByte < end {
			continue
		}
		result = append(result, c)
		end = c.EndByte
	}
	return result
}
