package document

import (
	"fmt"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// ChangesFromProtocol converts the content changes of a didChange
// notification, preserving their order.
func ChangesFromProtocol(raw []any) ([]Change, error) {
	changes := make([]Change, 0, len(raw))
	for i, r := range raw {
		switch c := r.(type) {
		case protocol.TextDocumentContentChangeEvent:
			changes = append(changes, Change{Range: c.Range, Text: c.Text})
		case *protocol.TextDocumentContentChangeEvent:
			changes = append(changes, Change{Range: c.Range, Text: c.Text})
		case protocol.TextDocumentContentChangeEventWhole:
			changes = append(changes, Change{Text: c.Text})
		case *protocol.TextDocumentContentChangeEventWhole:
			changes = append(changes, Change{Text: c.Text})
		default:
			return nil, fmt.Errorf("%w: change %d has type %T", ErrUnsupportedChange, i+1, r)
		}
	}
	return changes, nil
}
