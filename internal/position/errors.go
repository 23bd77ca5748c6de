package position

import (
	"errors"
	"fmt"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// ErrCoordinateOutOfRange is matched by every conversion failure.
var ErrCoordinateOutOfRange = errors.New("coordinate out of range")

// OutOfRangeError describes a position or offset that does not address the
// buffer it was resolved against.
type OutOfRangeError struct {
	Position *protocol.Position
	Offset   int
	Reason   string
}

func (e *OutOfRangeError) Error() string {
	if e.Position != nil {
		return fmt.Sprintf("%s: %d:%d: %s", ErrCoordinateOutOfRange, e.Position.Line, e.Position.Character, e.Reason)
	}
	return fmt.Sprintf("%s: offset %d: %s", ErrCoordinateOutOfRange, e.Offset, e.Reason)
}

func (e *OutOfRangeError) Unwrap() error {
	return ErrCoordinateOutOfRange
}

func positionError(pos protocol.Position, format string, args ...any) error {
	return &OutOfRangeError{Position: &pos, Reason: fmt.Sprintf(format, args...)}
}

func offsetError(offset int, format string, args ...any) error {
	return &OutOfRangeError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}
