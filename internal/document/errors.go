package document

import "errors"

var (
	// ErrInvalidRange is returned when a range is reversed or does not fit
	// the document. Conversion failures are wrapped alongside it, so
	// position.ErrCoordinateOutOfRange matches as well.
	ErrInvalidRange = errors.New("invalid range")

	// ErrStaleVersion is returned when a change batch does not advance the
	// document version.
	ErrStaleVersion = errors.New("stale document version")

	// ErrUnsupportedChange is returned for change events of an unknown shape.
	ErrUnsupportedChange = errors.New("unsupported change event")
)
