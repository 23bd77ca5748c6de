package syntax

import (
	"leptosls/internal/document"
	"leptosls/internal/position"

	sitter "github.com/smacker/go-tree-sitter"
)

// editInput converts an applied document edit into a tree-sitter edit.
// Both sides count columns in bytes, so no re-encoding is needed.
func editInput(e document.Edit) sitter.EditInput {
	return sitter.EditInput{
		StartIndex:  uint32(e.StartByte),
		OldEndIndex: uint32(e.OldEndByte),
		NewEndIndex: uint32(e.NewEndByte),
		StartPoint:  point(e.StartPoint),
		OldEndPoint: point(e.OldEndPoint),
		NewEndPoint: point(e.NewEndPoint),
	}
}

func point(p position.Point) sitter.Point {
	return sitter.Point{Row: p.Row, Column: p.Column}
}
