package server

import (
	"context"
	"leptosls/internal/document"
	"leptosls/internal/format"
	"leptosls/internal/syntax"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func (s *Server) textDocumentFormatting(
	context *glsp.Context,
	params *protocol.DocumentFormattingParams,
) ([]protocol.TextEdit, error) {
	return s.formatDocument(params.TextDocument.URI, nil)
}

func (s *Server) textDocumentRangeFormatting(
	context *glsp.Context,
	params *protocol.DocumentRangeFormattingParams,
) ([]protocol.TextEdit, error) {
	return s.formatDocument(params.TextDocument.URI, &params.Range)
}

// formatDocument formats the callsites of the document at uri, limited to
// those overlapping r when it is non-nil.
func (s *Server) formatDocument(uri protocol.DocumentUri, r *protocol.Range) ([]protocol.TextEdit, error) {
	key := documentKey(uri)
	ctx := context.Background()

	c, err := s.components()
	if err != nil {
		return nil, err
	}

	// Parse under the read lock so the tree and the text agree on a version.
	var snapshot *document.Document
	var callsites []syntax.Callsite
	err = s.documents.View(key, func(doc *document.Document) error {
		snapshot = doc.Clone()
		var err error
		callsites, err = c.trees.Callsites(ctx, key, doc.Version(), []byte(doc.Text()))
		return err
	})
	if err != nil {
		return nil, err
	}

	if r != nil {
		if callsites, err = format.InRange(snapshot, callsites, *r); err != nil {
			return nil, err
		}
	}
	if len(callsites) == 0 {
		return nil, nil
	}

	edits, err := format.Edits(ctx, snapshot, callsites, c.formatter, c.config.MaxParallelFormat)
	if err != nil {
		log.Errorf("failed to format %s: %v", key, err)
		return nil, err
	}
	log.Debugf("formatted %s: %d of %d callsites changed", key, len(edits), len(callsites))
	return edits, nil
}
