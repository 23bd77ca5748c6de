package server

import (
	"leptosls/internal/document"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func (s *Server) textDocumentDidOpen(
	context *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	item := params.TextDocument
	key := documentKey(item.URI)

	c, err := s.components()
	if err != nil {
		return err
	}

	s.documents.Open(key, document.New(item.URI, item.LanguageID, item.Version, item.Text))
	// A reopened document starts over with a fresh tree. Releasing under the
	// entry lock keeps a concurrent formatting parse from storing a tree of
	// the previous text at the same version.
	err = s.documents.Mutate(key, func(*document.Document) error {
		c.trees.Release(key)
		return nil
	})
	if err != nil {
		return err
	}
	log.Debugf("opened %s (version %d, %d bytes)", key, item.Version, len(item.Text))
	return nil
}

func (s *Server) textDocumentDidChange(
	context *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	key := documentKey(params.TextDocument.URI)

	changes, err := document.ChangesFromProtocol(params.ContentChanges)
	if err != nil {
		return err
	}
	c, err := s.components()
	if err != nil {
		return err
	}

	err = s.documents.Mutate(key, func(doc *document.Document) error {
		edits, err := doc.ApplyChanges(params.TextDocument.Version, changes)
		if err != nil {
			return err
		}
		c.trees.Edit(key, doc.Version(), edits)
		return nil
	})
	if err != nil {
		log.Errorf("failed to apply changes to %s: %v", key, err)
		return err
	}
	return nil
}

// textDocumentDidSave checks the saved text against the stored content and
// resynchronizes when they differ.
func (s *Server) textDocumentDidSave(
	context *glsp.Context,
	params *protocol.DidSaveTextDocumentParams,
) error {
	if params.Text == nil {
		return nil
	}
	key := documentKey(params.TextDocument.URI)

	c, err := s.components()
	if err != nil {
		return err
	}

	return s.documents.Mutate(key, func(doc *document.Document) error {
		if doc.Text() == *params.Text {
			return nil
		}
		log.Warningf("%s out of sync on save, resynchronizing", key)
		if _, err := doc.ApplyChange(document.Change{Text: *params.Text}); err != nil {
			return err
		}
		c.trees.Release(key)
		return nil
	})
}

func (s *Server) textDocumentDidClose(
	context *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	key := documentKey(params.TextDocument.URI)

	if err := s.documents.Close(key); err != nil {
		return err
	}
	if c, err := s.components(); err == nil {
		c.trees.Release(key)
	}
	log.Debugf("closed %s", key)
	return nil
}
