// Package syntax keeps an incrementally updated Rust syntax tree per open
// document and finds macro callsites in it.
package syntax

import (
	"context"
	"errors"
	"fmt"
	"leptosls/internal/document"
	"sync"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"

	sitter "github.com/smacker/go-tree-sitter"
)

var log = commonlog.GetLogger("leptosls.syntax")

// Tree wraps a tree-sitter parser and the last tree it produced. The tree
// is kept in step with the document through Edit, so the next parse can
// reuse unchanged subtrees.
type Tree struct {
	mu      sync.Mutex
	parser  *sitter.Parser
	query   *sitter.Query
	tree    *sitter.Tree
	version protocol.Integer
}

func newTree(query *sitter.Query) *Tree {
	p := sitter.NewParser()
	p.SetLanguage(lang)
	return &Tree{parser: p, query: query}
}

// Edit records edits that produced version of the document. Edits for a
// version the tree has already reached are ignored.
func (t *Tree) Edit(version protocol.Integer, edits []document.Edit) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if version <= t.version {
		return
	}
	if t.tree != nil {
		for _, e := range edits {
			t.tree.Edit(editInput(e))
		}
	}
	t.version = version
}

// Callsites parses source, which must be the text of version, and returns
// its outermost macro callsites ordered by start.
func (t *Tree) Callsites(ctx context.Context, version protocol.Integer, source []byte) ([]Callsite, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.parser == nil {
		return nil, fmt.Errorf("syntax tree is closed")
	}

	// The edited tree only describes the version it was edited to.
	var old *sitter.Tree
	if t.tree != nil && t.version == version {
		old = t.tree
	}

	tree, err := t.parser.ParseCtx(ctx, old, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}

	callsites := executeQuery(t.query, tree.RootNode(), source)

	switch {
	case version >= t.version:
		if t.tree != nil {
			t.tree.Close()
		}
		t.tree = tree
		t.version = version
	default:
		// A newer version is already being tracked.
		log.Debugf("discarding parse of stale version %d (tracking %d)", version, t.version)
		tree.Close()
	}

	return callsites, nil
}

// Close frees the parser and tree.
func (t *Tree) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
	if t.parser != nil {
		t.parser.Close()
		t.parser = nil
	}
}

// Trees holds one Tree per document key.
type Trees struct {
	mu     sync.Mutex
	query  *sitter.Query
	trees  map[string]*Tree
	closed bool
}

// NewTrees creates an empty set of trees that look for invocations of the
// given macro names.
func NewTrees(macros []string) (*Trees, error) {
	pattern, err := callsiteQuery(macros)
	if err != nil {
		return nil, err
	}
	q, err := sitter.NewQuery(pattern, lang)
	if err != nil {
		return nil, fmt.Errorf("failed to compile callsite query: %w", err)
	}
	return &Trees{
		query: q,
		trees: make(map[string]*Tree),
	}, nil
}

// ErrClosed is returned when using Trees after Close.
var ErrClosed = errors.New("syntax trees closed")

// Get returns the tree for key, creating it if needed.
func (ts *Trees) Get(key string) (*Tree, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.closed {
		return nil, ErrClosed
	}
	t, ok := ts.trees[key]
	if !ok {
		t = newTree(ts.query)
		ts.trees[key] = t
	}
	return t, nil
}

// Edit forwards edits to the tree for key, if one exists. Without a tree
// there is nothing to keep in step; the first parse starts from scratch.
func (ts *Trees) Edit(key string, version protocol.Integer, edits []document.Edit) {
	ts.mu.Lock()
	t, ok := ts.trees[key]
	ts.mu.Unlock()

	if ok {
		t.Edit(version, edits)
	}
}

// Callsites returns the callsites of source, the text of key at version.
func (ts *Trees) Callsites(ctx context.Context, key string, version protocol.Integer, source []byte) ([]Callsite, error) {
	t, err := ts.Get(key)
	if err != nil {
		return nil, err
	}
	return t.Callsites(ctx, version, source)
}

// Release drops the tree for key.
func (ts *Trees) Release(key string) {
	ts.mu.Lock()
	t, ok := ts.trees[key]
	delete(ts.trees, key)
	ts.mu.Unlock()

	if ok {
		t.Close()
	}
}

// Len returns the number of live trees.
func (ts *Trees) Len() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.trees)
}

// Close releases every tree and the compiled query.
func (ts *Trees) Close() {
	ts.mu.Lock()
	if ts.closed {
		ts.mu.Unlock()
		return
	}
	ts.closed = true
	trees := ts.trees
	ts.trees = make(map[string]*Tree)
	ts.mu.Unlock()

	for _, t := range trees {
		t.Close()
	}
	ts.query.Close()
}
