// Package rope implements a persistent, height-balanced rope of UTF-8 text.
//
// Every node caches the byte length and newline count of its subtree, so
// splitting, joining, slicing, and line lookups are logarithmic in the size of
// the text. A Rope is an immutable value: Insert, Delete and Replace return a
// new Rope that shares unchanged subtrees with the original. Copying a Rope is
// therefore a cheap snapshot, and a Rope may be read from many goroutines.
//
//	r := rope.FromString("hello world")
//	r = r.Insert(5, ",")  // "hello, world"
//	r = r.Delete(0, 7)    // "world"
//
// Offsets are byte offsets. Out-of-range offsets are clamped into [0, Len];
// callers that accept offsets from the outside must validate them first.
package rope

import (
	"strings"
	"unicode/utf8"
)

// maxLeaf is the largest number of bytes kept in a single leaf.
const maxLeaf = 512

// Rope is an immutable sequence of text. The zero value is an empty rope.
type Rope struct {
	root *node
}

// FromString builds a balanced rope holding s.
func FromString(s string) Rope {
	return Rope{root: build(s)}
}

// Len returns the length of the text in bytes.
func (r Rope) Len() int {
	if r.root == nil {
		return 0
	}
	return r.root.length
}

// LineCount returns the number of lines, which is one more than the number
// of newline characters.
func (r Rope) LineCount() int {
	if r.root == nil {
		return 1
	}
	return r.root.lines + 1
}

// String returns the whole text.
func (r Rope) String() string {
	if r.root == nil {
		return ""
	}
	var sb strings.Builder
	sb.Grow(r.root.length)
	r.root.appendRange(&sb, 0, r.root.length)
	return sb.String()
}

// Slice returns a copy of the text in the byte range [start, end).
func (r Rope) Slice(start, end int) string {
	start, end = r.clamp(start), r.clamp(end)
	if start >= end {
		return ""
	}
	var sb strings.Builder
	sb.Grow(end - start)
	r.root.appendRange(&sb, start, end)
	return sb.String()
}

// Insert returns a rope with text inserted at offset.
func (r Rope) Insert(offset int, text string) Rope {
	if text == "" {
		return r
	}
	left, right := split(r.root, r.clamp(offset))
	return Rope{root: join(join(left, build(text)), right)}
}

// Delete returns a rope without the byte range [start, end).
func (r Rope) Delete(start, end int) Rope {
	start, end = r.clamp(start), r.clamp(end)
	if start >= end {
		return r
	}
	left, rest := split(r.root, start)
	_, right := split(rest, end-start)
	return Rope{root: join(left, right)}
}

// Replace returns a rope where the byte range [start, end) is replaced by
// text.
func (r Rope) Replace(start, end int, text string) Rope {
	return r.Delete(start, end).Insert(start, text)
}

// LineStart returns the byte offset of the first byte of line. Line 0
// starts at offset 0; a line past the last one maps to Len.
func (r Rope) LineStart(line int) int {
	if line <= 0 || r.root == nil {
		return 0
	}
	if line > r.root.lines {
		return r.root.length
	}

	n, offset := r.root, 0
	for !n.isLeaf() {
		if line <= n.left.lines {
			n = n.left
			continue
		}
		line -= n.left.lines
		offset += n.left.length
		n = n.right
	}

	idx := 0
	for ; line > 0; line-- {
		idx += strings.IndexByte(n.text[idx:], '\n') + 1
	}
	return offset + idx
}

// LineOf returns the zero-based line containing offset, that is, the number
// of newlines in [0, offset).
func (r Rope) LineOf(offset int) int {
	offset = r.clamp(offset)
	if r.root == nil {
		return 0
	}

	n, lines := r.root, 0
	for !n.isLeaf() {
		if offset <= n.left.length {
			n = n.left
			continue
		}
		lines += n.left.lines
		offset -= n.left.length
		n = n.right
	}
	return lines + strings.Count(n.text[:offset], "\n")
}

// Height returns the height of the underlying tree.
func (r Rope) Height() int {
	return height(r.root)
}

func (r Rope) clamp(offset int) int {
	if offset < 0 {
		return 0
	}
	if l := r.Len(); offset > l {
		return l
	}
	return offset
}

// build turns s into a balanced tree of leaves no larger than maxLeaf,
// cutting only at UTF-8 sequence boundaries.
func build(s string) *node {
	if s == "" {
		return nil
	}
	if len(s) <= maxLeaf {
		return newLeaf(s)
	}

	var chunks []string
	for len(s) > maxLeaf {
		cut := maxLeaf
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if cut == 0 {
			cut = maxLeaf
		}
		chunks = append(chunks, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		chunks = append(chunks, s)
	}
	return buildChunks(chunks)
}

func buildChunks(chunks []string) *node {
	if len(chunks) == 1 {
		return newLeaf(chunks[0])
	}
	mid := len(chunks) / 2
	return newBranch(buildChunks(chunks[:mid]), buildChunks(chunks[mid:]))
}
