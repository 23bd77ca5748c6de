package rope

import "strings"

// node is either a leaf holding text, or a branch with two non-empty
// children. Nodes are never modified after construction.
type node struct {
	left, right *node
	text        string

	length int // bytes in the subtree
	lines  int // newlines in the subtree
	height int // 1 for leaves
}

func newLeaf(text string) *node {
	return &node{
		text:   text,
		length: len(text),
		lines:  strings.Count(text, "\n"),
		height: 1,
	}
}

func newBranch(left, right *node) *node {
	return &node{
		left:   left,
		right:  right,
		length: left.length + right.length,
		lines:  left.lines + right.lines,
		height: 1 + max(left.height, right.height),
	}
}

func (n *node) isLeaf() bool {
	return n.left == nil
}

func height(n *node) int {
	if n == nil {
		return 0
	}
	return n.height
}

// appendRange writes the bytes [start, end) of the subtree to sb.
func (n *node) appendRange(sb *strings.Builder, start, end int) {
	if start >= end {
		return
	}
	if n.isLeaf() {
		sb.WriteString(n.text[start:end])
		return
	}
	split := n.left.length
	if start < split {
		n.left.appendRange(sb, start, min(end, split))
	}
	if end > split {
		n.right.appendRange(sb, max(start-split, 0), end-split)
	}
}

// join concatenates two trees, keeping the result height-balanced. Small
// adjacent leaves are merged.
func join(left, right *node) *node {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	if left.isLeaf() && right.isLeaf() && left.length+right.length <= maxLeaf {
		return newLeaf(left.text + right.text)
	}

	switch {
	case left.height > right.height+1:
		return rebalance(left.left, join(left.right, right))
	case right.height > left.height+1:
		return rebalance(join(left, right.left), right.right)
	}
	return newBranch(left, right)
}

// rebalance builds a branch from two balanced subtrees whose heights differ
// by at most two, rotating once or twice when they differ by two.
func rebalance(left, right *node) *node {
	switch {
	case left.height > right.height+1:
		if height(left.left) >= height(left.right) {
			return newBranch(left.left, newBranch(left.right, right))
		}
		lr := left.right
		return newBranch(newBranch(left.left, lr.left), newBranch(lr.right, right))
	case right.height > left.height+1:
		if height(right.right) >= height(right.left) {
			return newBranch(newBranch(left, right.left), right.right)
		}
		rl := right.left
		return newBranch(newBranch(left, rl.left), newBranch(rl.right, right.right))
	}
	return newBranch(left, right)
}

// split divides a tree into [0, offset) and [offset, length).
func split(n *node, offset int) (*node, *node) {
	switch {
	case n == nil:
		return nil, nil
	case offset <= 0:
		return nil, n
	case offset >= n.length:
		return n, nil
	case n.isLeaf():
		return newLeaf(n.text[:offset]), newLeaf(n.text[offset:])
	}

	switch mid := n.left.length; {
	case offset < mid:
		ll, lr := split(n.left, offset)
		return ll, join(lr, n.right)
	case offset > mid:
		rl, rr := split(n.right, offset-mid)
		return join(n.left, rl), rr
	}
	return n.left, n.right
}
