// Copyright 2014 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package avltree is the balanced dynamic interval-overlap engine: an
// AVL-balanced binary search tree keyed on interval start/end, augmented at
// every node with the subtree's maximum end coordinate and cardinality.
package avltree

import (
	"github.com/cockroachdb/errors"

	"github.com/blachlylab/intervaltree/internal/invariants"
	"github.com/blachlylab/intervaltree/internal/stats"
	"github.com/blachlylab/intervaltree/ivtree"
)

// engineName identifies this engine to the stats package.
const engineName = "avl"

// Node is a tree node. Interval is the stored key/payload; the remaining
// fields are the AVL and overlap augmentation and are maintained by the
// tree, never by the caller.
type Node[C ivtree.Coord, P any] struct {
	Interval ivtree.Interval[C, P]

	max         C
	left, right *Node[C, P]
	height      int8
	balance     int8 // height(left) - height(right); recomputed bottom-up
	size        uint32
}

// Size returns the cardinality of the subtree rooted at n, including n.
func (n *Node[C, P]) Size() uint32 {
	if n == nil {
		return 0
	}
	return n.size
}

func height[C ivtree.Coord, P any](n *Node[C, P]) int8 {
	if n == nil {
		return 0
	}
	return n.height
}

// recompute derives height, balance, size and max from n's (already correct)
// children. It is the single source of truth for the augmentation: every
// mutation calls it bottom-up instead of threading incremental deltas, so
// rotations can never leave a stale max or size behind.
func recompute[C ivtree.Coord, P any](n *Node[C, P]) {
	lh, rh := height(n.left), height(n.right)
	if lh > rh {
		n.height = lh + 1
	} else {
		n.height = rh + 1
	}
	n.balance = lh - rh

	sz := uint32(1)
	mx := n.Interval.End
	if n.left != nil {
		sz += n.left.size
		if n.left.max > mx {
			mx = n.left.max
		}
	}
	if n.right != nil {
		sz += n.right.size
		if n.right.max > mx {
			mx = n.right.max
		}
	}
	n.size = sz
	n.max = mx
}

// rotateRight performs a single right rotation, promoting n.left.
func rotateRight[C ivtree.Coord, P any](n *Node[C, P]) *Node[C, P] {
	l := n.left
	n.left = l.right
	l.right = n
	recompute(n)
	recompute(l)
	stats.Rotations(engineName, 1)
	return l
}

// rotateLeft performs a single left rotation, promoting n.right.
func rotateLeft[C ivtree.Coord, P any](n *Node[C, P]) *Node[C, P] {
	r := n.right
	n.right = r.left
	r.left = n
	recompute(n)
	recompute(r)
	stats.Rotations(engineName, 1)
	return r
}

// rebalance restores the AVL invariant at n, assuming both children are
// already valid AVL subtrees and recompute(n) has just run. It performs at
// most one single or double rotation.
func rebalance[C ivtree.Coord, P any](n *Node[C, P]) *Node[C, P] {
	switch n.balance {
	case 2:
		if n.left.balance < 0 {
			n.left = rotateLeft(n.left)
		}
		return rotateRight(n)
	case -2:
		if n.right.balance > 0 {
			n.right = rotateRight(n.right)
		}
		return rotateLeft(n)
	default:
		return n
	}
}

// compareKey orders (start, end) against n's key lexicographically.
func compareKey[C ivtree.Coord, P any](start, end C, n *Node[C, P]) int {
	switch {
	case start < n.Interval.Start:
		return -1
	case start > n.Interval.Start:
		return 1
	case end < n.Interval.End:
		return -1
	case end > n.Interval.End:
		return 1
	default:
		return 0
	}
}

// Tree is a balanced dynamic interval-overlap container. The zero value is
// an empty tree ready to use.
type Tree[C ivtree.Coord, P any] struct {
	root *Node[C, P]
}

// New returns an empty balanced tree.
func New[C ivtree.Coord, P any]() *Tree[C, P] {
	return &Tree[C, P]{}
}

// Len reports the number of stored intervals.
func (t *Tree[C, P]) Len() int {
	return int(t.root.Size())
}

// Insert adds iv to the tree. If an interval with the same (Start, End)
// already exists, Insert leaves the tree unchanged and returns the existing
// node. Otherwise it links a new node, rebalances, and returns it. The
// second return value is the rank of the key: the count of stored intervals
// less than or equal to iv under the (Start, End) order, computed after the
// insertion takes effect.
func (t *Tree[C, P]) Insert(iv ivtree.Interval[C, P]) (*Node[C, P], ivtree.Rank) {
	root, res, _ := insert(t.root, iv)
	t.root = root
	t.checkInvariants()
	return res, t.rankOf(iv.Start, iv.End)
}

func insert[C ivtree.Coord, P any](
	n *Node[C, P], iv ivtree.Interval[C, P],
) (newRoot, result *Node[C, P], isNew bool) {
	if n == nil {
		leaf := &Node[C, P]{Interval: iv}
		recompute(leaf)
		return leaf, leaf, true
	}
	switch compareKey(iv.Start, iv.End, n) {
	case -1:
		newLeft, res, isNew := insert(n.left, iv)
		if !isNew {
			return n, res, false
		}
		n.left = newLeft
		recompute(n)
		return rebalance(n), res, true
	case 1:
		newRight, res, isNew := insert(n.right, iv)
		if !isNew {
			return n, res, false
		}
		n.right = newRight
		recompute(n)
		return rebalance(n), res, true
	default:
		return n, n, false
	}
}

// Find returns the node with exact key (start, end), if any, along with its
// rank (the count of stored intervals less than or equal to the key).
func (t *Tree[C, P]) Find(start, end C) (*Node[C, P], ivtree.Rank) {
	n := t.root
	rank := 0
	for n != nil {
		switch compareKey(start, end, n) {
		case -1:
			n = n.left
		case 1:
			rank += int(n.left.Size()) + 1
			n = n.right
		default:
			rank += int(n.left.Size()) + 1
			return n, rank
		}
	}
	return nil, rank
}

func (t *Tree[C, P]) rankOf(start, end C) ivtree.Rank {
	_, rank := t.Find(start, end)
	return rank
}

// Erase removes the node with exact key (start, end) and returns a snapshot
// of it (a new node carrying the removed interval, not the node handle
// returned by Insert), or (nil, false) if no such key is stored.
func (t *Tree[C, P]) Erase(start, end C) (*Node[C, P], bool) {
	root, removed, found := erase(t.root, start, end)
	t.root = root
	t.checkInvariants()
	return removed, found
}

// EraseMin removes and returns the minimum-keyed interval, or (nil, false)
// if the tree is empty.
func (t *Tree[C, P]) EraseMin() (*Node[C, P], bool) {
	root, removed, found := eraseMin(t.root)
	t.root = root
	t.checkInvariants()
	return removed, found
}

func erase[C ivtree.Coord, P any](
	n *Node[C, P], start, end C,
) (newRoot, removed *Node[C, P], found bool) {
	if n == nil {
		return nil, nil, false
	}
	switch compareKey(start, end, n) {
	case -1:
		newLeft, removed, found := erase(n.left, start, end)
		if !found {
			return n, nil, false
		}
		n.left = newLeft
		recompute(n)
		return rebalance(n), removed, true
	case 1:
		newRight, removed, found := erase(n.right, start, end)
		if !found {
			return n, nil, false
		}
		n.right = newRight
		recompute(n)
		return rebalance(n), removed, true
	default:
		orig := n.Interval
		if n.left == nil {
			return n.right, &Node[C, P]{Interval: orig}, true
		}
		if n.right == nil {
			return n.left, &Node[C, P]{Interval: orig}, true
		}
		newRight, succ, _ := eraseMin(n.right)
		n.Interval = succ.Interval
		n.right = newRight
		recompute(n)
		return rebalance(n), &Node[C, P]{Interval: orig}, true
	}
}

func eraseMin[C ivtree.Coord, P any](n *Node[C, P]) (newRoot, removed *Node[C, P], found bool) {
	if n == nil {
		return nil, nil, false
	}
	if n.left == nil {
		return n.right, &Node[C, P]{Interval: n.Interval}, true
	}
	newLeft, removed, found := eraseMin(n.left)
	n.left = newLeft
	recompute(n)
	return rebalance(n), removed, found
}

// FindOverlaps returns every stored node whose interval overlaps
// [qStart, qEnd). It is an iterative walk over an explicit work-stack
// pre-seeded with the root, pruning subtrees whose cached max cannot
// possibly contain a match. Returned order is unspecified.
func (t *Tree[C, P]) FindOverlaps(qStart, qEnd C) []*Node[C, P] {
	var out []*Node[C, P]
	if t.root == nil {
		return out
	}
	stack := []*Node[C, P]{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stats.NodesVisited(engineName, 1)

		if qStart >= n.max {
			continue
		}
		if qEnd <= n.Interval.Start {
			if n.left != nil {
				stack = append(stack, n.left)
			}
			continue
		}
		if ivtree.Overlaps(n.Interval.Start, n.Interval.End, qStart, qEnd) {
			out = append(out, n)
		}
		if n.left != nil {
			stack = append(stack, n.left)
		}
		if n.right != nil {
			stack = append(stack, n.right)
		}
	}
	return out
}

// Iterator walks the tree in order via an explicit descent stack. It is
// invalidated by any mutation to the tree it was created from.
type Iterator[C ivtree.Coord, P any] struct {
	stack []*Node[C, P]
}

// Iterator returns a new in-order iterator starting at the minimum key.
func (t *Tree[C, P]) Iterator() *Iterator[C, P] {
	it := &Iterator[C, P]{}
	it.pushLeftSpine(t.root)
	return it
}

func (it *Iterator[C, P]) pushLeftSpine(n *Node[C, P]) {
	for n != nil {
		it.stack = append(it.stack, n)
		n = n.left
	}
}

// Next advances the iterator, returning (nil, false) once exhausted.
func (it *Iterator[C, P]) Next() (*Node[C, P], bool) {
	if len(it.stack) == 0 {
		return nil, false
	}
	n := it.stack[len(it.stack)-1]
	it.stack = it.stack[:len(it.stack)-1]
	it.pushLeftSpine(n.right)
	return n, true
}

// Walk visits every stored interval in order, stopping early if fn returns
// false.
func (t *Tree[C, P]) Walk(fn func(*Node[C, P]) bool) {
	it := t.Iterator()
	for {
		n, ok := it.Next()
		if !ok {
			return
		}
		if !fn(n) {
			return
		}
	}
}

func (t *Tree[C, P]) checkInvariants() {
	if !invariants.Enabled {
		return
	}
	verify[C, P](t.root)
}

func verify[C ivtree.Coord, P any](n *Node[C, P]) (ht int8, sz uint32, mx C) {
	if n == nil {
		return 0, 0, mx
	}
	lh, lsz, lmx := verify[C, P](n.left)
	rh, rsz, rmx := verify[C, P](n.right)

	wantHeight := lh
	if rh > wantHeight {
		wantHeight = rh
	}
	wantHeight++
	if n.height != wantHeight {
		panic(errors.AssertionFailedf("avltree: height mismatch: got %d want %d", n.height, wantHeight))
	}

	bal := lh - rh
	if bal != n.balance || bal > 1 || bal < -1 {
		panic(errors.AssertionFailedf("avltree: balance invariant violated: %d", bal))
	}

	wantSize := uint32(1)
	if n.left != nil {
		wantSize += lsz
	}
	if n.right != nil {
		wantSize += rsz
	}
	if n.size != wantSize {
		panic(errors.AssertionFailedf("avltree: size mismatch: got %d want %d", n.size, wantSize))
	}

	wantMax := n.Interval.End
	if n.left != nil && lmx > wantMax {
		wantMax = lmx
	}
	if n.right != nil && rmx > wantMax {
		wantMax = rmx
	}
	if n.max != wantMax {
		panic(errors.AssertionFailedf("avltree: max mismatch at node"))
	}

	return n.height, n.size, n.max
}
