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

// Package splaytree is the self-adjusting interval-overlap engine: a splay
// tree keyed on interval start/end, augmented at every node with the
// subtree's maximum end coordinate. Every successful Find, Insert, and
// single-match FindOverlaps brings the accessed node to the root, so the
// tree is not safe for concurrent reads even when no insert or erase is in
// flight.
package splaytree

import (
	"math/rand"

	"github.com/cockroachdb/errors"

	"github.com/blachlylab/intervaltree/internal/invariants"
	"github.com/blachlylab/intervaltree/internal/stats"
	"github.com/blachlylab/intervaltree/ivtree"
)

const engineName = "splay"

// Node is a tree node. Interval is the stored key/payload; max and the
// child/parent links are the splay and overlap augmentation, maintained
// entirely by the tree.
type Node[C ivtree.Coord, P any] struct {
	Interval ivtree.Interval[C, P]

	max                 C
	left, right, parent *Node[C, P]
}

// Tree is a self-adjusting dynamic interval-overlap container. The zero
// value is not ready to use; construct one with New.
type Tree[C ivtree.Coord, P any] struct {
	root *Node[C, P]

	// Rho is the probability that a successful access actually splays its
	// node to the root, an optional tuning knob for workloads where full
	// splaying on every access churns the tree more than it helps. The
	// default, set by New, is 1 (always splay).
	Rho float64

	rnd *rand.Rand
}

// New returns an empty splay tree that always splays on access (Rho = 1).
// seed controls the PRNG used for probabilistic splay elision; it has no
// effect unless Rho is later set below 1.
func New[C ivtree.Coord, P any](seed int64) *Tree[C, P] {
	return &Tree[C, P]{Rho: 1, rnd: rand.New(rand.NewSource(seed))}
}

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

func recomputeMax[C ivtree.Coord, P any](n *Node[C, P]) {
	mx := n.Interval.End
	if n.left != nil && n.left.max > mx {
		mx = n.left.max
	}
	if n.right != nil && n.right.max > mx {
		mx = n.right.max
	}
	n.max = mx
}

// maybeSplay splays n to the root unless the Rho tuning knob elides it.
// Correctness of the max invariant does not depend on whether splay runs.
func (t *Tree[C, P]) maybeSplay(n *Node[C, P]) {
	if t.Rho < 1 && t.rnd.Float64() >= t.Rho {
		return
	}
	t.splay(n)
	t.checkInvariants()
}

// rotate performs a single rotation promoting n over its parent p, fixing
// parent back-links and re-deriving max for the two affected nodes. It is
// the shared primitive behind zig, zig-zig, and zig-zag.
func rotate[C ivtree.Coord, P any](p, n *Node[C, P]) {
	g := p.parent
	if p.left == n {
		p.left = n.right
		if n.right != nil {
			n.right.parent = p
		}
		n.right = p
	} else {
		p.right = n.left
		if n.left != nil {
			n.left.parent = p
		}
		n.left = p
	}
	p.parent = n
	n.parent = g
	if g != nil {
		if g.left == p {
			g.left = n
		} else {
			g.right = n
		}
	}
	recomputeMax(p)
	recomputeMax(n)
	stats.Rotations(engineName, 1)
}

// splay brings n to the root of its tree via zig / zig-zig / zig-zag
// primitives.
func (t *Tree[C, P]) splay(n *Node[C, P]) {
	stats.Splays(1)
	for n.parent != nil {
		p := n.parent
		g := p.parent
		switch {
		case g == nil:
			rotate(p, n) // zig
		case (g.left == p) == (p.left == n):
			rotate(g, p) // zig-zig: grandparent first, same direction
			rotate(p, n)
		default:
			rotate(p, n) // zig-zag: parent first, then grandparent
			rotate(g, n)
		}
	}
	t.root = n
}

// Insert adds iv to the tree. If an interval with the same (Start, End)
// already exists, the tree is left structurally unchanged except for the
// splay, and the existing node is returned. Otherwise a new node is linked
// in and splayed to the root. The second return value is the rank of the
// key.
func (t *Tree[C, P]) Insert(iv ivtree.Interval[C, P]) (*Node[C, P], ivtree.Rank) {
	if t.root == nil {
		n := &Node[C, P]{Interval: iv}
		recomputeMax(n)
		t.root = n
		t.checkInvariants()
		return n, 1
	}

	cur := t.root
	for {
		if iv.End > cur.max {
			cur.max = iv.End
		}
		switch compareKey(iv.Start, iv.End, cur) {
		case -1:
			if cur.left == nil {
				n := &Node[C, P]{Interval: iv, parent: cur}
				cur.left = n
				recomputeMax(n)
				t.maybeSplay(n)
				t.checkInvariants()
				return n, t.rankOf(iv.Start, iv.End)
			}
			cur = cur.left
		case 1:
			if cur.right == nil {
				n := &Node[C, P]{Interval: iv, parent: cur}
				cur.right = n
				recomputeMax(n)
				t.maybeSplay(n)
				t.checkInvariants()
				return n, t.rankOf(iv.Start, iv.End)
			}
			cur = cur.right
		default:
			t.maybeSplay(cur)
			return cur, t.rankOf(iv.Start, iv.End)
		}
	}
}

// Find returns the node with exact key (start, end), if any, along with its
// rank. A successful find splays the found node to the root (subject to
// Rho).
func (t *Tree[C, P]) Find(start, end C) (*Node[C, P], ivtree.Rank) {
	cur := t.root
	for cur != nil {
		switch compareKey(start, end, cur) {
		case -1:
			cur = cur.left
		case 1:
			cur = cur.right
		default:
			t.maybeSplay(cur)
			return cur, t.rankOf(start, end)
		}
	}
	return nil, t.rankOf(start, end)
}

// rankOf counts stored keys less than or equal to (start, end) via an
// in-order scan. The splay engine carries no subtree-size augmentation (that
// is avltree-only), so unlike avltree.Find this is O(n) rather than O(log n).
func (t *Tree[C, P]) rankOf(start, end C) ivtree.Rank {
	rank := 0
	it := t.Iterator()
	for {
		n, ok := it.Next()
		if !ok {
			break
		}
		if compareKey(start, end, n) < 0 {
			break
		}
		rank++
	}
	return rank
}

// Erase removes the node with exact key (start, end) and returns a snapshot
// of it, or (nil, false) if no such key is stored.
//
// The target is splayed to the root, then its left and right subtrees are
// joined by splaying the maximum of the left subtree to its own root and
// attaching the right subtree there.
func (t *Tree[C, P]) Erase(start, end C) (*Node[C, P], bool) {
	n := t.find(start, end)
	if n == nil {
		return nil, false
	}
	t.splay(n)

	orig := n.Interval
	l, r := n.left, n.right
	if l != nil {
		l.parent = nil
	}
	if r != nil {
		r.parent = nil
	}

	if l == nil {
		t.root = r
	} else {
		maxNode := l
		for maxNode.right != nil {
			maxNode = maxNode.right
		}
		t.splay(maxNode)
		maxNode.right = r
		if r != nil {
			r.parent = maxNode
		}
		recomputeMax(maxNode)
		t.root = maxNode
	}
	t.checkInvariants()
	return &Node[C, P]{Interval: orig}, true
}

// EraseMin removes and returns the minimum-keyed interval, or (nil, false)
// if the tree is empty.
func (t *Tree[C, P]) EraseMin() (*Node[C, P], bool) {
	if t.root == nil {
		return nil, false
	}
	cur := t.root
	for cur.left != nil {
		cur = cur.left
	}
	return t.Erase(cur.Interval.Start, cur.Interval.End)
}

// find descends without splaying, used internally by Erase so the caller
// controls exactly when the splay happens.
func (t *Tree[C, P]) find(start, end C) *Node[C, P] {
	cur := t.root
	for cur != nil {
		switch compareKey(start, end, cur) {
		case -1:
			cur = cur.left
		case 1:
			cur = cur.right
		default:
			return cur
		}
	}
	return nil
}

// FindOverlaps returns every stored node whose interval overlaps
// [qStart, qEnd), using the identical three-case pruning walk as avltree.
// If the result set has exactly one match, that node is splayed to the
// root; for zero or many matches the tree is left untouched, so wide
// queries don't destabilize the top of the tree.
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
	if len(out) == 1 {
		t.maybeSplay(out[0])
	}
	return out
}

// Iterator walks the tree in order via an explicit descent stack. It is
// invalidated by any mutation (including a read that triggers a splay).
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

func (t *Tree[C, P]) checkInvariants() {
	if !invariants.Enabled {
		return
	}
	verify[C, P](t.root)
}

func verify[C ivtree.Coord, P any](n *Node[C, P]) C {
	if n == nil {
		var zero C
		return zero
	}
	var lm, rm C
	if n.left != nil {
		if n.left.parent != n {
			panic(errors.AssertionFailedf("splaytree: parent link mismatch on left child"))
		}
		lm = verify(n.left)
	}
	if n.right != nil {
		if n.right.parent != n {
			panic(errors.AssertionFailedf("splaytree: parent link mismatch on right child"))
		}
		rm = verify(n.right)
	}
	want := n.Interval.End
	if n.left != nil && lm > want {
		want = lm
	}
	if n.right != nil && rm > want {
		want = rm
	}
	if n.max != want {
		panic(errors.AssertionFailedf("splaytree: max mismatch"))
	}
	return n.max
}
