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

// Package statictree is the implicit static interval-overlap engine: a
// flat array of records sorted by (contig, start), with a virtual forest of
// balanced binary trees overlaid on each contig's slice of the array using
// index arithmetic (see buildForest). It trades mutability for
// cache-friendly queries, and requires an explicit Index
// call before any query after an Add.
package statictree

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/blachlylab/intervaltree/internal/invariants"
	"github.com/blachlylab/intervaltree/internal/logutil"
	"github.com/blachlylab/intervaltree/internal/stats"
	"github.com/blachlylab/intervaltree/ivtree"
)

const engineName = "static"

// record is one stored interval. A bit-packed 64-bit representation
// ("packed"/"aux" fields folding contig id, start, end, and max-end into two
// words) is possible but this implementation takes the discriminated
// alternative instead (separate start/end/maxEnd fields), for clarity, at
// the cost of a few extra bytes per record.
type record[C ivtree.Coord, P any] struct {
	contigID int32
	start    C
	end      C
	maxEnd   C
	handle   uuid.UUID
	payload  P
}

// rootSpan is one complete-tree component of a contig's forest: count need
// not be exactly 2^m-1, so a contig is covered not by one implicit tree but
// by a left-to-right sequence of them, each fully self-contained and fully
// reachable from its own root via the same index arithmetic. See buildForest.
type rootSpan struct {
	offset int // absolute index into Tree.records
	size   int
	rootK  int
}

// contigInfo is one entry in the contig table.
type contigInfo struct {
	name   string
	offset int
	count  int
	roots  []rootSpan
}

// Match is one result from FindOverlaps: a stable handle plus the stored
// interval and payload.
type Match[C ivtree.Coord, P any] struct {
	Handle   uuid.UUID
	Interval ivtree.Interval[C, P]
}

// Tree is the implicit static interval-overlap container. The zero value
// is not ready to use; construct one with New.
type Tree[C ivtree.Coord, P any] struct {
	records  []record[C, P]
	contigs  []contigInfo
	nameToID map[string]int32

	// handleToPos is rebuilt fresh by every Index call; it is empty (and
	// Lookup reports not-found) for handles added since the last Index.
	handleToPos map[uuid.UUID]int

	dirty bool
}

// New returns an empty static tree.
func New[C ivtree.Coord, P any]() *Tree[C, P] {
	return &Tree[C, P]{nameToID: make(map[string]int32), handleToPos: make(map[uuid.UUID]int)}
}

// Len returns the total number of stored intervals across all contigs.
func (t *Tree[C, P]) Len() int {
	return len(t.records)
}

// ContigID resolves a contig name to its assigned id, if the contig has
// been seen by Add or AddContig.
func (t *Tree[C, P]) ContigID(name string) (int32, bool) {
	id, ok := t.nameToID[name]
	return id, ok
}

// AddContig resolves or allocates an id for name. hintLen is accepted for
// interface parity but otherwise unused: Go's append already grows the
// shared record array geometrically, and contigs don't own a private
// backing array to preallocate.
func (t *Tree[C, P]) AddContig(name string, hintLen int) int32 {
	if id, ok := t.nameToID[name]; ok {
		return id
	}
	id := int32(len(t.contigs))
	t.nameToID[name] = id
	t.contigs = append(t.contigs, contigInfo{name: name})
	return id
}

// Add appends an interval under the named contig (allocating the contig if
// new) and marks the tree dirty; the queryable state is undefined until the
// next Index call. The returned handle remains valid (resolvable via
// Lookup) across subsequent Index calls even though the interval's array
// position is reassigned by sorting.
func (t *Tree[C, P]) Add(contigName string, iv ivtree.Interval[C, P]) uuid.UUID {
	var zero C
	if iv.Start < zero {
		panic(errors.AssertionFailedf("statictree: negative start %v is not supported", iv.Start))
	}
	id, ok := t.nameToID[contigName]
	if !ok {
		id = t.AddContig(contigName, 0)
	}
	h := uuid.New()
	t.records = append(t.records, record[C, P]{
		contigID: id,
		start:    iv.Start,
		end:      iv.End,
		payload:  iv.Payload,
		handle:   h,
	})
	t.dirty = true
	return h
}

// Lookup resolves a handle to its stored interval, as of the last Index
// call. It reports not-found for handles added since.
func (t *Tree[C, P]) Lookup(h uuid.UUID) (ivtree.Interval[C, P], bool) {
	pos, ok := t.handleToPos[h]
	if !ok {
		return ivtree.Interval[C, P]{}, false
	}
	r := t.records[pos]
	return ivtree.Interval[C, P]{Start: r.start, End: r.end, Payload: r.payload}, true
}

// Index sorts the record array by (contig, start), then builds the
// implicit per-contig max-end augmentation. It may be called repeatedly;
// every query must be preceded by a call to Index following any Add.
func (t *Tree[C, P]) Index() error {
	sort.SliceStable(t.records, func(i, j int) bool {
		ri, rj := &t.records[i], &t.records[j]
		if ri.contigID != rj.contigID {
			return ri.contigID < rj.contigID
		}
		return ri.start < rj.start
	})

	for i := range t.contigs {
		t.contigs[i].offset = 0
		t.contigs[i].count = 0
		t.contigs[i].roots = nil
	}

	handlePos := make(map[uuid.UUID]int, len(t.records))
	i := 0
	for i < len(t.records) {
		cid := t.records[i].contigID
		start := i
		for i < len(t.records) && t.records[i].contigID == cid {
			handlePos[t.records[i].handle] = i
			i++
		}
		count := i - start
		t.contigs[cid].offset = start
		t.contigs[cid].count = count
		t.contigs[cid].roots = buildForest(t.records[start:start+count], start)
	}
	t.handleToPos = handlePos
	t.dirty = false

	t.checkInvariants()
	return nil
}

// buildForest covers one contig's slice with a left-to-right sequence of
// complete-tree components, each overlaying a balanced binary tree on its
// own sub-slice via index arithmetic: a node at local position i with level
// k has left child i-2^(k-1) and right child i+2^(k-1); leaves are level 0.
//
// A single such tree rooted at floor(log2(count)) does not necessarily
// reach every position: when count isn't exactly 2^m-1, the nominal root's
// right spine can run out of in-bounds children before the array does, leaving
// a trailing run of positions that are nobody's child (e.g. with 5 elements
// the root sits at position 3, whose right child at position 5 is out of
// range, yet position 4 still holds data one slot further in). Rather than
// patch around that by only carrying the dangling max-end forward as a
// scalar, buildForest measures exactly how many leading positions the
// nominal root actually reaches, builds that span as its own tree, and
// recurses on the untouched remainder. Each component covers at least 2^k
// positions, where k = floor(log2(remaining)), so every later component has
// a strictly smaller root level. Every position ends up owned by exactly one
// component, reachable from that component's own root.
func buildForest[C ivtree.Coord, P any](recs []record[C, P], base int) []rootSpan {
	var roots []rootSpan
	local, remaining := 0, len(recs)
	for remaining > 0 {
		k := floorLog2(remaining)
		seen := reachablePositions(k, remaining)
		size := 0
		for _, ok := range seen {
			if ok {
				size++
			}
		}
		sub := recs[local : local+size]
		buildAug(sub)
		roots = append(roots, rootSpan{offset: base + local, size: size, rootK: k})
		local += size
		remaining -= size
	}
	return roots
}

// reachablePositions marks exactly the positions overlapWalk's stack
// traversal visits for a subtree rooted at (2^level-1, level) over an array
// of length n, ignoring the query-dependent pruning. Used both to size each
// buildForest component and, under the invariants build tag, as a
// regression guard that every stored record stays reachable.
func reachablePositions(level, n int) []bool {
	seen := make([]bool, n)
	if n == 0 {
		return seen
	}
	stack := []frame{{pos: (1 << level) - 1, level: level}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !f.visitedLeft {
			seen[f.pos] = true
			f.visitedLeft = true
			stack = append(stack, f)
			if f.level > 0 {
				half := 1 << (f.level - 1)
				stack = append(stack, frame{pos: f.pos - half, level: f.level - 1})
			}
			continue
		}
		if f.level > 0 {
			half := 1 << (f.level - 1)
			if right := f.pos + half; right < n {
				stack = append(stack, frame{pos: right, level: f.level - 1})
			}
		}
	}
	return seen
}

// buildAug computes the per-position subtree max-end for one already-sized
// forest component (see buildForest): every right-child-out-of-bounds check
// here is, by construction, a true absence rather than an orphan, so no
// cross-level carry is needed.
func buildAug[C ivtree.Coord, P any](recs []record[C, P]) {
	n := len(recs)
	if n == 0 {
		return
	}

	for i := 0; i < n; i += 2 {
		recs[i].maxEnd = recs[i].end
	}

	for k := 1; (1 << k) <= n; k++ {
		x := 1 << (k - 1)
		i0 := (x << 1) - 1
		step := x << 2
		for i := i0; i < n; i += step {
			e := recs[i].end
			if left := recs[i-x].maxEnd; left > e {
				e = left
			}
			if i+x < n {
				if right := recs[i+x].maxEnd; right > e {
					e = right
				}
			}
			recs[i].maxEnd = e
		}
	}
}

func floorLog2(n int) int {
	if n <= 0 {
		return 0
	}
	k := 0
	for (1 << (k + 1)) <= n {
		k++
	}
	return k
}

// FindOverlapIndices returns the positions (indices into the tree's whole
// record array, sorted ascending by start) of every stored interval in
// contigName overlapping
// [start, end). If the contig is unknown, it returns nil.
//
// Calling this while the tree is dirty (an Add since the last Index) is
// undefined in release builds; under the invariants build tag, it logs a
// warning and indexes first.
func (t *Tree[C, P]) FindOverlapIndices(contigName string, start, end C) []int {
	if t.dirty {
		if invariants.Enabled {
			logutil.Warningf("FindOverlapIndices(%q) called while dirty; indexing", contigName)
			_ = t.Index()
		}
	}
	id, ok := t.nameToID[contigName]
	if !ok {
		return nil
	}
	c := t.contigs[id]
	if c.count == 0 {
		return nil
	}
	var out []int
	for _, r := range c.roots {
		overlapWalk(t.records[r.offset:r.offset+r.size], r.rootK, start, end, r.offset, &out)
	}
	return out
}

// FindOverlaps is the convenience form of FindOverlapIndices that resolves
// each matched position back into a Match carrying the stored interval and
// its stable handle.
func (t *Tree[C, P]) FindOverlaps(contigName string, start, end C) []Match[C, P] {
	idx := t.FindOverlapIndices(contigName, start, end)
	if len(idx) == 0 {
		return nil
	}
	out := make([]Match[C, P], len(idx))
	for i, pos := range idx {
		r := t.records[pos]
		out[i] = Match[C, P]{
			Handle:   r.handle,
			Interval: ivtree.Interval[C, P]{Start: r.start, End: r.end, Payload: r.payload},
		}
	}
	return out
}

type frame struct {
	pos         int
	level       int
	visitedLeft bool
}

// overlapWalk is a depth-limited iterative descent using an explicit
// work-stack of (position, level, visited-left) frames, pruning subtrees
// whose cached max-end cannot reach the query and subtrees entirely to the
// right of an interval that already fails to start before the query ends.
func overlapWalk[C ivtree.Coord, P any](
	recs []record[C, P], rootK int, qStart, qEnd C, base int, out *[]int,
) {
	if len(recs) == 0 {
		return
	}
	rootPos := (1 << rootK) - 1
	stack := make([]frame, 0, rootK+2)
	stack = append(stack, frame{pos: rootPos, level: rootK})

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stats.NodesVisited(engineName, 1)

		if !f.visitedLeft {
			n := &recs[f.pos]
			if n.maxEnd <= qStart {
				continue // whole subtree pruned
			}
			f.visitedLeft = true
			stack = append(stack, f)
			if f.level > 0 {
				half := 1 << (f.level - 1)
				stack = append(stack, frame{pos: f.pos - half, level: f.level - 1})
			}
			continue
		}

		n := recs[f.pos]
		if n.start < qEnd && qStart < n.end {
			*out = append(*out, base+f.pos)
		}
		if n.start < qEnd && f.level > 0 {
			half := 1 << (f.level - 1)
			right := f.pos + half
			if right < len(recs) {
				stack = append(stack, frame{pos: right, level: f.level - 1})
			}
		}
	}
}

func (t *Tree[C, P]) checkInvariants() {
	if !invariants.Enabled {
		return
	}
	for _, c := range t.contigs {
		if c.count == 0 {
			continue
		}
		recs := t.records[c.offset : c.offset+c.count]
		for i := 1; i < len(recs); i++ {
			if recs[i].start < recs[i-1].start {
				panic(errors.AssertionFailedf("statictree: contig %q not sorted by start at position %d", c.name, i))
			}
		}

		covered := 0
		for ri, r := range c.roots {
			if r.offset != c.offset+covered {
				panic(errors.AssertionFailedf(
					"statictree: contig %q root %d starts at %d, want %d", c.name, ri, r.offset, c.offset+covered))
			}
			sub := t.records[r.offset : r.offset+r.size]

			seen := reachablePositions(r.rootK, len(sub))
			for i, ok := range seen {
				if !ok {
					panic(errors.AssertionFailedf(
						"statictree: contig %q root %d: position %d not reachable from its root", c.name, ri, i))
				}
			}

			trueMax := sub[0].end
			for _, rec := range sub[1:] {
				if rec.end > trueMax {
					trueMax = rec.end
				}
			}
			rootPos := (1 << r.rootK) - 1
			if sub[rootPos].maxEnd != trueMax {
				panic(errors.AssertionFailedf(
					"statictree: contig %q root %d max-end %v, want %v", c.name, ri, sub[rootPos].maxEnd, trueMax))
			}
			for i := range sub {
				if sub[i].maxEnd < sub[i].end {
					panic(errors.AssertionFailedf(
						"statictree: contig %q root %d position %d max-end below own end", c.name, ri, i))
				}
			}
			if r.rootK != floorLog2(len(sub)) {
				panic(errors.AssertionFailedf(
					"statictree: contig %q root %d level %d, want %d", c.name, ri, r.rootK, floorLog2(len(sub))))
			}
			covered += r.size
		}
		if covered != c.count {
			panic(errors.AssertionFailedf(
				"statictree: contig %q roots cover %d of %d records", c.name, covered, c.count))
		}
	}
}
