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

package avltree

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blachlylab/intervaltree/ivtree"
)

func iv(start, end int) ivtree.Interval[int, string] {
	return ivtree.Interval[int, string]{Start: start, End: end, Payload: fmt.Sprintf("%d-%d", start, end)}
}

func TestInsertAndFind(t *testing.T) {
	tr := New[int, string]()
	require.Equal(t, 0, tr.Len())

	n, rank := tr.Insert(iv(10, 20))
	require.NotNil(t, n)
	require.Equal(t, 1, rank)
	require.Equal(t, 1, tr.Len())

	_, rank = tr.Insert(iv(5, 8))
	require.Equal(t, 1, rank) // (5,8) sorts before (10,20)
	require.Equal(t, 2, tr.Len())

	_, rank = tr.Insert(iv(30, 40))
	require.Equal(t, 3, rank)
	require.Equal(t, 3, tr.Len())

	found, rank := tr.Find(10, 20)
	require.NotNil(t, found)
	require.Equal(t, "10-20", found.Interval.Payload)
	require.Equal(t, 2, rank)

	missing, _ := tr.Find(11, 21)
	require.Nil(t, missing)
}

func TestInsertDuplicateReturnsExisting(t *testing.T) {
	tr := New[int, string]()
	first, _ := tr.Insert(iv(1, 2))
	require.Equal(t, 1, tr.Len())

	again, _ := tr.Insert(ivtree.Interval[int, string]{Start: 1, End: 2, Payload: "replacement"})
	require.Equal(t, 1, tr.Len(), "duplicate key must not grow the tree")
	require.Same(t, first, again)
	require.Equal(t, "1-2", again.Interval.Payload, "original payload is kept, not overwritten")
}

func TestEraseAndIterate(t *testing.T) {
	tr := New[int, string]()
	for _, s := range []int{50, 30, 70, 20, 40, 60, 80} {
		tr.Insert(iv(s, s+5))
	}
	require.Equal(t, 7, tr.Len())

	removed, ok := tr.Erase(30, 35)
	require.True(t, ok)
	require.Equal(t, "30-35", removed.Interval.Payload)
	require.Equal(t, 6, tr.Len())

	_, ok = tr.Erase(30, 35)
	require.False(t, ok, "erasing a missing key reports not-found")

	var starts []int
	tr.Walk(func(n *Node[int, string]) bool {
		starts = append(starts, n.Interval.Start)
		return true
	})
	require.True(t, sort.IntsAreSorted(starts))
	require.Equal(t, []int{20, 40, 50, 60, 70, 80}, starts)
}

func TestEraseMin(t *testing.T) {
	tr := New[int, string]()
	for _, s := range []int{5, 1, 9, 3, 7} {
		tr.Insert(iv(s, s+1))
	}
	min, ok := tr.EraseMin()
	require.True(t, ok)
	require.Equal(t, 1, min.Interval.Start)
	require.Equal(t, 4, tr.Len())

	min, ok = tr.EraseMin()
	require.True(t, ok)
	require.Equal(t, 3, min.Interval.Start)
}

func TestEraseEmptyTree(t *testing.T) {
	tr := New[int, string]()
	_, ok := tr.Erase(1, 2)
	require.False(t, ok)
	_, ok = tr.EraseMin()
	require.False(t, ok)
}

func TestFindOverlaps(t *testing.T) {
	tr := New[int, string]()
	for _, v := range []ivtree.Interval[int, string]{
		iv(0, 5), iv(10, 15), iv(12, 20), iv(25, 30),
	} {
		tr.Insert(v)
	}

	matches := tr.FindOverlaps(13, 16)
	got := map[string]bool{}
	for _, n := range matches {
		got[n.Interval.Payload] = true
	}
	require.Equal(t, map[string]bool{"10-15": true, "12-20": true}, got)

	require.Empty(t, tr.FindOverlaps(5, 10), "half-open: touching endpoints don't overlap")
	require.Empty(t, tr.FindOverlaps(100, 200))
}

func TestThreeIntervalOverlapScenario(t *testing.T) {
	tr := New[int, string]()
	tr.Insert(iv(0, 10))
	tr.Insert(iv(10, 20))
	tr.Insert(iv(25, 35))

	got := tr.FindOverlaps(15, 30)
	gotSet := map[string]bool{}
	for _, n := range got {
		gotSet[n.Interval.Payload] = true
	}
	require.Equal(t, map[string]bool{"10-20": true, "25-35": true}, gotSet)
}

func TestEraseThenIterateScenario(t *testing.T) {
	tr := New[int, string]()
	for _, s := range []int{5, 3, 8, 1, 4, 7, 9} {
		tr.Insert(iv(s, s+1))
	}
	_, ok := tr.Erase(5, 6)
	require.True(t, ok)

	var got [][2]int
	tr.Walk(func(n *Node[int, string]) bool {
		got = append(got, [2]int{n.Interval.Start, n.Interval.End})
		return true
	})
	require.Equal(t, [][2]int{{1, 2}, {3, 4}, {4, 5}, {7, 8}, {8, 9}, {9, 10}}, got)
}

// TestRandomInsertMaxInvariant builds a tree from 1000 random intervals and
// checks that every node's cached max equals the true maximum End in its
// subtree, computed independently via a plain recursive walk.
func TestRandomInsertMaxInvariant(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	tr := New[int, int]()
	for i := 0; i < 1000; i++ {
		start := rnd.Intn(10000)
		end := start + 1 + rnd.Intn(500)
		tr.Insert(ivtree.Interval[int, int]{Start: start, End: end, Payload: i})
	}
	require.LessOrEqual(t, tr.Len(), 1000)

	checkMax(t, tr.root)
}

func checkMax(t *testing.T, n *Node[int, int]) int {
	t.Helper()
	if n == nil {
		return 0
	}
	want := n.Interval.End
	if l := checkMax(t, n.left); l > want {
		want = l
	}
	if r := checkMax(t, n.right); r > want {
		want = r
	}
	require.Equal(t, want, n.max)
	return want
}
