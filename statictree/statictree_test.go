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

package statictree

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blachlylab/intervaltree/ivtree"
)

func iv(start, end int) ivtree.Interval[int, string] {
	return ivtree.Interval[int, string]{Start: start, End: end}
}

func TestAddContigResolvesOnce(t *testing.T) {
	tr := New[int, string]()
	id1 := tr.AddContig("chr1", 0)
	id2 := tr.AddContig("chr1", 100)
	require.Equal(t, id1, id2)

	got, ok := tr.ContigID("chr1")
	require.True(t, ok)
	require.Equal(t, id1, got)

	_, ok = tr.ContigID("chr2")
	require.False(t, ok)
}

// TestFiveIntervalScenario follows the five-interval walkthrough: insert
// (3,10) (4,6) (5,12) (6,20) (7,15) into one contig, index, and query
// [7,8); every interval except (4,6) overlaps, so exactly four come back.
func TestFiveIntervalScenario(t *testing.T) {
	tr := New[int, string]()
	for _, s := range [][2]int{{3, 10}, {4, 6}, {5, 12}, {6, 20}, {7, 15}} {
		tr.Add("x", iv(s[0], s[1]))
	}
	require.NoError(t, tr.Index())

	got := tr.FindOverlaps("x", 7, 8)
	want := map[[2]int]bool{{3, 10}: true, {5, 12}: true, {6, 20}: true, {7, 15}: true}
	require.Len(t, got, len(want))
	for _, m := range got {
		require.True(t, want[[2]int{m.Interval.Start, m.Interval.End}])
	}

	// (4,6) does not contain 7 and must be excluded.
	for _, m := range got {
		require.NotEqual(t, [2]int{4, 6}, [2]int{m.Interval.Start, m.Interval.End})
	}
}

func TestTwoSingleIntervalContigsScenario(t *testing.T) {
	tr := New[int, string]()
	tr.Add("a", iv(0, 5))
	tr.Add("b", iv(0, 5))
	require.NoError(t, tr.Index())

	require.Len(t, tr.FindOverlaps("a", 0, 5), 1)
	require.Empty(t, tr.FindOverlaps("c", 0, 5))
}

func TestTwoContigsAreIndependent(t *testing.T) {
	tr := New[int, string]()
	tr.Add("chr1", iv(10, 20))
	tr.Add("chr1", iv(15, 25))
	tr.Add("chr2", iv(10, 20))
	require.NoError(t, tr.Index())

	got1 := tr.FindOverlaps("chr1", 18, 22)
	require.Len(t, got1, 2)

	got2 := tr.FindOverlaps("chr2", 18, 22)
	require.Len(t, got2, 1)

	require.Nil(t, tr.FindOverlaps("chr3", 0, 1), "unknown contig returns no matches")
}

func TestNegativeStartRejected(t *testing.T) {
	tr := New[int, string]()
	require.Panics(t, func() {
		tr.Add("chr1", iv(-1, 5))
	})
}

func TestHandleSurvivesReindex(t *testing.T) {
	tr := New[int, string]()
	tr.Add("chr1", iv(50, 60))
	h := tr.Add("chr1", iv(10, 20))
	require.NoError(t, tr.Index())

	resolved, ok := tr.Lookup(h)
	require.True(t, ok)
	require.Equal(t, 10, resolved.Start)
	require.Equal(t, 20, resolved.End)

	tr.Add("chr1", iv(5, 8))
	require.NoError(t, tr.Index())

	resolved, ok = tr.Lookup(h)
	require.True(t, ok, "handle remains resolvable across a second Index despite the position shifting")
	require.Equal(t, 10, resolved.Start)
}

func TestRandomIntervalsOverlapInvariant(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	tr := New[int, int]()
	var all []ivtree.Interval[int, int]
	for i := 0; i < 500; i++ {
		start := rnd.Intn(2000)
		end := start + 1 + rnd.Intn(200)
		iv := ivtree.Interval[int, int]{Start: start, End: end, Payload: i}
		all = append(all, iv)
		tr.Add("chr1", iv)
	}
	require.NoError(t, tr.Index())

	for q := 0; q < 50; q++ {
		qs := rnd.Intn(2000)
		qe := qs + 1 + rnd.Intn(200)

		var want []ivtree.Interval[int, int]
		for _, v := range all {
			if ivtree.Overlaps(v.Start, v.End, qs, qe) {
				want = append(want, v)
			}
		}
		got := tr.FindOverlaps("chr1", qs, qe)
		require.Len(t, got, len(want), "query [%d,%d)", qs, qe)
	}
}

func TestFindOverlapsBeforeIndexUnderInvariants(t *testing.T) {
	tr := New[int, string]()
	tr.Add("chr1", iv(1, 2))
	// Querying a dirty tree is undefined in release builds; this only
	// exercises that it does not crash, since the invariants build tag is
	// not necessarily enabled for this test run.
	require.NotPanics(t, func() {
		tr.FindOverlapIndices("chr1", 0, 10)
	})
}
