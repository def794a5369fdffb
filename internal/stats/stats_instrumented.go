// Copyright 2023 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

//go:build instrumented
// +build instrumented

package stats

import "github.com/prometheus/client_golang/prometheus"

var (
	nodesVisited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "intervaltree",
		Name:      "nodes_visited_total",
		Help:      "Nodes popped off the overlap-walk work-stack, by engine.",
	}, []string{"engine"})
	rotations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "intervaltree",
		Name:      "rotations_total",
		Help:      "Tree rotations (AVL rebalancing and splay steps), by engine.",
	}, []string{"engine"})
	splays = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "intervaltree",
		Name:      "splays_total",
		Help:      "Splay-to-root operations performed by the splay engine.",
	})
)

func init() {
	prometheus.MustRegister(nodesVisited, rotations, splays)
}

// NodesVisited increments the visited-node counter for the named engine
// ("avl", "splay", or "static") by n.
func NodesVisited(engine string, n int) {
	nodesVisited.WithLabelValues(engine).Add(float64(n))
}

// Rotations increments the rotation counter for the named engine by n.
func Rotations(engine string, n int) {
	rotations.WithLabelValues(engine).Add(float64(n))
}

// Splays increments the splay-to-root counter by n.
func Splays(n int) {
	splays.Add(float64(n))
}
