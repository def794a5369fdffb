// Copyright 2023 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package stats is an optional instrumentation hook: a build-time flag that
// enables per-engine counters of nodes visited, rotations, and splays per
// query, with no cost when the flag is off. Engine code calls the functions
// in this package unconditionally; the instrumented build (-tags
// instrumented) wires them to real prometheus counters, and the default
// build compiles them down to nothing.
package stats
