// Copyright 2023 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

//go:build !instrumented
// +build !instrumented

package stats

// NodesVisited is a no-op in non-instrumented builds.
func NodesVisited(engine string, n int) {}

// Rotations is a no-op in non-instrumented builds.
func Rotations(engine string, n int) {}

// Splays is a no-op in non-instrumented builds.
func Splays(n int) {}
