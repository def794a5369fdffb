// Copyright 2023 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

//go:build invariants || race
// +build invariants race

// Package invariants gates the expensive consistency checks run after every
// mutating tree operation (max/size/balance-factor recomputation-from-scratch
// and comparison against the incrementally maintained values).
package invariants

// Enabled is true when built with the invariants or race build tags. It
// turns on the engines' checkInvariants walks and the implicit tree's
// query-before-index warning.
const Enabled = true
