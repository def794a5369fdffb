// Copyright 2023 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package logutil is a minimal leveled logger scoped to this library's one
// debug-mode warning: querying the implicit engine while its dirty flag is
// set. It has no ambient context.Context to thread through, so unlike a
// typical server logger's Warningf(ctx, ...), this Warningf takes no
// context.
package logutil

import (
	"log"

	"github.com/blachlylab/intervaltree/internal/invariants"
)

// Warningf logs a warning when invariants.Enabled is true, and is a no-op
// otherwise. It exists so debug builds can surface the "query before index"
// condition without release builds paying for a log call on every query.
func Warningf(format string, args ...any) {
	if !invariants.Enabled {
		return
	}
	log.Printf("intervaltree: "+format, args...)
}
