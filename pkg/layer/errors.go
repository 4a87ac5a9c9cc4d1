// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package layer

import (
	"fmt"
)

// WhiteoutTargetMissingError is returned when a whiteout marker names a path that no lower layer
// created.
type WhiteoutTargetMissingError struct {
	Layer string
	Path  string
}

func (e *WhiteoutTargetMissingError) Error() string {
	return fmt.Sprintf("layer %q: whiteout target %q does not exist", e.Layer, e.Path)
}

// ExtractionIOError is returned when reading a layer or mutating the destination tree fails.
type ExtractionIOError struct {
	Layer string
	Path  string
	Op    string
	Err   error
}

func (e *ExtractionIOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("layer %q: %s: %v", e.Layer, e.Op, e.Err)
	}
	return fmt.Sprintf("layer %q: %s %q: %v", e.Layer, e.Op, e.Path, e.Err)
}

func (e *ExtractionIOError) Unwrap() error { return e.Err }
