// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package layer

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/datawire/dlib/dlog"

	"github.com/datawire/ociunpack/pkg/compression"
)

// Source is a layer tarball on disk.
type Source struct {
	// Name is how the layer is referred to in the image manifest.
	Name string
	Path string
}

// ApplyFile is like Apply, but reads the layer from a (possibly compressed) file.  Any temporary
// files needed for decompression are created in scratchDir.
func (x *Extractor) ApplyFile(ctx context.Context, src Source, scratchDir string) (err error) {
	file, err := os.Open(src.Path)
	if err != nil {
		return &ExtractionIOError{
			Layer: src.Name,
			Op:    "open",
			Err:   &fs.PathError{Op: "open layerfile", Path: src.Path, Err: err},
		}
	}
	defer func() {
		if _err := file.Close(); _err != nil && err == nil {
			err = &ExtractionIOError{Layer: src.Name, Op: "close", Err: _err}
		}
	}()

	reader, class, err := compression.Open(ctx, file, scratchDir)
	if err != nil {
		return fmt.Errorf("layer %q: %w", src.Name, err)
	}
	defer func() {
		if _err := reader.Close(); _err != nil && err == nil {
			err = &ExtractionIOError{Layer: src.Name, Op: "close", Err: _err}
		}
	}()
	dlog.Debugf(ctx, "layer %q is %v", src.Name, class)

	return x.Apply(ctx, src.Name, reader)
}

// Merge applies layers to root, strictly in order, so that later layers override earlier ones.
// Nothing is rolled back on failure; root is left however far the merge got.
func Merge(ctx context.Context, root string, layers []Source, scratchDir string) error {
	x := &Extractor{
		Root:      root,
		Whiteouts: true,
	}
	for i, src := range layers {
		dlog.Infof(ctx, "applying layer %d/%d: %s", i+1, len(layers), src.Name)
		if err := x.ApplyFile(ctx, src, scratchDir); err != nil {
			return err
		}
	}
	return nil
}
