// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package unpack converts a `docker save` archive in to an Apptainer/Singularity sandbox
// directory.
package unpack

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/datawire/dlib/derror"
	"github.com/datawire/dlib/dlog"
	"github.com/samber/lo"

	"github.com/datawire/ociunpack/pkg/compression"
	"github.com/datawire/ociunpack/pkg/envscript"
	"github.com/datawire/ociunpack/pkg/fsutil"
	"github.com/datawire/ociunpack/pkg/imagearchive"
	"github.com/datawire/ociunpack/pkg/layer"
	"github.com/datawire/ociunpack/pkg/runscript"
	"github.com/datawire/ociunpack/pkg/scaffold"
)

// Options tweak a conversion.  The zero value is usable.
type Options struct {
	// GeneratorName names the environment script, ".singularity.d/env/10-<GeneratorName>.sh".
	// Default: envscript.DefaultGenerator.
	GeneratorName string `json:"generator,omitempty"`
	// Scaffold additionally writes the static Apptainer base environment.
	Scaffold bool `json:"scaffold,omitempty"`
	// TempDir is where the scratch directory is created.  Default: os.TempDir().
	TempDir string `json:"tmpdir,omitempty"`
}

// PreconditionError is returned when the output directory already has something in it.
type PreconditionError struct {
	Dir string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("output directory %s already exists and is not empty", e.Dir)
}

// withScratch runs fn with a fresh scratch directory, and removes the directory afterward no
// matter how fn exits.
func withScratch(ctx context.Context, opts Options, fn func(scratch string) error) (err error) {
	scratch, err := os.MkdirTemp(opts.TempDir, "ociunpack-")
	if err != nil {
		return fmt.Errorf("creating scratch directory: %w", err)
	}
	dlog.Debugf(ctx, "scratch directory: %s", scratch)
	defer func() {
		if _err := os.RemoveAll(scratch); _err != nil {
			_err = fmt.Errorf("removing scratch directory: %w", _err)
			if err == nil {
				err = _err
			} else {
				err = derror.MultiError{err, _err}
			}
		}
	}()
	return fn(scratch)
}

// stage extracts the outer archive in to scratch and reads its metadata.
func stage(ctx context.Context, input io.Reader, scratch string) (*imagearchive.Image, error) {
	dlog.Infof(ctx, "extracting archive to %s", scratch)
	archiveDir, err := os.MkdirTemp(scratch, "archive-")
	if err != nil {
		return nil, err
	}
	reader, _, err := compression.Open(ctx, input, scratch)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	stager := &layer.Extractor{Root: archiveDir}
	err = stager.Apply(ctx, "<archive>", reader)
	if _err := reader.Close(); _err != nil && err == nil {
		err = _err
	}
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}

	dlog.Infof(ctx, "reading manifest and config")
	img, err := imagearchive.Load(archiveDir)
	if err != nil {
		return nil, err
	}
	dlog.Debugf(ctx, "config %s: entrypoint=%q cmd=%q env=%q",
		img.Manifest.Config, img.Config.Entrypoint, img.Config.Cmd, img.Config.Env)
	return img, nil
}

func layerSources(img *imagearchive.Image) []layer.Source {
	return lo.Map(img.Layers, func(l imagearchive.Layer, _ int) layer.Source {
		return layer.Source{Name: l.Name, Path: l.Path}
	})
}

// Unpack reads a (possibly compressed) `docker save` archive from input, and builds a root
// filesystem from it in outputDir, including the generated runscript and environment script.
//
// outputDir must either not exist or be empty.  On failure, whatever was written to outputDir so
// far is left in place.
func Unpack(ctx context.Context, input io.Reader, outputDir string, opts Options) error {
	empty, err := fsutil.IsEmptyDir(outputDir)
	if err != nil {
		return err
	}
	if !empty {
		return &PreconditionError{Dir: outputDir}
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}

	return withScratch(ctx, opts, func(scratch string) error {
		img, err := stage(ctx, input, scratch)
		if err != nil {
			return err
		}

		if err := layer.Merge(ctx, outputDir, layerSources(img), scratch); err != nil {
			return err
		}
		dlog.Infof(ctx, "done extracting layers to %s", outputDir)

		if opts.Scaffold {
			if err := scaffold.Apply(ctx, outputDir); err != nil {
				return err
			}
		}

		if err := runscript.Write(ctx, outputDir, img.Config.Entrypoint, img.Config.Cmd); err != nil {
			return fmt.Errorf("writing runscript: %w", err)
		}
		if err := envscript.Write(ctx, outputDir, opts.GeneratorName, img.Config.Env); err != nil {
			return fmt.Errorf("writing environment script: %w", err)
		}

		dlog.Infof(ctx, "successfully unpacked image to %s", outputDir)
		return nil
	})
}
