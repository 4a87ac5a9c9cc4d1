// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package unpack

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/samber/lo"

	"github.com/datawire/ociunpack/pkg/compression"
	"github.com/datawire/ociunpack/pkg/envscript"
	"github.com/datawire/ociunpack/pkg/imagearchive"
	"github.com/datawire/ociunpack/pkg/runscript"
)

type LayerReport struct {
	Name        string                     `yaml:"name"`
	Compression compression.Classification `yaml:"compression"`
}

// Report describes what Unpack would do with an archive, without doing it.
type Report struct {
	RepoTags   []string      `yaml:"repoTags,omitempty"`
	Config     string        `yaml:"config"`
	Layers     []LayerReport `yaml:"layers"`
	Entrypoint []string      `yaml:"entrypoint,omitempty"`
	Cmd        []string      `yaml:"cmd,omitempty"`
	Env        []string      `yaml:"env,omitempty"`
	WorkingDir string        `yaml:"workingDir,omitempty"`
	// DefaultCommand is what the generated runscript runs when given no arguments.
	DefaultCommand []string `yaml:"defaultCommand"`
	// EnvScript is the environment script that would be generated.
	EnvScript string `yaml:"envScript"`
}

func inspectLayer(l imagearchive.Layer) (LayerReport, error) {
	file, err := os.Open(l.Path)
	if err != nil {
		return LayerReport{}, fmt.Errorf("layer %q: %w", l.Name, err)
	}
	defer file.Close()
	class, _, err := compression.Detect(file)
	if err != nil {
		return LayerReport{}, fmt.Errorf("layer %q: %w", l.Name, err)
	}
	return LayerReport{Name: l.Name, Compression: class}, nil
}

// Inspect reads an archive the same way Unpack does, and reports on its contents.
func Inspect(ctx context.Context, input io.Reader, opts Options) (*Report, error) {
	var report *Report
	err := withScratch(ctx, opts, func(scratch string) error {
		img, err := stage(ctx, input, scratch)
		if err != nil {
			return err
		}
		report = &Report{
			RepoTags:       img.Manifest.RepoTags,
			Config:         img.Manifest.Config,
			Entrypoint:     img.Config.Entrypoint,
			Cmd:            img.Config.Cmd,
			Env:            img.Config.Env,
			WorkingDir:     img.Config.WorkingDir,
			DefaultCommand: runscript.Resolve(img.Config.Entrypoint, img.Config.Cmd, nil),
			EnvScript:      string(envscript.Generate(ctx, img.Config.Env)),
		}
		for _, l := range img.Layers {
			layerReport, err := inspectLayer(l)
			if err != nil {
				return err
			}
			report.Layers = append(report.Layers, layerReport)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// LayerNames is a convenience accessor for the layer names in manifest order.
func (r *Report) LayerNames() []string {
	return lo.Map(r.Layers, func(l LayerReport, _ int) string {
		return l.Name
	})
}
