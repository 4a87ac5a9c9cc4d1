// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/datawire/ociunpack/pkg/unpack"
)

// mergeOptionsFile reads options from a YAML file in to opts, except for the ones whose flags were
// explicitly given on the command line.
func mergeOptionsFile(flags *cobra.Command, filename string, opts *unpack.Options) error {
	yamlBytes, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	var fileOpts unpack.Options
	if err := yaml.Unmarshal(yamlBytes, &fileOpts, yaml.DisallowUnknownFields); err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	if !flags.Flags().Changed("generator") && fileOpts.GeneratorName != "" {
		opts.GeneratorName = fileOpts.GeneratorName
	}
	if !flags.Flags().Changed("scaffold") {
		opts.Scaffold = fileOpts.Scaffold
	}
	if !flags.Flags().Changed("tmpdir") {
		opts.TempDir = fileOpts.TempDir
	}
	return nil
}
