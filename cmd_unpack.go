// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"

	"github.com/datawire/ociunpack/pkg/cliutil"
	"github.com/datawire/ociunpack/pkg/envscript"
	"github.com/datawire/ociunpack/pkg/fsutil"
	"github.com/datawire/ociunpack/pkg/unpack"
)

func init() {
	var (
		opts        unpack.Options
		optionsFile string
	)
	cmd := &cobra.Command{
		Use:   "unpack [flags] IN_ARCHIVE|- OUT_DIRECTORY",
		Short: "Turn a docker-save archive in to a sandbox directory",
		Long: "Extract the image in IN_ARCHIVE (as written by `docker save`, optionally " +
			"compressed with gzip, bzip2, xz, lzma, or zstd) in to OUT_DIRECTORY, applying " +
			"the layers in order and honoring whiteouts.  Then generate the Apptainer " +
			"runscript from the image's ENTRYPOINT and CMD, and the environment script " +
			"from its ENV.  Pass \"-\" as IN_ARCHIVE to read standard input." +
			"\n\n" +
			"OUT_DIRECTORY must either not exist or be empty.  If unpacking fails, " +
			"whatever has been written to OUT_DIRECTORY is left in place." +
			"\n\n" +
			"Options may also be read from a YAML file with --options-file:" +
			"\n\n" +
			"    generator: docker2singularity\n" +
			"    scaffold: true\n" +
			"    tmpdir: /var/tmp\n" +
			"\n" +
			"Flags given on the command line take precedence over the file.",
		Args: cliutil.ExactPositional("IN_ARCHIVE", "OUT_DIRECTORY"),
		RunE: func(flags *cobra.Command, args []string) (err error) {
			if optionsFile != "" {
				if err := mergeOptionsFile(flags, optionsFile, &opts); err != nil {
					return err
				}
			}

			input, err := fsutil.OpenInput(args[0])
			if err != nil {
				return err
			}
			defer func() {
				if _err := input.Close(); _err != nil && err == nil {
					err = _err
				}
			}()

			return unpack.Unpack(flags.Context(), input, args[1], opts)
		},
	}
	cmd.Flags().StringVar(&opts.GeneratorName, "generator", envscript.DefaultGenerator,
		"Name the environment script .singularity.d/env/10-`NAME`.sh")
	cmd.Flags().BoolVar(&opts.Scaffold, "scaffold", false,
		"Also write the stock Apptainer base environment (action scripts, mount points)")
	cmd.Flags().StringVar(&opts.TempDir, "tmpdir", "",
		"Create the scratch directory in `DIR` (default $TMPDIR)")
	cmd.Flags().StringVar(&optionsFile, "options-file", "",
		"Read defaults for the other flags from `IN_YAML_FILE`")
	cliutil.SetEnvHelp(cmd, map[string]string{
		"SOURCE_DATE_EPOCH": "Timestamp (seconds since the Unix epoch) to give the generated " +
			"scripts, for reproducible output",
		"TMPDIR": "Scratch directory, if --tmpdir is not given",
	})
	argparser.AddCommand(cmd)
}
