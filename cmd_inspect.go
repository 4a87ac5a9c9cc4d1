// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/datawire/dlib/dlog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/datawire/ociunpack/pkg/cliutil"
	"github.com/datawire/ociunpack/pkg/fsutil"
	"github.com/datawire/ociunpack/pkg/unpack"
)

func init() {
	var opts unpack.Options
	cmd := &cobra.Command{
		Use:   "inspect [flags] IN_ARCHIVE|- >OUT_YAML",
		Short: "Describe what unpack would do with a docker-save archive",
		Args:  cliutil.ExactPositional("IN_ARCHIVE"),
		RunE: func(flags *cobra.Command, args []string) (err error) {
			ctx := flags.Context()

			input, err := fsutil.OpenInput(args[0])
			if err != nil {
				return err
			}
			defer func() {
				if _err := input.Close(); _err != nil && err == nil {
					err = _err
				}
			}()

			report, err := unpack.Inspect(ctx, input, opts)
			if err != nil {
				return err
			}
			dlog.Debugf(ctx, "layers: %q", report.LayerNames())

			bs, err := yaml.Marshal(report)
			if err != nil {
				return err
			}
			if _, err := flags.OutOrStdout().Write(bs); err != nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.TempDir, "tmpdir", "",
		"Create the scratch directory in `DIR` (default $TMPDIR)")
	argparser.AddCommand(cmd)
}
