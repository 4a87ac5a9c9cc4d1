// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/datawire/ociunpack/pkg/cliutil"
)

// Version is set at build time with `-ldflags "-X main.Version=..."`.
var Version = ""

func getVersion() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}

func init() {
	argparser.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version of ociunpack",
		Args:  cliutil.WrapPositionalArgs(cobra.NoArgs),
		RunE: func(flags *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(flags.OutOrStdout(), getVersion())
			return err
		},
	})
}
