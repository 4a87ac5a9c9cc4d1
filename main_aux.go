// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

//go:build aux

package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/datawire/ociunpack/pkg/cliutil"
)

// Packaging helpers; built only with `-tags aux`, so they never show up in a release binary.

func init() {
	argparser.CompletionOptions.DisableDefaultCmd = false
	argparser.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if completionCmd, _, err := cmd.Root().Find([]string{"completion"}); err == nil {
			completionCmd.Hidden = true
		}
	}

	addDocCommand("man", "Generate man pages in to OUT_DIRECTORY", func(root *cobra.Command, dir string) error {
		return doc.GenManTree(root, &doc.GenManHeader{
			Title:   "OCIUNPACK",
			Section: "1",
			Source:  "Ambassador Labs",
			Manual:  root.Name(),
		}, dir)
	})
	addDocCommand("mddoc", "Generate markdown documentation in to OUT_DIRECTORY", doc.GenMarkdownTree)
}

// addDocCommand adds a hidden subcommand that regenerates OUT_DIRECTORY from scratch using gen.
func addDocCommand(name, short string, gen func(root *cobra.Command, dir string) error) {
	argparser.AddCommand(&cobra.Command{
		Hidden: true,
		Use:    name + " OUT_DIRECTORY",
		Short:  short,
		Args:   cliutil.ExactPositional("OUT_DIRECTORY"),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if err := os.RemoveAll(dir); err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0777); err != nil {
				return err
			}
			root := cmd.Root()
			root.DisableAutoGenTag = true
			return gen(root, dir)
		},
	})
}
