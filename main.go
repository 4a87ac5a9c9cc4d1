// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Command ociunpack turns an exported Docker image (`docker save`) in to an Apptainer/Singularity
// sandbox directory.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/datawire/dlib/dlog"
	"github.com/google/go-containerregistry/pkg/logs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/datawire/ociunpack/pkg/cliutil"
)

var argparser = &cobra.Command{
	Use:   "ociunpack {[flags]|SUBCOMMAND...}",
	Short: "Unpack Docker image archives in to Apptainer sandboxes",

	Args: cliutil.OnlySubcommands,
	RunE: cliutil.RunSubcommands,

	SilenceErrors: true, // main() will handle this after .ExecuteContext() returns
	SilenceUsage:  true, // our FlagErrorFunc will handle it
}

var logger = logrus.New()

func init() {
	argparser.SetFlagErrorFunc(cliutil.FlagErrorFunc)
	argparser.SetHelpTemplate(cliutil.HelpTemplate)
	argparser.PersistentFlags().Var(cliutil.LogLevel{Logger: logger}, "log-level",
		"Only log messages at `LEVEL` or more severe (trace, debug, info, warn, error)")
}

func newContext() context.Context {
	ctx := dlog.WithLogger(context.Background(), dlog.WrapLogrus(logger))

	logs.Warn = dlog.StdLogger(ctx, dlog.LogLevelWarn)
	logs.Progress = dlog.StdLogger(ctx, dlog.LogLevelInfo)
	logs.Debug = dlog.StdLogger(ctx, dlog.LogLevelDebug)

	return ctx
}

func main() {
	ctx := newContext()
	if err := argparser.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(argparser.ErrOrStderr(), "%s: error: %v\n", argparser.CommandPath(), err)
		os.Exit(1)
	}
}
