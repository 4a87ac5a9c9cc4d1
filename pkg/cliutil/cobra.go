// Copyright (C) 2020  Ambassador Labs (for Telepresence)
// Copyright (C) 2021-2022  Ambassador Labs (for ociunpack)
//
// SPDX-License-Identifier: Apache-2.0
//
// Contains code from
// https://github.com/telepresenceio/telepresence/blob/3b63073ceafae6b548c664a83f7ac90497eab2ae/pkg/client/cli/command.go

package cliutil

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// UsageExitCode is the exit code for invalid command-line usage; execution errors exit with 1.
const UsageExitCode = 2

// OnlySubcommands is a cobra.PositionalArgs for commands that only dispatch to subcommands.  It is
// similar to cobra.NoArgs, but suggests the nearest subcommand names.
func OnlySubcommands(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	err := fmt.Errorf("invalid subcommand %q", args[0])
	if cmd.SuggestionsMinimumDistance <= 0 {
		cmd.SuggestionsMinimumDistance = 2
	}
	if suggestions := cmd.SuggestionsFor(args[0]); len(suggestions) > 0 {
		err = fmt.Errorf("%w\nDid you mean one of these?\n\t%s", err, strings.Join(suggestions, "\n\t"))
	}
	return cmd.FlagErrorFunc()(cmd, err)
}

// WrapPositionalArgs wraps a cobra.PositionalArgs to have it pass any errors through FlagErrorFunc.
func WrapPositionalArgs(inner cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return FlagErrorFunc(cmd, inner(cmd, args))
	}
}

// ExactPositional is like cobra.ExactArgs(len(names)), but names the missing or surplus
// arguments in the error message.  Errors go through FlagErrorFunc.
func ExactPositional(names ...string) cobra.PositionalArgs {
	return WrapPositionalArgs(func(_ *cobra.Command, args []string) error {
		return checkPositional(names, args)
	})
}

func checkPositional(names, args []string) error {
	switch {
	case len(args) < len(names):
		return fmt.Errorf("missing %s argument", strings.Join(names[len(args):], " and "))
	case len(args) > len(names):
		return fmt.Errorf("unexpected extra argument %q", args[len(names)])
	default:
		return nil
	}
}

// RunSubcommands is a cobra.Command.RunE for commands that only have subcommands.  Running the
// bare command prints help and exits with UsageExitCode rather than reporting success.
func RunSubcommands(cmd *cobra.Command, args []string) error {
	cmd.SetOutput(cmd.ErrOrStderr())
	cmd.HelpFunc()(cmd, args)
	os.Exit(UsageExitCode)
	return nil
}

// FlagErrorFunc is a function to be passed to (*cobra.Command).SetFlagErrorFunc that establishes
// GNU-ish behavior for invalid flag usage.
//
// If err is non-nil, FlagErrorFunc calls os.Exit; it does NOT return.  So every error returned from
// (*cobra.Command).Execute is an execution error, not a usage error.
func FlagErrorFunc(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), usageError(cmd.CommandPath(), err))
	os.Exit(UsageExitCode)
	return nil
}

func usageError(cmdPath string, err error) string {
	msg := strings.TrimRight(err.Error(), "\n")
	// A multi-line message gets a blank line before the hint.
	if strings.Contains(msg, "\n") {
		msg += "\n"
	}
	return fmt.Sprintf("%s: %s\nSee '%s --help' for more information.\n", cmdPath, msg, cmdPath)
}
