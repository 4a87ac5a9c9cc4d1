// Copyright (C) 2020  Ambassador Labs (for Telepresence)
// Copyright (C) 2021-2022  Ambassador Labs (for ociunpack)
//
// SPDX-License-Identifier: Apache-2.0
//
// Based on
// https://github.com/telepresenceio/telepresence/blob/b6dfa04ff014915b47386191cc3d8b1352522fea/pkg/client/cli/command_group.go#L35-L63

package cliutil

import (
	"os"
	"strconv"

	"golang.org/x/term"
)

const fallbackTerminalWidth = 80

// GetTerminalWidth returns the width to wrap help text to, or 0 for "don't wrap".
//
// $COLUMNS wins if it is set.  Otherwise stdout is measured; if stdout is a terminal of unknown
// size then fallbackTerminalWidth is used, and if it isn't a terminal at all (say, piping `--help`
// in to a pager or a file) then the text isn't wrapped.
func GetTerminalWidth() int {
	return terminalWidth(os.Getenv("COLUMNS"), int(os.Stdout.Fd()))
}

func terminalWidth(columnsEnv string, fd int) int {
	if cols, err := strconv.Atoi(columnsEnv); err == nil {
		return cols
	}
	if !term.IsTerminal(fd) {
		return 0
	}
	if cols, _, err := term.GetSize(fd); err == nil {
		return cols
	}
	return fallbackTerminalWidth
}
