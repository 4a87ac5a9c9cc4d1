// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package cliutil

import (
	"strings"

	"github.com/mitchellh/go-wordwrap"
)

// Wrap the string `s` to a maximum width `w`.  Pass `w` == 0 to do no wrapping.
//
// In order to have some room for slop to avoid things like a short word being on a line by itself,
// most lines are actually wrapped to `w - 5`.
func Wrap(w int, s string) string {
	return wrap(0, w, s)
}

// Wrap the string `s` to a maximum width `w` with leading indent `i`.  The first line is not
// indented (this is assumed to be done by caller).  Pass `w` == 0 to do no wrapping
//
// In order to have some room for slop to avoid things like a short word being on a line by itself,
// most lines are actually wrapped to `w - 5`.
func WrapIndent(i, w int, s string) string {
	return wrap(i, w, s)
}

func wrap(indent, width int, text string) string {
	if width <= 0 {
		return text
	}
	// A line breaks before it would reach width-5 columns, indent included.
	lim := width - 5 - 1 - indent
	if lim < 1 {
		lim = 1
	}
	return strings.ReplaceAll(wordwrap.WrapString(text, uint(lim)), "\n", "\n"+strings.Repeat(" ", indent))
}
