// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package cliutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	t.Parallel()
	testcases := map[string]struct {
		Indent, Width int
		Input         string
		Output        string
	}{
		"nowrap":        {0, 0, "a b c", "a b c"},
		"short":         {0, 80, "a b c", "a b c"},
		"narrow":        {0, 12, "aaa bbb ccc ddd", "aaa\nbbb\nccc\nddd"},
		"indent":        {4, 20, "aaa bbb ccc ddd", "aaa bbb\n    ccc ddd"},
		"double-space":  {0, 80, "One.  Two.", "One.  Two."},
		"paragraphs":    {2, 80, "one\ntwo", "one\n  two"},
		"leading-space": {0, 10, "aaaaa  bb", "aaaaa\nbb"},
		"long-word":     {0, 10, "aaaaaaaaaaaa b", "aaaaaaaaaaaa\nb"},
	}
	for tcName, tcData := range testcases {
		tcData := tcData
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tcData.Output, wrap(tcData.Indent, tcData.Width, tcData.Input))
		})
	}
}
