// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package envscript_test

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/datawire/dlib/dexec"
	"github.com/datawire/dlib/dlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/ociunpack/pkg/envscript"
)

func TestLine(t *testing.T) {
	t.Parallel()
	testcases := map[string]struct {
		Entry string
		Line  string
	}{
		"bare":         {`FOO`, `export FOO="${FOO:-}"`},
		"pair":         {`FOO=bar`, `[ -n "${FOO:-}" ] || FOO=bar; export FOO`},
		"empty-value":  {`FOO=`, `[ -n "${FOO:-}" ] || FOO=''; export FOO`},
		"first-equals": {`OPTS=a=b=c`, `[ -n "${OPTS:-}" ] || OPTS=a=b=c; export OPTS`},
		"path":         {`PATH=/usr/local/bin:/usr/bin`, `export PATH='/usr/local/bin:/usr/bin'`},
		"path-quote":   {`PATH=/it's`, `export PATH='/it'"'"'s'`},
		"escapes":      {"X=a\"b$c`d\\e", "[ -n \"${X:-}\" ] || X='a\"b$c`d\\e'; export X"},
		"single-quote": {`X=it's`, `[ -n "${X:-}" ] || X='it'"'"'s'; export X`},
		"spaces":       {`X=a b`, `[ -n "${X:-}" ] || X='a b'; export X`},
		"brace":        {`X=a}b`, `[ -n "${X:-}" ] || X='a}b'; export X`},
		"tilde":        {`X=~/bin`, `[ -n "${X:-}" ] || X='~/bin'; export X`},
	}
	for tcName, tcData := range testcases {
		tcData := tcData
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			line, err := envscript.Line(tcData.Entry)
			require.NoError(t, err)
			assert.Equal(t, tcData.Line, line)
		})
	}
}

func TestLineInvalid(t *testing.T) {
	t.Parallel()
	for _, entry := range []string{"", "=x", "1FOO=x", "FOO-BAR=x", "FOO BAR", "$(id)=x"} {
		_, err := envscript.Line(entry)
		var nameErr *envscript.InvalidNameError
		assert.True(t, errors.As(err, &nameErr), "entry %q: got %v", entry, err)
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()
	ctx := dlog.NewTestContext(t, true)
	act := envscript.Generate(ctx, []string{
		"PATH=/bin",
		"bad name=x",
		"LANG=C.UTF-8",
		"LANG=en_US.UTF-8",
		"TERM",
	})
	assert.Equal(t, ""+
		"#!/bin/sh\n"+
		"export PATH='/bin'\n"+
		"[ -n \"${LANG:-}\" ] || LANG=C.UTF-8; export LANG\n"+
		"[ -n \"${LANG:-}\" ] || LANG=en_US.UTF-8; export LANG\n"+
		"export TERM=\"${TERM:-}\"\n",
		string(act))
}

// sourceAndPrint runs the environment script in shell with the given environment, and returns
// the resulting values of names.
func sourceAndPrint(t *testing.T, shell, script string, environ []string, names ...string) []string {
	t.Helper()
	ctx := dlog.NewTestContext(t, true)
	var printer strings.Builder
	printer.WriteString(`. "$1"`)
	for _, name := range names {
		printer.WriteString(`; printf '%s\n' "$` + name + `"`)
	}
	cmd := dexec.CommandContext(ctx, shell, "-c", printer.String(), "sh", script)
	cmd.Env = environ
	out, err := cmd.Output()
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(out), "\n"), "\n")
}

func TestOverrideRules(t *testing.T) {
	t.Parallel()
	ctx := dlog.NewTestContext(t, true)
	root := t.TempDir()
	require.NoError(t, envscript.Write(ctx, root, "", []string{
		"FOO",
		"BAR=image-bar",
		"PATH=/a:/b",
		"TRICKY=$HOME `id` \"q\" } \\",
		"MSG=don't",
	}))
	script := filepath.Join(root, ".singularity.d", "env", "10-docker2singularity.sh")

	for _, shell := range []string{"/bin/sh", "bash"} {
		shell := shell
		t.Run(filepath.Base(shell), func(t *testing.T) {
			t.Parallel()
			if _, err := exec.LookPath(shell); err != nil {
				t.Skipf("no %s: %v", shell, err)
			}
			t.Run("caller-sets-everything", func(t *testing.T) {
				t.Parallel()
				act := sourceAndPrint(t, shell, script,
					[]string{"FOO=caller-foo", "BAR=caller-bar", "PATH=/usr/bin:/bin", "TRICKY=caller", "MSG=hi", "HOME=/root"},
					"FOO", "BAR", "PATH", "TRICKY", "MSG")
				assert.Equal(t, []string{"caller-foo", "caller-bar", "/a:/b", "caller", "hi"}, act)
			})
			t.Run("caller-sets-nothing", func(t *testing.T) {
				t.Parallel()
				act := sourceAndPrint(t, shell, script,
					[]string{"PATH=/usr/bin:/bin", "HOME=/root"},
					"FOO", "BAR", "PATH", "TRICKY", "MSG")
				assert.Equal(t, []string{"", "image-bar", "/a:/b", "$HOME `id` \"q\" } \\", "don't"}, act)
			})
			t.Run("caller-sets-empty", func(t *testing.T) {
				t.Parallel()
				act := sourceAndPrint(t, shell, script,
					[]string{"BAR=", "PATH=/usr/bin:/bin"},
					"BAR")
				assert.Equal(t, []string{"image-bar"}, act)
			})
		})
	}
}

func TestWrite(t *testing.T) {
	t.Parallel()
	ctx := dlog.NewTestContext(t, true)
	root := t.TempDir()
	require.NoError(t, envscript.Write(ctx, root, "mytool", []string{"A=1"}))

	filename := filepath.Join(root, filepath.FromSlash(envscript.Path("mytool")))
	assert.Equal(t, filepath.Join(root, ".singularity.d", "env", "10-mytool.sh"), filename)
	fi, err := os.Stat(filename)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), fi.Mode().Perm())

	assert.Error(t, envscript.Write(ctx, root, "../escape", nil))
}
