// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package scaffold_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/datawire/dlib/dlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/ociunpack/pkg/scaffold"
	"github.com/datawire/ociunpack/pkg/testutil"
)

var expectedListing = []string{
	`.exec -> .singularity.d/actions/exec`,
	`.run -> .singularity.d/actions/run`,
	`.shell -> .singularity.d/actions/shell`,
	`.singularity.d/`,
	`.singularity.d/actions/`,
	`.singularity.d/actions/exec`,
	`.singularity.d/actions/run`,
	`.singularity.d/actions/shell`,
	`.singularity.d/actions/start`,
	`.singularity.d/actions/test`,
	`.singularity.d/env/`,
	`.singularity.d/env/01-base.sh`,
	`.singularity.d/env/90-environment.sh`,
	`.singularity.d/env/95-apps.sh`,
	`.singularity.d/env/99-base.sh`,
	`.singularity.d/env/99-runtimevars.sh`,
	`.singularity.d/libs/`,
	`.singularity.d/runscript`,
	`.singularity.d/startscript`,
	`.test -> .singularity.d/actions/test`,
	`dev/`,
	`environment -> .singularity.d/env/90-environment.sh`,
	`etc/`,
	`etc/hosts`,
	`etc/resolv.conf`,
	`home/`,
	`proc/`,
	`root/`,
	`singularity -> .singularity.d/runscript`,
	`sys/`,
	`tmp/`,
	`var/`,
	`var/tmp/`,
}

// names reduces a tree to the listing format, without file contents.
func names(t *testing.T, root string) []string {
	t.Helper()
	entries, err := testutil.WalkTree(root)
	require.NoError(t, err)
	var ret []string
	for _, entry := range entries {
		if entry.Mode.IsRegular() {
			ret = append(ret, entry.Name)
			continue
		}
		ret = append(ret, entry.String())
	}
	return ret
}

func TestApply(t *testing.T) {
	t.Parallel()
	ctx := dlog.NewTestContext(t, true)
	root := t.TempDir()
	require.NoError(t, scaffold.Apply(ctx, root))
	assert.Equal(t, expectedListing, names(t, root))

	fi, err := os.Stat(filepath.Join(root, ".singularity.d", "actions", "run"))
	require.NoError(t, err)
	assert.Equal(t, scaffold.FileMode, fi.Mode().Perm())

	// Idempotent.
	require.NoError(t, scaffold.Apply(ctx, root))
	assert.Equal(t, expectedListing, names(t, root))
}

func TestApplyKeepsExisting(t *testing.T) {
	t.Parallel()
	ctx := dlog.NewTestContext(t, true)
	root := t.TempDir()
	require.NoError(t, os.Symlink("/usr/bin/custom", filepath.Join(root, "singularity")))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "etc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "etc", "hosts"), []byte("127.0.0.1 localhost\n"), 0o644))

	require.NoError(t, scaffold.Apply(ctx, root))

	target, err := os.Readlink(filepath.Join(root, "singularity"))
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/custom", target)

	// Files are rewritten.
	hosts, err := os.ReadFile(filepath.Join(root, "etc", "hosts"))
	require.NoError(t, err)
	assert.Empty(t, hosts)
}

func TestFilesAreScripts(t *testing.T) {
	t.Parallel()
	err := fs.WalkDir(scaffold.Files, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Dir(name) == "etc" {
			return err
		}
		content, err := fs.ReadFile(scaffold.Files, name)
		require.NoError(t, err)
		assert.Regexp(t, `^#!/bin/sh\n`, string(content), name)
		return nil
	})
	require.NoError(t, err)
}
