// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package scaffold lays down the static Apptainer/Singularity base environment (the action
// scripts, the stock env scripts, and the mount-point directories) in a root filesystem.
//
// The content mirrors what `singularity build` puts in every image.
package scaffold

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/datawire/dlib/dlog"

	"github.com/datawire/ociunpack/pkg/fsutil"
)

//go:embed all:base
var embedded embed.FS

// Files is the file content of the base environment, rooted at the image root.
var Files = func() fs.FS {
	sub, err := fs.Sub(embedded, "base")
	if err != nil {
		panic(err)
	}
	return sub
}()

// Dirs are created if they do not exist.
var Dirs = []string{
	".singularity.d/libs",
	".singularity.d/actions",
	".singularity.d/env",
	"dev",
	"proc",
	"root",
	"var/tmp",
	"tmp",
	"etc",
	"sys",
	"home",
}

// Symlink is a link that is created only if nothing exists at Name.
type Symlink struct {
	Name   string
	Target string
}

var Symlinks = []Symlink{
	{"singularity", ".singularity.d/runscript"},
	{".run", ".singularity.d/actions/run"},
	{".exec", ".singularity.d/actions/exec"},
	{".test", ".singularity.d/actions/test"},
	{".shell", ".singularity.d/actions/shell"},
	{"environment", ".singularity.d/env/90-environment.sh"},
}

// FileMode is the mode of every file in Files, once written.
const FileMode fs.FileMode = 0o755

// Apply writes the base environment in to root.  It is idempotent: directories and symlinks that
// already exist are left alone, and files are overwritten.
func Apply(ctx context.Context, root string) error {
	dlog.Infof(ctx, "writing base environment in to %s", root)

	fi, err := os.Stat(root)
	if err != nil {
		return err
	}
	if fi.Mode().Perm()&0o200 == 0 {
		if err := os.Chmod(root, fi.Mode().Perm()|0o200); err != nil {
			return err
		}
	}

	for _, dir := range Dirs {
		dst, err := securejoin.SecureJoin(root, dir)
		if err != nil {
			return fmt.Errorf("scaffold dir %q: %w", dir, err)
		}
		if err := os.MkdirAll(dst, 0o755); err != nil {
			return fmt.Errorf("scaffold dir %q: %w", dir, err)
		}
	}

	for _, link := range Symlinks {
		if err := applySymlink(ctx, root, link); err != nil {
			return fmt.Errorf("scaffold symlink %q: %w", link.Name, err)
		}
	}

	return fs.WalkDir(Files, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		content, err := fs.ReadFile(Files, name)
		if err != nil {
			return err
		}
		dst, err := securejoin.SecureJoin(root, name)
		if err != nil {
			return fmt.Errorf("scaffold file %q: %w", name, err)
		}
		dlog.Debugf(ctx, "scaffold: writing %s", name)
		if err := fsutil.WriteFileSync(dst, content, FileMode); err != nil {
			return fmt.Errorf("scaffold file %q: %w", name, err)
		}
		return nil
	})
}

func applySymlink(ctx context.Context, root string, link Symlink) error {
	dst, err := securejoin.SecureJoin(root, link.Name)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(dst); err == nil {
		dlog.Debugf(ctx, "scaffold: keeping existing %s", link.Name)
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.Symlink(link.Target, dst)
}
