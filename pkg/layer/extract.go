// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package layer replays layer tarballs on to a directory on disk, honoring whiteout markers.
package layer

import (
	"archive/tar"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/datawire/dlib/dlog"
)

const (
	whiteoutPrefix = ".wh."
	opaqueMarker   = whiteoutPrefix + whiteoutPrefix + ".opq"
)

var errMalformedWhiteout = errors.New("whiteout marker does not name a sibling entry")

// Extractor writes tar streams in to Root.
//
// If Whiteouts is set, then ".wh."-prefixed entries are interpreted as deletions of content laid
// down by earlier calls to Apply, as in an image layer.  Otherwise they are extracted as ordinary
// files.
type Extractor struct {
	Root      string
	Whiteouts bool
}

// layerState is the bookkeeping for a single call to Apply.
type layerState struct {
	name string
	// written holds every path (relative to the root) that the current layer has created,
	// including the implied parent directories.
	written map[string]struct{}
}

func (s *layerState) wrote(rel string) {
	for rel != "." && rel != "/" && rel != "" {
		if _, ok := s.written[rel]; ok {
			return
		}
		s.written[rel] = struct{}{}
		rel = path.Dir(rel)
	}
}

func (s *layerState) ioErr(op, rel string, err error) error {
	return &ExtractionIOError{
		Layer: s.name,
		Path:  rel,
		Op:    op,
		Err:   err,
	}
}

// cleanName turns a tar member name in to a slash-separated path relative to the root; "" means
// the root itself.  The result never contains "..".
func cleanName(name string) string {
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}

// resolve returns the on-disk path for rel.  Symlinks in the parent directories are evaluated as
// if Root were "/", so that nothing a layer does can reach outside of Root; the final component is
// not followed.
func (x *Extractor) resolve(rel string) (string, error) {
	parent, err := securejoin.SecureJoin(x.Root, filepath.FromSlash(path.Dir(rel)))
	if err != nil {
		return "", err
	}
	return filepath.Join(parent, path.Base(rel)), nil
}

// Apply extracts a single tar stream.  name identifies the stream in log messages and errors.
func (x *Extractor) Apply(ctx context.Context, name string, r io.Reader) error {
	state := &layerState{
		name:    name,
		written: make(map[string]struct{}),
	}
	tarReader := tar.NewReader(r)
	for {
		header, err := tarReader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return state.ioErr("read", "", err)
		}
		if err := x.applyEntry(ctx, state, header, tarReader); err != nil {
			return err
		}
	}
}

func (x *Extractor) applyEntry(ctx context.Context, state *layerState, header *tar.Header, body io.Reader) error {
	rel := cleanName(header.Name)
	if rel == "" {
		dlog.Debugf(ctx, "layer %q: skipping root entry %q", state.name, header.Name)
		return nil
	}

	if x.Whiteouts {
		if base := path.Base(rel); strings.HasPrefix(base, whiteoutPrefix) {
			if base == opaqueMarker {
				return x.opaque(ctx, state, path.Dir(rel))
			}
			target := strings.TrimPrefix(base, whiteoutPrefix)
			switch target {
			case "", ".", "..":
				return state.ioErr("whiteout", rel, errMalformedWhiteout)
			}
			return x.whiteout(ctx, state, path.Join(path.Dir(rel), target))
		}
	}

	switch header.Typeflag {
	case tar.TypeDir, tar.TypeReg, tar.TypeGNUSparse, tar.TypeSymlink, tar.TypeLink:
	default:
		dlog.Debugf(ctx, "layer %q: skipping %q: unsupported entry type %q",
			state.name, header.Name, header.Typeflag)
		return nil
	}

	dst, err := x.resolve(rel)
	if err != nil {
		return state.ioErr("resolve", rel, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return state.ioErr("mkdir", path.Dir(rel), err)
	}

	dlog.Debugf(ctx, "layer %q: %c %s", state.name, header.Typeflag, rel)
	switch header.Typeflag {
	case tar.TypeDir:
		err = x.writeDir(state, rel, dst, header)
	case tar.TypeReg, tar.TypeGNUSparse:
		// archive/tar hands back old-GNU sparse files with the holes already filled in.
		err = x.writeFile(state, rel, dst, header, body)
	case tar.TypeSymlink:
		err = x.writeSymlink(state, rel, dst, header)
	case tar.TypeLink:
		err = x.writeHardlink(state, rel, dst, header)
	}
	if err != nil {
		return err
	}
	state.wrote(rel)
	return nil
}

func modeBits(header *tar.Header) fs.FileMode {
	return header.FileInfo().Mode() & (fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky)
}

// removeExisting removes whatever is at dst, if anything.
func removeExisting(state *layerState, rel, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return state.ioErr("remove", rel, err)
	}
	return nil
}

func (x *Extractor) writeDir(state *layerState, rel, dst string, header *tar.Header) error {
	fi, err := os.Lstat(dst)
	switch {
	case err == nil && fi.IsDir():
	case err == nil || errors.Is(err, fs.ErrNotExist):
		if err := removeExisting(state, rel, dst); err != nil {
			return err
		}
		if err := os.Mkdir(dst, 0o700); err != nil {
			return state.ioErr("mkdir", rel, err)
		}
	default:
		return state.ioErr("lstat", rel, err)
	}
	// The owner keeps rwx, or later entries could not be written in to it.
	if err := os.Chmod(dst, modeBits(header)|0o700); err != nil {
		return state.ioErr("chmod", rel, err)
	}
	return nil
}

func (x *Extractor) writeFile(state *layerState, rel, dst string, header *tar.Header, body io.Reader) (err error) {
	if err := removeExisting(state, rel, dst); err != nil {
		return err
	}
	file, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return state.ioErr("create", rel, err)
	}
	maybeSetErr := func(op string, _err error) {
		if _err != nil && err == nil {
			err = state.ioErr(op, rel, _err)
		}
	}
	_, _err := io.Copy(file, body)
	maybeSetErr("write", _err)
	maybeSetErr("close", file.Close())
	if err != nil {
		return err
	}
	maybeSetErr("chmod", os.Chmod(dst, modeBits(header)))
	maybeSetErr("chtimes", os.Chtimes(dst, header.ModTime, header.ModTime))
	return err
}

func (x *Extractor) writeSymlink(state *layerState, rel, dst string, header *tar.Header) error {
	if err := removeExisting(state, rel, dst); err != nil {
		return err
	}
	if err := os.Symlink(header.Linkname, dst); err != nil {
		return state.ioErr("symlink", rel, err)
	}
	return nil
}

func (x *Extractor) writeHardlink(state *layerState, rel, dst string, header *tar.Header) error {
	targetRel := cleanName(header.Linkname)
	if targetRel == "" {
		return state.ioErr("link", rel, errors.New("hardlink to the root directory"))
	}
	target, err := x.resolve(targetRel)
	if err != nil {
		return state.ioErr("resolve", targetRel, err)
	}
	if target == dst {
		return nil
	}
	if err := removeExisting(state, rel, dst); err != nil {
		return err
	}
	if err := os.Link(target, dst); err != nil {
		return state.ioErr("link", rel, err)
	}
	return nil
}

// whiteout deletes rel, which must exist.
func (x *Extractor) whiteout(ctx context.Context, state *layerState, rel string) error {
	dst, err := x.resolve(rel)
	if err != nil {
		return state.ioErr("resolve", rel, err)
	}
	fi, err := os.Lstat(dst)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &WhiteoutTargetMissingError{
				Layer: state.name,
				Path:  rel,
			}
		}
		return state.ioErr("lstat", rel, err)
	}
	dlog.Debugf(ctx, "layer %q: whiteout %s", state.name, rel)
	if fi.IsDir() {
		err = os.RemoveAll(dst)
	} else {
		err = os.Remove(dst)
	}
	if err != nil {
		return state.ioErr("remove", rel, err)
	}
	return nil
}

// opaque empties the directory dir of everything that the current layer has not itself written.
func (x *Extractor) opaque(ctx context.Context, state *layerState, dir string) error {
	dlog.Debugf(ctx, "layer %q: opaque whiteout %s/", state.name, dir)
	if dir == "." {
		dir = ""
	}
	dst := x.Root
	if dir != "" {
		var err error
		if dst, err = x.resolve(dir); err != nil {
			return state.ioErr("resolve", dir, err)
		}
	}
	return x.prune(ctx, state, dir, dst)
}

func (x *Extractor) prune(ctx context.Context, state *layerState, dir, dst string) error {
	children, err := os.ReadDir(dst)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return state.ioErr("readdir", dir, err)
	}
	for _, child := range children {
		childRel := path.Join(dir, child.Name())
		childDst := filepath.Join(dst, child.Name())
		if _, ok := state.written[childRel]; !ok {
			dlog.Debugf(ctx, "layer %q: opaque whiteout removes %s", state.name, childRel)
			if err := os.RemoveAll(childDst); err != nil {
				return state.ioErr("remove", childRel, err)
			}
			continue
		}
		if child.IsDir() {
			if err := x.prune(ctx, state, childRel, childDst); err != nil {
				return err
			}
		}
	}
	return nil
}
