// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/pmezard/go-difflib/difflib"
)

// TreeEntry is one node of a directory tree on disk, relative to the tree root.
type TreeEntry struct {
	Name    string
	Mode    fs.FileMode
	Link    string
	Content string
}

func (e TreeEntry) String() string {
	switch {
	case e.Mode.IsDir():
		return e.Name + "/"
	case e.Mode&fs.ModeSymlink != 0:
		return e.Name + " -> " + e.Link
	case e.Mode.IsRegular():
		return fmt.Sprintf("%s = %q", e.Name, e.Content)
	default:
		return fmt.Sprintf("%s (%v)", e.Name, e.Mode.Type())
	}
}

// WalkTree lists everything below root (not including root itself), in lexical order.  Names use
// forward slashes.
func WalkTree(root string) ([]TreeEntry, error) {
	var ret []TreeEntry
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		entry := TreeEntry{
			Name: filepath.ToSlash(rel),
			Mode: fi.Mode(),
		}
		switch {
		case fi.Mode()&fs.ModeSymlink != 0:
			if entry.Link, err = os.Readlink(p); err != nil {
				return err
			}
		case fi.Mode().IsRegular():
			content, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			entry.Content = string(content)
		}
		ret = append(ret, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// DumpTreeListing returns one line per entry below root; see TreeEntry.String.
func DumpTreeListing(root string) (string, error) {
	entries, err := WalkTree(root)
	if err != nil {
		return "", err
	}
	ret := new(strings.Builder)
	for _, entry := range entries {
		fmt.Fprintln(ret, entry)
	}
	return ret.String(), nil
}

// DumpTreeFull is like DumpTreeListing, but includes permission bits.
func DumpTreeFull(root string) (string, error) {
	entries, err := WalkTree(root)
	if err != nil {
		return "", err
	}
	spewConfig := spew.ConfigState{
		Indent:                  "  ",
		DisableMethods:          true,
		DisableCapacities:       true,
		DisablePointerAddresses: true,
		SortKeys:                true,
	}
	return spewConfig.Sdump(entries), nil
}

// AssertTreeListing checks that DumpTreeListing(root) matches the expected lines, printing a
// unified diff if it does not.
func AssertTreeListing(t *testing.T, root string, exp ...string) bool {
	t.Helper()
	act, err := DumpTreeListing(root)
	if err != nil {
		t.Errorf("error dumping tree listing: %v", err)
		return false
	}
	expStr := ""
	if len(exp) > 0 {
		expStr = strings.Join(exp, "\n") + "\n"
	}
	if expStr != act {
		diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(expStr),
			B:        difflib.SplitLines(act),
			FromFile: "Expected",
			ToFile:   "Actual",
			Context:  1,
		})
		t.Errorf("Listing diff:\n%s", diff)
		if full, err := DumpTreeFull(root); err == nil {
			t.Logf("Full tree:\n%s", full)
		}
		return false
	}
	return true
}
