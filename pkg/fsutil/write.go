// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/datawire/ociunpack/pkg/reproducible"
)

// WriteFileSync writes content to filename (creating parent directories as needed), flushes it to
// stable storage, and only then sets its permissions to perm.  The modification time is set to
// reproducible.Now().
func WriteFileSync(filename string, content []byte, perm fs.FileMode) (err error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	maybeSetErr := func(_err error) {
		if _err != nil && err == nil {
			err = _err
		}
	}
	_, _err := file.Write(content)
	maybeSetErr(_err)
	if err == nil {
		maybeSetErr(file.Sync())
	}
	maybeSetErr(file.Close())
	if err != nil {
		return err
	}
	if err := os.Chmod(filename, perm); err != nil {
		return err
	}
	return reproducible.Touch(filename)
}
