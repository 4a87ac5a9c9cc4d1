// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
)

// StdinName is the filename that OpenInput treats as standard input.
const StdinName = "-"

// OpenInput opens filename for reading, or returns stdin if filename is StdinName.  Closing the
// returned stdin does not close os.Stdin.
func OpenInput(filename string) (io.ReadCloser, error) {
	if filename == StdinName {
		return io.NopCloser(os.Stdin), nil
	}
	file, err := os.Open(filename)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			err = pathErr.Err
		}
		return nil, &fs.PathError{
			Op:   "open input",
			Path: filename,
			Err:  err,
		}
	}
	return file, nil
}

// IsEmptyDir reports whether dir either does not exist or is an empty directory.  A non-directory
// is never empty.
func IsEmptyDir(dir string) (bool, error) {
	file, err := os.Open(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, err
	}
	defer file.Close()
	fi, err := file.Stat()
	if err != nil {
		return false, err
	}
	if !fi.IsDir() {
		return false, nil
	}
	if _, err := file.Readdirnames(1); err != nil {
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}
