// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package compression

import (
	"bufio"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/datawire/dlib/dlog"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// Detect peeks at the first ProbeSize bytes of r and classifies them.  Because peeking consumes
// the start of r, callers must read from the returned io.Reader instead, which replays the probe
// window.
func Detect(r io.Reader) (Classification, io.Reader, error) {
	buf := bufio.NewReaderSize(r, ProbeSize)
	probe, err := buf.Peek(ProbeSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return Classification{}, nil, fmt.Errorf("reading compression probe: %w", err)
	}
	c, err := Classify(probe)
	if err != nil {
		return Classification{}, nil, err
	}
	return c, buf, nil
}

// streamDecoders builds decoders for the Streaming strategy.
var streamDecoders = map[Format]func(io.Reader) (io.ReadCloser, error){
	None: func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(r), nil
	},
	Gzip: func(r io.Reader) (io.ReadCloser, error) {
		return pgzip.NewReader(r)
	},
	Bzip2: func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(bzip2.NewReader(r)), nil
	},
	Xz: func(r io.Reader) (io.ReadCloser, error) {
		xzr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xzr), nil
	},
	Lzma: func(r io.Reader) (io.ReadCloser, error) {
		lr, err := lzma.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(lr), nil
	},
}

// NewReader returns the decompressed contents of r, which must have been classified as c.  The
// caller must Close the result.
//
// For the Buffered strategy the entire input is decoded before NewReader returns, in to a
// temporary file inside scratchDir; closing the returned reader removes that file.
func NewReader(c Classification, r io.Reader, scratchDir string) (io.ReadCloser, error) {
	switch c.Strategy {
	case Streaming:
		newDecoder, ok := streamDecoders[c.Format]
		if !ok {
			return nil, fmt.Errorf("no streaming decoder for %s", c.Format)
		}
		rc, err := newDecoder(r)
		if err != nil {
			return nil, fmt.Errorf("initializing %s decoder: %w", c.Format, err)
		}
		return rc, nil
	case Buffered:
		if c.Format != Zstd {
			return nil, fmt.Errorf("no buffered decoder for %s", c.Format)
		}
		return bufferZstd(r, scratchDir)
	default:
		return nil, fmt.Errorf("unknown decoder strategy %v", c.Strategy)
	}
}

// Open is Detect followed by NewReader.
func Open(ctx context.Context, r io.Reader, scratchDir string) (io.ReadCloser, Classification, error) {
	c, r, err := Detect(r)
	if err != nil {
		return nil, Classification{}, err
	}
	dlog.Debugf(ctx, "detected compression %v", c)
	rc, err := NewReader(c, r, scratchDir)
	if err != nil {
		return nil, c, err
	}
	return rc, c, nil
}

type tempFile struct {
	*os.File
}

func (f *tempFile) Close() error {
	err := f.File.Close()
	if _err := os.Remove(f.Name()); _err != nil && err == nil {
		err = _err
	}
	return err
}

func bufferZstd(r io.Reader, scratchDir string) (_ io.ReadCloser, err error) {
	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("initializing zstd decoder: %w", err)
	}
	defer dec.Close()

	file, err := os.CreateTemp(scratchDir, "zstd-*.tar")
	if err != nil {
		return nil, err
	}
	ret := &tempFile{File: file}
	defer func() {
		if err != nil {
			_ = ret.Close()
		}
	}()

	if _, err := dec.WriteTo(file); err != nil {
		return nil, fmt.Errorf("decoding zstd: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return ret, nil
}
