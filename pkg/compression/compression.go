// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package compression classifies tarball streams by their leading magic bytes, and constructs the
// matching decoder.
//
// Classify is a pure function of the probe window, and only says which decoder to build (and
// whether that decoder can work on a forward-only stream); NewReader actually builds it.
package compression

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// ProbeSize is the number of leading bytes that Classify looks at.  It is one tar block, which is
// enough to hold every magic number in the table as well as a complete tar header.
const ProbeSize = 512

// Format is a compression codec.
type Format string

const (
	None  Format = "none"
	Gzip  Format = "gzip"
	Bzip2 Format = "bzip2"
	Xz    Format = "xz"
	Lzma  Format = "lzma" // legacy .lzma ("LZMA alone"), part of the xz family
	Zstd  Format = "zstd"
)

// Strategy says how a decoder for a Format must be constructed.
type Strategy int

const (
	// Streaming decoders wrap the input stream and are read in a single sequential pass.
	Streaming Strategy = iota
	// Buffered decoders decompress the whole input up front, and hand the tar reader a
	// seekable file.
	Buffered
)

func (s Strategy) String() string {
	switch s {
	case Streaming:
		return "streaming"
	case Buffered:
		return "buffered"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Classification is the result of looking at a probe window.
type Classification struct {
	Format   Format   `json:"format" yaml:"format"`
	Strategy Strategy `json:"strategy" yaml:"strategy"`
}

func (c Classification) String() string {
	return fmt.Sprintf("%s (%s)", c.Format, c.Strategy)
}

// UnsupportedCompressionError is returned when the probe window matches no known codec and also
// does not look like an uncompressed tar archive.
type UnsupportedCompressionError struct {
	Probe []byte
}

func (e *UnsupportedCompressionError) Error() string {
	n := len(e.Probe)
	if n > 8 {
		n = 8
	}
	return fmt.Sprintf("unsupported compression: leading bytes % x match no known codec and are not a tar header",
		e.Probe[:n])
}

type magic struct {
	format   Format
	strategy Strategy
	match    func([]byte) bool
}

func prefix(p ...byte) func([]byte) bool {
	return func(probe []byte) bool {
		return bytes.HasPrefix(probe, p)
	}
}

func isBzip2(probe []byte) bool {
	// "BZh", a block-size digit, then the block magic (the BCD of pi).
	return len(probe) >= 10 &&
		bytes.HasPrefix(probe, []byte("BZh")) &&
		string(probe[4:10]) == "1AY&SY"
}

// magics is checked in order; the first match wins.
var magics = []magic{
	{Gzip, Streaming, prefix(0x1f, 0x8b, 0x08)},
	{Bzip2, Streaming, isBzip2},
	{Xz, Streaming, prefix(0xfd, 0x37, 0x7a, 0x58, 0x5a)},
	{Lzma, Streaming, prefix(0x5d, 0x00, 0x00, 0x80)},
	{Zstd, Buffered, prefix(0x28, 0xb5, 0x2f, 0xfd)},
}

// Classify identifies the codec of a stream from its first bytes.  Only the first ProbeSize bytes
// of probe are considered.
func Classify(probe []byte) (Classification, error) {
	if len(probe) > ProbeSize {
		probe = probe[:ProbeSize]
	}
	for _, m := range magics {
		if m.match(probe) {
			return Classification{Format: m.format, Strategy: m.strategy}, nil
		}
	}
	if isTarHeader(probe) {
		return Classification{Format: None, Strategy: Streaming}, nil
	}
	return Classification{}, &UnsupportedCompressionError{Probe: append([]byte(nil), probe...)}
}

const (
	tarBlockSize = 512
	tarChksumOff = 148
	tarChksumLen = 8
)

// isTarHeader reports whether block starts an uncompressed tar archive: either the empty stream,
// an end-of-archive (all-zero) block, or a header block with a valid checksum.
func isTarHeader(block []byte) bool {
	if len(block) == 0 {
		return true
	}
	if len(block) < tarBlockSize {
		return false
	}
	block = block[:tarBlockSize]
	if bytes.Count(block, []byte{0}) == tarBlockSize {
		return true
	}

	field := string(block[tarChksumOff : tarChksumOff+tarChksumLen])
	field = strings.TrimRight(strings.TrimLeft(field, " "), " \x00")
	want, err := strconv.ParseInt(field, 8, 64)
	if err != nil {
		return false
	}

	// Historic tar implementations summed signed bytes, so accept either.
	var unsigned, signed int64
	for i, b := range block {
		if i >= tarChksumOff && i < tarChksumOff+tarChksumLen {
			b = ' '
		}
		unsigned += int64(b)
		signed += int64(int8(b))
	}
	return want == unsigned || want == signed
}
