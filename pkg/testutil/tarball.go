// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"archive/tar"
	"bytes"
	"io"
	"testing"
	"time"

	ociv1 "github.com/google/go-containerregistry/pkg/v1"
	ociv1tarball "github.com/google/go-containerregistry/pkg/v1/tarball"
	"github.com/stretchr/testify/require"
)

// TarEntry is a terse description of a tar member.
type TarEntry struct {
	Name     string
	Type     byte // defaults to tar.TypeReg
	Linkname string
	Body     string
	Mode     int64 // defaults to 0755 for directories and 0644 for everything else
}

func (e TarEntry) header() *tar.Header {
	typ := e.Type
	if typ == 0 {
		typ = tar.TypeReg
	}
	mode := e.Mode
	if mode == 0 {
		mode = 0o644
		if typ == tar.TypeDir {
			mode = 0o755
		}
	}
	hdr := &tar.Header{
		Typeflag: typ,
		Name:     e.Name,
		Linkname: e.Linkname,
		Mode:     mode,
		ModTime:  time.Unix(0, 0),
		Format:   tar.FormatPAX,
	}
	if typ == tar.TypeReg {
		hdr.Size = int64(len(e.Body))
	}
	return hdr
}

// TarBytes serializes entries as an uncompressed tar stream.
func TarBytes(t testing.TB, entries ...TarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := e.header()
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Size > 0 {
			_, err := io.WriteString(tw, e.Body)
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

// TarLayer is TarBytes wrapped up as an image layer.
func TarLayer(t testing.TB, entries ...TarEntry) ociv1.Layer {
	t.Helper()
	content := TarBytes(t, entries...)
	layer, err := ociv1tarball.LayerFromOpener(func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(content)), nil
	})
	require.NoError(t, err)
	return layer
}
