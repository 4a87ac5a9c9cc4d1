// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package imagearchive_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/ociunpack/pkg/imagearchive"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		filename := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(filename), 0o755))
		require.NoError(t, os.WriteFile(filename, []byte(content), 0o644))
	}
	return root
}

func TestReadManifestCardinality(t *testing.T) {
	t.Parallel()
	testcases := map[string]struct {
		Manifest string
		Count    int
	}{
		"zero": {`[]`, 0},
		"null": {`null`, 0},
		"two": {`[
			{"Config": "a.json", "Layers": []},
			{"Config": "b.json", "Layers": []}
		]`, 2},
	}
	for tcName, tcData := range testcases {
		tcData := tcData
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			root := writeFiles(t, map[string]string{"manifest.json": tcData.Manifest})
			_, err := imagearchive.ReadManifest(root)
			var cardErr *imagearchive.ManifestCardinalityError
			require.True(t, errors.As(err, &cardErr), "got %v", err)
			assert.Equal(t, tcData.Count, cardErr.Count)
		})
	}
}

func TestReadManifestMissing(t *testing.T) {
	t.Parallel()
	_, err := imagearchive.ReadManifest(t.TempDir())
	assert.True(t, errors.Is(err, fs.ErrNotExist), "got %v", err)
}

func TestReadManifestMalformed(t *testing.T) {
	t.Parallel()
	root := writeFiles(t, map[string]string{"manifest.json": `{"not": "a list"}`})
	_, err := imagearchive.ReadManifest(root)
	var pathErr *fs.PathError
	require.True(t, errors.As(err, &pathErr), "got %v", err)
	assert.Equal(t, "manifest.json", pathErr.Path)
}

func TestLoad(t *testing.T) {
	t.Parallel()
	root := writeFiles(t, map[string]string{
		"manifest.json": `[{
			"Config": "blobs/sha256/cfg",
			"RepoTags": ["example.com/app:latest"],
			"Layers": ["blobs/sha256/l1", "l2/layer.tar"]
		}]`,
		"blobs/sha256/cfg": `{
			"architecture": "amd64",
			"os": "linux",
			"config": {
				"Entrypoint": ["/bin/echo"],
				"Cmd": ["hi"],
				"Env": ["PATH=/usr/bin:/bin", "LANG"],
				"WorkingDir": "/srv"
			},
			"rootfs": {"type": "layers", "diff_ids": []}
		}`,
	})
	img, err := imagearchive.Load(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"example.com/app:latest"}, img.Manifest.RepoTags)
	assert.Equal(t, []string{"/bin/echo"}, img.Config.Entrypoint)
	assert.Equal(t, []string{"hi"}, img.Config.Cmd)
	assert.Equal(t, []string{"PATH=/usr/bin:/bin", "LANG"}, img.Config.Env)
	assert.Equal(t, "/srv", img.Config.WorkingDir)
	assert.Equal(t, "linux", img.ConfigFile.OS)
	assert.Equal(t, []imagearchive.Layer{
		{Name: "blobs/sha256/l1", Path: filepath.Join(root, "blobs", "sha256", "l1")},
		{Name: "l2/layer.tar", Path: filepath.Join(root, "l2", "layer.tar")},
	}, img.Layers)
}

func TestLoadSparseConfig(t *testing.T) {
	t.Parallel()
	root := writeFiles(t, map[string]string{
		"manifest.json": `[{"Config": "c.json", "Layers": []}]`,
		"c.json":        `{}`,
	})
	img, err := imagearchive.Load(root)
	require.NoError(t, err)
	assert.Empty(t, img.Config.Entrypoint)
	assert.Empty(t, img.Config.Cmd)
	assert.Empty(t, img.Config.Env)
	assert.Empty(t, img.Layers)
}

func TestLoadConfinedToRoot(t *testing.T) {
	t.Parallel()
	outside := writeFiles(t, map[string]string{
		"c.json": `{"config": {"Cmd": ["outside"]}}`,
	})
	rel, err := filepath.Rel(t.TempDir(), outside)
	require.NoError(t, err)

	root := writeFiles(t, map[string]string{
		"manifest.json": `[{"Config": "` + filepath.ToSlash(filepath.Join(rel, "c.json")) + `", "Layers": ["../../escape.tar"]}]`,
	})
	_, err = imagearchive.Load(root)
	assert.True(t, errors.Is(err, fs.ErrNotExist), "got %v", err)
}

func TestLoadLayerPathsConfined(t *testing.T) {
	t.Parallel()
	root := writeFiles(t, map[string]string{
		"manifest.json": `[{"Config": "c.json", "Layers": ["../../../etc/layer.tar"]}]`,
		"c.json":        `{}`,
	})
	img, err := imagearchive.Load(root)
	require.NoError(t, err)
	require.Len(t, img.Layers, 1)
	assert.Equal(t, filepath.Join(root, "etc", "layer.tar"), img.Layers[0].Path)
}
