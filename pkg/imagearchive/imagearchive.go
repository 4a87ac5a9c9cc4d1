// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package imagearchive reads the metadata of an extracted `docker save` archive: the
// "manifest.json" index, the image config, and the locations of the layer tarballs.
package imagearchive

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"
	ociv1 "github.com/google/go-containerregistry/pkg/v1"
	ociv1tarball "github.com/google/go-containerregistry/pkg/v1/tarball"
)

const manifestFile = "manifest.json"

// ManifestCardinalityError is returned when manifest.json does not contain exactly one image.
type ManifestCardinalityError struct {
	Count int
}

func (e *ManifestCardinalityError) Error() string {
	return fmt.Sprintf("expected exactly one manifest in %s, got %d", manifestFile, e.Count)
}

// Layer is a layer tarball inside of the extracted archive.
type Layer struct {
	// Name is the path as written in the manifest.
	Name string
	// Path is the on-disk location, confined to the archive root.
	Path string
}

// Image is everything needed to build a root filesystem from an extracted archive.
type Image struct {
	Manifest ociv1tarball.Descriptor
	// ConfigFile is the full parsed config; Config is a shortcut to its runtime section.
	ConfigFile *ociv1.ConfigFile
	Config     ociv1.Config
	Layers     []Layer
}

func readJSON(root, name string, dst interface{}) error {
	filename, err := securejoin.SecureJoin(root, name)
	if err != nil {
		return err
	}
	bs, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(bs, dst); err != nil {
		return &fs.PathError{Op: "parse", Path: name, Err: err}
	}
	return nil
}

// ReadManifest reads the single manifest record from the archive extracted at root.
func ReadManifest(root string) (ociv1tarball.Descriptor, error) {
	var manifest ociv1tarball.Manifest
	if err := readJSON(root, manifestFile, &manifest); err != nil {
		return ociv1tarball.Descriptor{}, fmt.Errorf("reading manifest: %w", err)
	}
	if len(manifest) != 1 {
		return ociv1tarball.Descriptor{}, &ManifestCardinalityError{Count: len(manifest)}
	}
	return manifest[0], nil
}

// ReadConfig reads the image config that ref (a path relative to root, as found in the manifest)
// refers to.  Fields missing from the config come back empty.
func ReadConfig(root, ref string) (*ociv1.ConfigFile, error) {
	if ref == "" {
		return nil, fmt.Errorf("reading config: manifest does not name a config file")
	}
	filename, err := securejoin.SecureJoin(root, ref)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	defer file.Close()
	cfg, err := ociv1.ParseConfigFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", &fs.PathError{Op: "parse", Path: ref, Err: err})
	}
	return cfg, nil
}

// Load reads the manifest and the config, and resolves the layer paths.
func Load(root string) (*Image, error) {
	manifest, err := ReadManifest(root)
	if err != nil {
		return nil, err
	}
	cfg, err := ReadConfig(root, manifest.Config)
	if err != nil {
		return nil, err
	}
	img := &Image{
		Manifest:   manifest,
		ConfigFile: cfg,
		Config:     cfg.Config,
	}
	for _, name := range manifest.Layers {
		layerPath, err := securejoin.SecureJoin(root, filepath.FromSlash(name))
		if err != nil {
			return nil, fmt.Errorf("resolving layer %q: %w", name, err)
		}
		img.Layers = append(img.Layers, Layer{
			Name: name,
			Path: layerPath,
		})
	}
	return img, nil
}
