// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package envscript translates an image's ENV list in to an Apptainer/Singularity environment
// script (".singularity.d/env/10-<generator>.sh").
//
// Variables set by the image are defaults: a variable of the same name in the environment that
// the container is started from takes precedence.  PATH is the exception, and is always set to
// the image's value.
package envscript

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/alessio/shellescape"
	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/datawire/dlib/dlog"

	"github.com/datawire/ociunpack/pkg/fsutil"
)

// DefaultGenerator is the generator name used when none is given.
const DefaultGenerator = "docker2singularity"

// Path returns the location of the environment script for a generator, relative to the root
// filesystem.
func Path(generator string) string {
	return ".singularity.d/env/10-" + generator + ".sh"
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// singleQuote always quotes, even values that would not need it, so that PATH is visibly literal.
func singleQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// InvalidNameError is reported (as a warning) for ENV entries whose name cannot be exported by a
// POSIX shell.
type InvalidNameError struct {
	Entry string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("ENV entry %q: name is not a valid shell identifier", e.Entry)
}

// Line translates a single ENV entry in to a line of shell.
//
// The image's value is only assigned if the variable is unset or empty.  The value must not go
// inside of "${NAME:-...}"; bash outside of POSIX mode takes a lone ' there as an open quote.
func Line(entry string) (string, error) {
	name, value, hasValue := strings.Cut(entry, "=")
	if !identifier.MatchString(name) {
		return "", &InvalidNameError{Entry: entry}
	}
	switch {
	case !hasValue:
		return fmt.Sprintf(`export %s="${%s:-}"`, name, name), nil
	case name == "PATH":
		return fmt.Sprintf(`export %s=%s`, name, singleQuote(value)), nil
	default:
		return fmt.Sprintf(`[ -n "${%s:-}" ] || %s=%s; export %s`,
			name, name, shellescape.Quote(value), name), nil
	}
}

// Generate returns the text of the environment script.  Entries that cannot be translated are
// skipped, with a warning.  Repeated names each get a line, so the last one wins.
func Generate(ctx context.Context, env []string) []byte {
	var ret strings.Builder
	ret.WriteString("#!/bin/sh\n")
	for _, entry := range env {
		line, err := Line(entry)
		if err != nil {
			dlog.Warnf(ctx, "skipping: %v", err)
			continue
		}
		ret.WriteString(line)
		ret.WriteString("\n")
	}
	return []byte(ret.String())
}

// Write generates the environment script and writes it in to the root filesystem at root.  If
// generator is empty, DefaultGenerator is used.
func Write(ctx context.Context, root, generator string, env []string) error {
	if generator == "" {
		generator = DefaultGenerator
	}
	if strings.ContainsRune(generator, '/') {
		return fmt.Errorf("invalid generator name %q: must not contain %q", generator, "/")
	}
	filename, err := securejoin.SecureJoin(root, Path(generator))
	if err != nil {
		return err
	}
	dlog.Infof(ctx, "generating environment script at %s", filename)
	return fsutil.WriteFileSync(filename, Generate(ctx, env), 0o755)
}
