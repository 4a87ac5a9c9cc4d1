// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package runscript generates the Apptainer/Singularity ".singularity.d/runscript" that emulates
// the Docker ENTRYPOINT/CMD semantics of an image.
//
// The effective command depends on the arguments passed at container start, so the decision is
// made by the generated script at run time, not at generation time:
//
//	| ENTRYPOINT | CMD     | args    | runs                  |
//	|------------|---------|---------|-----------------------|
//	| present    | absent  | none    | ENTRYPOINT            |
//	| present    | absent  | present | ENTRYPOINT + args     |
//	| absent     | present | none    | CMD                   |
//	| absent     | present | present | args                  |
//	| present    | present | none    | ENTRYPOINT + CMD      |
//	| present    | present | present | ENTRYPOINT + args     |
//	| absent     | absent  | present | args                  |
//	| absent     | absent  | none    | (error, exit 1)       |
//
// "Present" means a non-empty list.
//
// The last row differs from a bare `exec "$@"`, which would exit 0 having run nothing: the script
// prints "runscript: the image has no ENTRYPOINT or CMD, and no command was given" to stderr and
// exits 1.
package runscript

import (
	"context"
	"strings"

	"github.com/alessio/shellescape"
	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/datawire/dlib/dlog"

	"github.com/datawire/ociunpack/pkg/fsutil"
)

// Path is the location of the runscript, relative to the root filesystem.
const Path = ".singularity.d/runscript"

// Resolve returns the command that the generated script runs when started with args.
func Resolve(entrypoint, cmd, args []string) []string {
	var ret []string
	switch {
	case len(entrypoint) > 0 && len(args) > 0:
		ret = append(append(ret, entrypoint...), args...)
	case len(entrypoint) > 0:
		ret = append(append(ret, entrypoint...), cmd...)
	case len(args) > 0:
		ret = append(ret, args...)
	default:
		ret = append(ret, cmd...)
	}
	return ret
}

// wordList serializes argv such that `eval "set -- $VAR"` restores it exactly.
func wordList(argv []string) string {
	if len(argv) == 0 {
		return ""
	}
	return shellescape.QuoteCommand(argv)
}

const body = `if [ -n "$OCI_ENTRYPOINT" ]; then
    if [ $# -gt 0 ]; then
        eval "set -- $OCI_ENTRYPOINT \"\$@\""
    else
        eval "set -- $OCI_ENTRYPOINT $OCI_CMD"
    fi
elif [ $# -eq 0 ] && [ -n "$OCI_CMD" ]; then
    eval "set -- $OCI_CMD"
fi
if [ $# -eq 0 ]; then
    echo "runscript: the image has no ENTRYPOINT or CMD, and no command was given" >&2
    exit 1
fi
exec "$@"
`

// Generate returns the text of a POSIX sh runscript for the given ENTRYPOINT and CMD.
func Generate(entrypoint, cmd []string) []byte {
	var ret strings.Builder
	ret.WriteString("#!/bin/sh\n")
	ret.WriteString("OCI_ENTRYPOINT=" + shellescape.Quote(wordList(entrypoint)) + "\n")
	ret.WriteString("OCI_CMD=" + shellescape.Quote(wordList(cmd)) + "\n")
	ret.WriteString(body)
	return []byte(ret.String())
}

// Write generates the runscript and writes it in to the root filesystem at root.
func Write(ctx context.Context, root string, entrypoint, cmd []string) error {
	filename, err := securejoin.SecureJoin(root, Path)
	if err != nil {
		return err
	}
	dlog.Infof(ctx, "generating runscript at %s", filename)
	return fsutil.WriteFileSync(filename, Generate(entrypoint, cmd), 0o755)
}
