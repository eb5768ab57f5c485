// Package gvas reads and surgically edits the versioned property-archive
// save format: a typed header followed by a stream of named, sized property
// records. The package never interprets game semantics; it exposes the
// framing (header, record boundaries, length-prefixed strings) and a patch
// engine that rewrites string values without breaking that framing.
package gvas

import "errors"

var (
	// ErrFormat reports a bad magic value or a buffer too short to hold the
	// structure being parsed.
	ErrFormat = errors.New("gvas: invalid format")

	// ErrOutOfRange reports a computed offset or size that exceeds the
	// buffer bounds.
	ErrOutOfRange = errors.New("gvas: offset out of range")
)
