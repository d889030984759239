// Package codec defines the WebAssembly binary-to-text codec contract and a
// build-time registry of codec backends.
package codec

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable: the codec could not be loaded.
	ErrUnavailable = errors.New("codec: unavailable")
	// ErrMalformed: the input is not a well-formed WebAssembly module.
	ErrMalformed = errors.New("codec: malformed module")
	ErrClosed    = errors.New("codec: closed")
)

// Options are the text rendering settings.
type Options struct {
	// FoldExprs renders nested expressions in folded form.
	FoldExprs bool
	// InlineExport places export names on the exported item instead of
	// listing separate export fields.
	InlineExport bool
	// DebugNames keeps the names recorded in the module's name section
	// instead of index-based names.
	DebugNames bool
}

// DefaultOptions are the settings the disassembler always uses.
var DefaultOptions = Options{FoldExprs: true, InlineExport: true, DebugNames: true}

// Codec converts a WebAssembly binary into text.
//
// A loaded Codec is safe for concurrent use. Close releases whatever the
// load acquired; Decode after Close returns ErrClosed.
type Codec interface {
	Decode(ctx context.Context, wasm []byte, opts Options) (string, error)
	Close() error
}
