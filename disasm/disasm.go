// Package disasm turns fetched WebAssembly binaries into text through a
// shared codec, and tracks each viewing as a cancellable state machine.
package disasm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"xdao.co/zkview/codec"
	"xdao.co/zkview/model"
)

var ErrEmptyOutput = errors.New("disasm: codec produced no text")

// Disassemble decodes bin with c. Codec errors and panics are returned as
// CODEC errors.
func Disassemble(ctx context.Context, c codec.Codec, bin []byte, opts codec.Options) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = model.Wrap(model.ErrCodec, "decode panicked", fmt.Errorf("%v", r))
		}
	}()

	out, err := c.Decode(ctx, bin, opts)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", model.Wrap(model.ErrCodec, "decode", err)
	}
	if strings.TrimSpace(out) == "" {
		return "", model.Wrap(model.ErrCodec, "decode", ErrEmptyOutput)
	}
	return out, nil
}
