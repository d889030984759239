// Package codectest is a conformance suite for codec.Codec implementations.
package codectest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"xdao.co/zkview/codec"
	"xdao.co/zkview/testkit"
)

// NewCodec loads a fresh codec for a test. The suite closes it.
type NewCodec func(t *testing.T) codec.Codec

func RunCodecConformance(t *testing.T, newCodec NewCodec) {
	t.Helper()

	t.Run("DecodeWellFormed", func(t *testing.T) {
		c := newCodec(t)
		defer c.Close()

		text, err := c.Decode(context.Background(), testkit.CalcWasm, codec.DefaultOptions)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if strings.TrimSpace(text) == "" {
			t.Fatalf("Decode returned empty text")
		}
		if !strings.HasPrefix(strings.TrimSpace(text), "(module") {
			t.Fatalf("Decode output is not a module: %q", text)
		}
		for _, want := range []string{`"add"`, "$sum", "local.get", "i32.add"} {
			if !strings.Contains(text, want) {
				t.Fatalf("Decode output missing %q:\n%s", want, text)
			}
		}
	})

	t.Run("FoldExprs", func(t *testing.T) {
		c := newCodec(t)
		defer c.Close()

		flatOpts := codec.DefaultOptions
		flatOpts.FoldExprs = false
		folded, err := c.Decode(context.Background(), testkit.CalcWasm, codec.DefaultOptions)
		if err != nil {
			t.Fatalf("Decode folded failed: %v", err)
		}
		flat, err := c.Decode(context.Background(), testkit.CalcWasm, flatOpts)
		if err != nil {
			t.Fatalf("Decode flat failed: %v", err)
		}
		if folded == flat {
			t.Fatalf("FoldExprs did not change the output:\n%s", flat)
		}
		if !strings.Contains(folded, "(i32.add") {
			t.Fatalf("folded output has no folded i32.add:\n%s", folded)
		}
		if !strings.Contains(flat, "i32.add") || strings.Contains(flat, "(i32.add") {
			t.Fatalf("flat output should list i32.add unfolded:\n%s", flat)
		}
	})

	t.Run("DecodeEmptyModule", func(t *testing.T) {
		c := newCodec(t)
		defer c.Close()

		text, err := c.Decode(context.Background(), testkit.EmptyWasm, codec.DefaultOptions)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if !strings.HasPrefix(strings.TrimSpace(text), "(module") {
			t.Fatalf("Decode output is not a module: %q", text)
		}
	})

	t.Run("RejectTruncated", func(t *testing.T) {
		c := newCodec(t)
		defer c.Close()

		for _, bad := range [][]byte{testkit.TruncatedWasm, []byte("not wasm at all"), nil} {
			_, err := c.Decode(context.Background(), bad, codec.DefaultOptions)
			if !errors.Is(err, codec.ErrMalformed) {
				t.Fatalf("Decode(%q): got err=%v want ErrMalformed", bad, err)
			}
		}
	})

	t.Run("DecodeAfterClose", func(t *testing.T) {
		c := newCodec(t)
		if err := c.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if _, err := c.Decode(context.Background(), testkit.CalcWasm, codec.DefaultOptions); !errors.Is(err, codec.ErrClosed) {
			t.Fatalf("Decode after Close: got err=%v want ErrClosed", err)
		}
		if err := c.Close(); err != nil {
			t.Fatalf("second Close failed: %v", err)
		}
	})
}
