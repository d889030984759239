package wazero

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/zkview/codec"
	"xdao.co/zkview/codec/codectest"
	"xdao.co/zkview/testkit"
)

func load(t *testing.T) *Codec {
	t.Helper()
	c, err := Load(context.Background(), Options{})
	require.NoError(t, err)
	return c
}

func TestConformance(t *testing.T) {
	codectest.RunCodecConformance(t, func(t *testing.T) codec.Codec { return load(t) })
}

func TestRender_Inline(t *testing.T) {
	c := load(t)
	defer c.Close()

	text, err := c.Decode(context.Background(), testkit.CalcWasm, codec.DefaultOptions)
	require.NoError(t, err)
	require.Equal(t, `(module $calc
  (import "env" "log" (func $log (type 1) (param i32)))
  (func $sum (export "add") (type 0) (param i32 i32) (result i32)
    (i32.add
      (local.get 0)
      (local.get 1)))
  (memory (;0;) (export "memory") 1)
)
`, text)
}

func TestRender_Separate(t *testing.T) {
	c := load(t)
	defer c.Close()

	text, err := c.Decode(context.Background(), testkit.CalcWasm, codec.Options{})
	require.NoError(t, err)
	require.Equal(t, `(module
  (import "env" "log" (func (;0;) (type 1) (param i32)))
  (func (;1;) (type 0) (param i32 i32) (result i32)
    local.get 0
    local.get 1
    i32.add)
  (memory (;0;) 1)
  (export "add" (func 1))
  (export "memory" (memory 0))
)
`, text)
}

// selectWasm has one unexported function (param i32) (result i32):
// local.get 0, if (result i32), i32.const 1, else, i32.const 2, end.
var selectWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x06, 0x01, 0x60, 0x01, 0x7f, 0x01, 0x7f,
	0x03, 0x02, 0x01, 0x00,
	0x0a, 0x0e, 0x01,
	0x0c, 0x00, 0x20, 0x00, 0x04, 0x7f, 0x41, 0x01, 0x05, 0x41, 0x02, 0x0b, 0x0b,
}

func TestRender_UnexportedControlFlow(t *testing.T) {
	c := load(t)
	defer c.Close()

	folded, err := c.Decode(context.Background(), selectWasm, codec.DefaultOptions)
	require.NoError(t, err)
	require.Equal(t, `(module
  (func (;0;) (type 0) (param i32) (result i32)
    (if (result i32)
      (local.get 0)
      (then
        (i32.const 1))
      (else
        (i32.const 2))))
)
`, folded)

	flat, err := c.Decode(context.Background(), selectWasm, codec.Options{})
	require.NoError(t, err)
	require.Equal(t, `(module
  (func (;0;) (type 0) (param i32) (result i32)
    local.get 0
    if (result i32)
      i32.const 1
    else
      i32.const 2
    end)
)
`, flat)
}

func TestFold_UnknownArityStaysFlat(t *testing.T) {
	// local.get 0; br_if 0; i32.const 1; i32.add
	code := []instr{
		{text: "local.get 0", pushes: 1},
		{text: "br_if 0", pops: -1, pushes: -1},
		{text: "i32.const 1", pushes: 1},
		{text: "i32.add", pops: 2, pushes: 1},
	}
	require.Equal(t, []string{
		"(local.get 0)",
		"(br_if 0)",
		"(i32.const 1)",
		"(i32.add)",
	}, foldedLines(code, ""))
}

func TestReader_SignedLEB(t *testing.T) {
	for _, tc := range []struct {
		in   []byte
		bits int
		want int64
	}{
		{[]byte{0x00}, 32, 0},
		{[]byte{0x7f}, 32, -1},
		{[]byte{0x40}, 33, -64},
		{[]byte{0xff, 0x00}, 32, 127},
		{[]byte{0x80, 0x7f}, 32, -128},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x07}, 32, math.MaxInt32},
		{[]byte{0x80, 0x80, 0x80, 0x80, 0x78}, 32, math.MinInt32},
	} {
		r := &reader{b: tc.in}
		got, err := r.sleb(tc.bits)
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "% x", tc.in)
	}

	_, err := (&reader{b: []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x00}}).sleb(32)
	require.Error(t, err)
}

func TestRegistered(t *testing.T) {
	require.Contains(t, codec.Names(codec.UsageCLI), "wazero")
	require.Contains(t, codec.Names(codec.UsageDaemon), "wazero")
	loadFn, err := codec.Loader("wazero", codec.UsageDaemon)
	require.NoError(t, err)
	c, err := loadFn(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Close())
}
