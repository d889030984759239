package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseManifest_Defaults(t *testing.T) {
	m, err := ParseManifest([]byte(`{
		"elf_path": "./guest.elf",
		"elf_id": "ab12",
		"argument_type": ["U32", "U32"],
		"result_type": "U32"
	}`))
	require.NoError(t, err)
	require.Equal(t, DefaultMethod, m.Method)
	require.Equal(t, "U32, U32", m.Arguments())
	require.Equal(t, "zkmain(U32, U32) -> U32", m.Signature())
	require.False(t, m.HasWasm())
	require.Equal(t, "ELF Only", m.Mode())
}

func TestParseManifest_ElfIDWords(t *testing.T) {
	m, err := ParseManifest([]byte(`{
		"wasm_path": "./module.wasm",
		"elf_path": "./guest.elf",
		"elf_id": [1, 2, 3, 4, 5, 6, 7, 4294967295],
		"method": "run",
		"argument_type": [],
		"result_type": "I32"
	}`))
	require.NoError(t, err)
	require.Equal(t, "run", m.Method)
	require.Equal(t, "WASM + Wasmi Interpreter", m.Mode())
	require.Equal(t,
		"01000000020000000300000004000000050000000600000007000000ffffffff",
		m.ElfID)
}

func TestParseManifest_Rejects(t *testing.T) {
	for _, in := range []string{``, `null`, `[]`, `"x"`, `{"argument_type": "U32"}`, `{"elf_id": true}`} {
		_, err := ParseManifest([]byte(in))
		require.Error(t, err, "input %q", in)
	}
}

func TestCleanPath(t *testing.T) {
	require.Equal(t, "module.wasm", CleanPath("./module.wasm"))
	require.Equal(t, "dir/a.elf", CleanPath("././dir/a.elf"))
	require.Equal(t, "a.elf", CleanPath("a.elf"))
}

func TestProofRecord_Decode(t *testing.T) {
	var recs []ProofRecord
	err := json.Unmarshal([]byte(`[
		{
			"id": {"tb": "session", "id": {"String": "x1"}},
			"session_id": "123e4567-e89b-12d3-a456-426614174000",
			"image_cid": "bafy",
			"status": "InProgress",
			"receipt_cid": null,
			"created_at": "2024-01-02T03:04:05.123456Z",
			"completed_at": null
		},
		{
			"id": "session:x2",
			"session_id": "s2",
			"status": "completed",
			"receipt_cid": "bafkreigh2akiscaildcqabsyg3dfr6chu3fgpregiymsck7e7aqa4s52zy",
			"created_at": "2024-01-02T03:04:05Z",
			"completed_at": "2024-01-02T03:05:10.900Z"
		}
	]`), &recs)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	require.Equal(t, RecordID("session:x1"), recs[0].ID)
	require.Equal(t, StatusInProgress, recs[0].Status)
	require.False(t, recs[0].Status.Terminal())
	require.Equal(t, "N/A", recs[0].DurationLabel())
	require.Equal(t, "N/A", recs[0].ReceiptLabel())
	require.Equal(t, "Jan 2, 2024 3:04 AM", recs[0].StartLabel())

	require.Equal(t, RecordID("session:x2"), recs[1].ID)
	require.True(t, recs[1].Status.Terminal())
	require.Equal(t, "65s", recs[1].DurationLabel())
	d, ok := recs[1].Duration()
	require.True(t, ok)
	require.Equal(t, 65*time.Second, d)
	require.Equal(t, "bafkreig ... qa4s52zy", recs[1].ReceiptLabel())
}

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"Preparing":   StatusPreparing,
		"in_progress": StatusInProgress,
		"in-progress": StatusInProgress,
		"TimedOut":    StatusTimedOut,
		"Cancelled":   StatusCancelled,
		"FAILED":      StatusFailed,
	}
	for in, want := range cases {
		got, ok := ParseStatus(in)
		require.True(t, ok, in)
		require.Equal(t, want, got, in)
	}
	got, ok := ParseStatus("Exploded")
	require.False(t, ok)
	require.Equal(t, Status("exploded"), got)
}

func TestShortenString(t *testing.T) {
	require.Equal(t, "short", ShortenString("short"))
	require.Equal(t, "123456789012", ShortenString("123456789012"))
	require.Equal(t, "12345678 ... 67890abc", ShortenString("1234567890abc_67890abc"))
}

func TestCodedErrors(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("resolve: %w", Wrap(ErrTransientIO, "listing unavailable", cause))

	require.Equal(t, ErrTransientIO, CodeOf(err))
	require.True(t, IsNotFound(err))
	require.ErrorIs(t, err, cause)
	require.False(t, IsValidation(err))

	require.True(t, IsNotFound(NewError(ErrNotFound, "gone")))
	require.False(t, IsNotFound(NewError(ErrCodec, "bad module")))
	require.True(t, IsCodec(NewError(ErrCodec, "bad module")))
	require.Equal(t, ErrInternal, CodeOf(errors.New("plain")))
	require.Equal(t, ErrorCode(""), CodeOf(nil))
	require.Equal(t, "NOT_FOUND: gone", NewError(ErrNotFound, "gone").Error())
}

func TestSnapshot_ProofRequest_JSONShape(t *testing.T) {
	req := ProofRequest{
		ImageCID:  "bafy-image",
		Arguments: []Argument{{Value: "1", ArgType: "U32"}, {Value: "2", ArgType: "U32"}},
	}
	b, err := json.Marshal(req)
	require.NoError(t, err)
	require.JSONEq(t,
		`{"image_cid":"bafy-image","arguments":[{"value":"1","arg_type":"U32"},{"value":"2","arg_type":"U32"}]}`,
		string(b))
}
