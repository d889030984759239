package model

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DefaultMethod is the guest entry point used when a manifest omits "method".
const DefaultMethod = "zkmain"

// ManifestName is the directory entry that carries the image manifest.
const ManifestName = "manifest.json"

// Manifest describes a compute image: its binaries, entry point and
// argument/result types. It is immutable once parsed.
type Manifest struct {
	WasmPath     string   `json:"wasm_path,omitempty"`
	ElfPath      string   `json:"elf_path,omitempty"`
	ElfID        string   `json:"elf_id"`
	Method       string   `json:"method"`
	ArgumentType []string `json:"argument_type"`
	ResultType   string   `json:"result_type"`
}

type manifestJSON struct {
	WasmPath     *string         `json:"wasm_path"`
	ElfPath      *string         `json:"elf_path"`
	ElfID        json.RawMessage `json:"elf_id"`
	Method       *string         `json:"method"`
	ArgumentType []string        `json:"argument_type"`
	ResultType   string          `json:"result_type"`
}

// UnmarshalJSON accepts elf_id either as a hex string or as the eight
// little-endian u32 words a risc0 image digest serializes to.
func (m *Manifest) UnmarshalJSON(b []byte) error {
	var raw manifestJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	elfID, err := decodeElfID(raw.ElfID)
	if err != nil {
		return err
	}
	out := Manifest{
		ElfID:        elfID,
		Method:       DefaultMethod,
		ArgumentType: raw.ArgumentType,
		ResultType:   raw.ResultType,
	}
	if raw.WasmPath != nil {
		out.WasmPath = *raw.WasmPath
	}
	if raw.ElfPath != nil {
		out.ElfPath = *raw.ElfPath
	}
	if raw.Method != nil && *raw.Method != "" {
		out.Method = *raw.Method
	}
	if out.ArgumentType == nil {
		out.ArgumentType = []string{}
	}
	*m = out
	return nil
}

func decodeElfID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '[':
		var words []uint32
		if err := json.Unmarshal(raw, &words); err != nil {
			return "", fmt.Errorf("manifest: elf_id: %w", err)
		}
		buf := make([]byte, 4*len(words))
		for i, w := range words {
			binary.LittleEndian.PutUint32(buf[4*i:], w)
		}
		return hex.EncodeToString(buf), nil
	default:
		return "", errors.New("manifest: elf_id must be a string or an array of u32")
	}
}

// ParseManifest decodes a manifest document. Anything other than a JSON
// object is rejected.
func ParseManifest(b []byte) (*Manifest, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return nil, errors.New("manifest: expected a JSON object")
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return &m, nil
}

// HasWasm reports whether the image ships a WASM module next to its ELF.
func (m Manifest) HasWasm() bool { return m.WasmPath != "" }

// Mode is the execution mode shown for the image.
func (m Manifest) Mode() string {
	if m.HasWasm() {
		return "WASM + Wasmi Interpreter"
	}
	return "ELF Only"
}

// Arguments renders the argument types as a comma separated list.
func (m Manifest) Arguments() string { return strings.Join(m.ArgumentType, ", ") }

// Signature renders the entry point, e.g. "zkmain(U32, U32) -> U32".
func (m Manifest) Signature() string {
	method := m.Method
	if method == "" {
		method = DefaultMethod
	}
	sig := method + "(" + m.Arguments() + ")"
	if m.ResultType != "" {
		sig += " -> " + m.ResultType
	}
	return sig
}

// CleanPath strips the "./" prefix manifests use for sibling files.
func CleanPath(p string) string {
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}
