package cidutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

var (
	ErrInvalid = errors.New("cidutil: invalid cid")
	// ErrMismatch is returned by Verify when bytes do not hash to the given CID.
	ErrMismatch = errors.New("cidutil: bytes do not match cid")
)

// Parse decodes s under the standard CID string rules (CIDv0 base58btc or
// any multibase-prefixed CIDv1). Unlike cid.Parse, "/ipfs/<cid>" paths and
// padded input are rejected.
func Parse(s string) (cid.Cid, error) {
	if s == "" || strings.TrimSpace(s) != s {
		return cid.Undef, ErrInvalid
	}
	id, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !id.Defined() {
		return cid.Undef, ErrInvalid
	}
	return id, nil
}

// IsCID reports whether s parses as a content identifier.
func IsCID(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// CIDv1RawSHA256 returns a CIDv1 string using the "raw" multicodec
// and a sha2-256 multihash.
func CIDv1RawSHA256(data []byte) string {
	id, err := CIDv1RawSHA256CID(data)
	if err != nil {
		return ""
	}
	return id.String()
}

// CIDv1RawSHA256CID returns a CIDv1 (raw + sha2-256) derived from data.
func CIDv1RawSHA256CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// Verifiable reports whether the bytes behind id can be checked locally.
// Only raw-codec CIDs address the payload bytes directly; dag-pb (UnixFS)
// CIDs address an encoded node instead.
func Verifiable(id cid.Cid) bool {
	return id.Defined() && id.Prefix().Codec == cid.Raw
}

// Verify checks data against a raw-codec CID by re-hashing it with the CID's
// own multihash parameters. Non-verifiable CIDs are accepted as-is.
func Verify(id cid.Cid, data []byte) error {
	if !Verifiable(id) {
		return nil
	}
	got, err := id.Prefix().Sum(data)
	if err != nil {
		return err
	}
	if !got.Equals(id) {
		return ErrMismatch
	}
	return nil
}
