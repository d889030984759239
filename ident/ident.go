// Package ident classifies user input as a proof session identifier or a
// compute image identifier. Classification is pure and does no I/O.
package ident

import (
	"regexp"

	"xdao.co/zkview/cidutil"
)

type Kind string

const (
	KindNone    Kind = "none"
	KindSession Kind = "session"
	KindImage   Kind = "image"
)

var sessionPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Classification is the outcome of Classify.
type Classification struct {
	Input string
	Kind  Kind
	// Ambiguous is set when a session-shaped input would also parse as a
	// CID. The session reading still wins.
	Ambiguous bool
}

// IsSessionID reports whether s is a canonical hyphenated UUID.
func IsSessionID(s string) bool { return sessionPattern.MatchString(s) }

// IsImageID reports whether s parses as a content identifier.
func IsImageID(s string) bool { return cidutil.IsCID(s) }

// Classify tests the session grammar first; UUID-shaped input is a session
// even if it would also parse as a CID.
func Classify(input string) Classification {
	if IsSessionID(input) {
		return Classification{Input: input, Kind: KindSession, Ambiguous: IsImageID(input)}
	}
	if IsImageID(input) {
		return Classification{Input: input, Kind: KindImage}
	}
	return Classification{Input: input, Kind: KindNone}
}

// Navigable reports whether the input leads anywhere.
func (c Classification) Navigable() bool { return c.Kind != KindNone }

// Route is the page path for the classified input, or "" for KindNone.
func (c Classification) Route() string {
	switch c.Kind {
	case KindSession:
		return "/sessions/" + c.Input
	case KindImage:
		return "/images/" + c.Input
	default:
		return ""
	}
}
