package ident

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	imageID   = "bafybeibdzwn5cu23rk4wamjlz2zj6v6qrk7juyrn6qxye3gx3hl5psfdvy"
	sessionID = "123e4567-e89b-12d3-a456-426614174000"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		in    string
		want  Kind
		route string
	}{
		{sessionID, KindSession, "/sessions/" + sessionID},
		{strings.ToUpper(sessionID), KindSession, "/sessions/" + strings.ToUpper(sessionID)},
		{imageID, KindImage, "/images/" + imageID},
		{"QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG", KindImage, "/images/QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"},
		{"", KindNone, ""},
		{"hello", KindNone, ""},
		{"{" + sessionID + "}", KindNone, ""},
		{"urn:uuid:" + sessionID, KindNone, ""},
		{strings.ReplaceAll(sessionID, "-", ""), KindNone, ""},
		{sessionID + " ", KindNone, ""},
		{imageID[:len(imageID)-3], KindNone, ""},
	}
	for _, tc := range cases {
		got := Classify(tc.in)
		require.Equal(t, tc.want, got.Kind, "input %q", tc.in)
		require.Equal(t, tc.route, got.Route(), "input %q", tc.in)
		require.Equal(t, tc.want != KindNone, got.Navigable(), "input %q", tc.in)
	}
}

func TestClassify_SessionPrecedence(t *testing.T) {
	for i := 0; i < 200; i++ {
		id := uuid.NewString()
		c := Classify(id)
		require.Equal(t, KindSession, c.Kind, id)
		require.False(t, c.Ambiguous, id)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	for _, in := range []string{imageID, sessionID, "nope"} {
		require.Equal(t, Classify(in), Classify(in))
	}
}
