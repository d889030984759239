package sessions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/zkview/ident"
	"xdao.co/zkview/model"
	"xdao.co/zkview/testkit"
)

const (
	imageID   = "bafybeibdzwn5cu23rk4wamjlz2zj6v6qrk7juyrn6qxye3gx3hl5psfdvy"
	sessionID = "123e4567-e89b-12d3-a456-426614174000"
)

func unreachableURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	u := srv.URL
	srv.Close()
	return u
}

func TestByImage(t *testing.T) {
	b := testkit.NewBackend(t)
	b.Add(model.ProofRecord{ID: "session:1", SessionID: sessionID, ImageCID: imageID, Status: model.StatusCompleted})
	b.Add(model.ProofRecord{ID: "session:2", SessionID: "other", ImageCID: "bafy-other", Status: model.StatusPreparing})

	c := New(Options{BaseURL: b.URL()})
	recs := c.ByImage(context.Background(), imageID)
	require.Len(t, recs, 1)
	require.Equal(t, sessionID, recs[0].SessionID)

	headers := b.Headers()
	require.NotEmpty(t, headers)
	require.Equal(t, "no-cache, no-store", headers[0].Get("Cache-Control"))
	require.Equal(t, "no-cache", headers[0].Get("Pragma"))
}

func TestByImage_DegradesToEmpty(t *testing.T) {
	c := New(Options{BaseURL: unreachableURL(t)})
	recs := c.ByImage(context.Background(), imageID)
	require.NotNil(t, recs)
	require.Empty(t, recs)

	b := testkit.NewBackend(t)
	b.Fail("/by-image/"+imageID, http.StatusInternalServerError)
	recs = New(Options{BaseURL: b.URL()}).ByImage(context.Background(), imageID)
	require.NotNil(t, recs)
	require.Empty(t, recs)
}

func TestGet(t *testing.T) {
	b := testkit.NewBackend(t)
	b.Add(model.ProofRecord{ID: "session:1", SessionID: sessionID, ImageCID: imageID, Status: model.StatusInProgress})
	c := New(Options{BaseURL: b.URL()})

	rec, err := c.Get(context.Background(), sessionID)
	require.NoError(t, err)
	require.Equal(t, model.StatusInProgress, rec.Status)

	_, err = c.Get(context.Background(), "c0ffee00-0000-4000-8000-000000000000")
	require.True(t, model.IsNotFound(err))
	require.Equal(t, model.ErrNotFound, model.CodeOf(err))

	_, err = c.Get(context.Background(), "not-a-session")
	require.True(t, model.IsValidation(err))
}

func TestGet_Unreachable(t *testing.T) {
	c := New(Options{BaseURL: unreachableURL(t)})
	_, err := c.Get(context.Background(), sessionID)
	require.True(t, model.IsNotFound(err))
	require.Equal(t, model.ErrTransientIO, model.CodeOf(err))
}

func TestCreateAndVerify(t *testing.T) {
	b := testkit.NewBackend(t)
	c := New(Options{BaseURL: b.URL()})

	args, err := NewArguments([]string{"U32", "U32"}, []string{"3", "0004"})
	require.NoError(t, err)

	id, err := c.Create(context.Background(), imageID, args)
	require.NoError(t, err)
	require.True(t, ident.IsSessionID(id))

	created := b.Created()
	require.Len(t, created, 1)
	require.Equal(t, imageID, created[0].ImageCID)
	require.Equal(t, []model.Argument{{Value: "3", ArgType: "U32"}, {Value: "4", ArgType: "U32"}}, created[0].Arguments)

	rec, err := c.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, model.StatusPreparing, rec.Status)

	// Not completed yet: the backend refuses to verify.
	_, err = c.Verify(context.Background(), id)
	require.True(t, model.IsNotFound(err))

	b.Add(model.ProofRecord{SessionID: sessionID, ImageCID: imageID, Status: model.StatusCompleted, ReceiptCID: "bafk-receipt"})
	v, err := c.Verify(context.Background(), sessionID)
	require.NoError(t, err)
	require.True(t, v.Verified)
	require.JSONEq(t, "42", string(v.Result))
}

func TestCreate_Failures(t *testing.T) {
	b := testkit.NewBackend(t)
	b.Fail("/api/proofs", http.StatusInternalServerError)
	c := New(Options{BaseURL: b.URL()})

	_, err := c.Create(context.Background(), imageID, nil)
	require.Equal(t, model.ErrInternal, model.CodeOf(err))

	_, err = c.Create(context.Background(), "nope", nil)
	require.True(t, model.IsValidation(err))

	_, err = New(Options{BaseURL: unreachableURL(t)}).Create(context.Background(), imageID, nil)
	require.Equal(t, model.ErrTransientIO, model.CodeOf(err))
}

func TestNewArguments(t *testing.T) {
	types := []string{"U32", "I64"}
	for _, values := range [][]string{
		{"1"},
		{"1", "2", "3"},
		{"1", "0"},
		{"1", "-2"},
		{"1", "2.5"},
		{"1", ""},
		{"1", "abc"},
		{"1", "99999999999999999999999"},
	} {
		_, err := NewArguments(types, values)
		require.True(t, model.IsValidation(err), "values %q", values)
	}
	args, err := NewArguments(types, []string{"7", "12"})
	require.NoError(t, err)
	require.Equal(t, "I64", args[1].ArgType)
}
