package rpc

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/zkview/codec"
	"xdao.co/zkview/codec/wazero"
	"xdao.co/zkview/disasm"
	"xdao.co/zkview/explorer"
	"xdao.co/zkview/ident"
	"xdao.co/zkview/model"
	"xdao.co/zkview/sessions"
	"xdao.co/zkview/testkit"
)

const sessionID = "123e4567-e89b-12d3-a456-426614174000"

type harness struct {
	gw      *testkit.Gateway
	backend *testkit.Backend
	client  *Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gw := testkit.NewGateway(t)
	backend := testkit.NewBackend(t)
	ex := explorer.New(explorer.Options{
		Gateway:  gw.Client(),
		Sessions: sessions.New(sessions.Options{BaseURL: backend.URL()}),
		Codec: disasm.NewShared(func(ctx context.Context) (codec.Codec, error) {
			c, err := wazero.Load(ctx, wazero.Options{})
			if err != nil {
				return nil, err
			}
			return c, nil
		}, disasm.SharedOptions{}),
	})

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterExplorerServer(srv, &Server{Explorer: ex, DisassembleTimeout: 10 * time.Second})
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	client := NewClient(cc)
	client.Timeout = 10 * time.Second
	t.Cleanup(func() { _ = client.Close() })

	return &harness{gw: gw, backend: backend, client: client}
}

func TestClassify(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c, err := h.client.Classify(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, ident.KindSession, c.Kind)
	require.Equal(t, "/sessions/"+sessionID, c.Route)

	c, err = h.client.Classify(ctx, "nope")
	require.NoError(t, err)
	require.Equal(t, ident.KindNone, c.Kind)
	require.Empty(t, c.Route)
}

func TestResolveImageAndDisassemble(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	img := h.gw.PublishImage(testkit.DefaultManifest, testkit.CalcWasm, []byte("\x7fELF"))
	h.backend.Add(model.ProofRecord{SessionID: sessionID, ImageCID: img.ID, Status: model.StatusPreparing, CreatedAt: "2024-05-01T10:00:00Z"})

	got, err := h.client.ResolveImage(ctx, img.ID)
	require.NoError(t, err)
	require.Equal(t, img.ID, got.ID)
	require.Equal(t, "U32, U32", got.Manifest.Arguments())
	require.Equal(t, img.ManifestCID, got.ManifestLink.Hash)
	require.Len(t, got.Files, 2)
	require.Len(t, got.Sessions, 1)
	require.Equal(t, model.StatusPreparing, got.Sessions[0].Status)

	recs, err := h.client.ListSessions(ctx, img.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	text, err := h.client.Disassemble(ctx, img.ID)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(text, "(module"))
	require.Contains(t, text, `"add"`)
	require.Contains(t, text, "(i32.add")
}

func TestErrorMapping(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.client.GetSession(ctx, sessionID)
	require.Equal(t, model.ErrNotFound, model.CodeOf(err))
	require.True(t, model.IsNotFound(err))

	_, err = h.client.GetSession(ctx, "not-a-session")
	require.True(t, model.IsValidation(err))

	_, err = h.client.ResolveImage(ctx, "bafybeibdzwn5cu23rk4wamjlz2zj6v6qrk7juyrn6qxye3gx3hl5psfdvy")
	require.True(t, model.IsNotFound(err))

	recs, err := h.client.ListSessions(ctx, "bafybeibdzwn5cu23rk4wamjlz2zj6v6qrk7juyrn6qxye3gx3hl5psfdvy")
	require.NoError(t, err)
	require.Empty(t, recs)

	img := h.gw.PublishImage(testkit.DefaultManifest, testkit.TruncatedWasm, []byte("\x7fELF"))
	_, err = h.client.Disassemble(ctx, img.ID)
	require.True(t, model.IsCodec(err), "err=%v", err)
}

func TestGetSession(t *testing.T) {
	h := newHarness(t)
	h.backend.Add(model.ProofRecord{
		ID:          "proof:abc",
		SessionID:   sessionID,
		Status:      model.StatusCompleted,
		ReceiptCID:  "bafkreigh2akiscaildcqabsyg3dfr6chu3fgpregiymsck7e7aqa4s52zy",
		CreatedAt:   "2024-05-01T10:00:00Z",
		CompletedAt: "2024-05-01T10:01:05Z",
	})

	rec, err := h.client.GetSession(context.Background(), sessionID)
	require.NoError(t, err)
	require.Equal(t, model.RecordID("proof:abc"), rec.ID)
	require.Equal(t, "65s", rec.DurationLabel())
}

func TestServer_MissingExplorer(t *testing.T) {
	_, err := (&Server{}).GetSession(context.Background(), nil)
	require.Error(t, err)
}
