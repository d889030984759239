package main

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"xdao.co/zkview/codec"
	"xdao.co/zkview/codec/wazero"
	"xdao.co/zkview/disasm"
	"xdao.co/zkview/explorer"
	"xdao.co/zkview/model"
	"xdao.co/zkview/rpc"
	"xdao.co/zkview/sessions"
	"xdao.co/zkview/testkit"
)

// serve starts an Explorer daemon over the CLI's fakes on a loopback port.
func (c *cli) serve(t *testing.T) string {
	t.Helper()
	ex := explorer.New(explorer.Options{
		Gateway:  c.gw.Client(),
		Sessions: sessions.New(sessions.Options{BaseURL: c.backend.URL()}),
		Codec: disasm.NewShared(func(ctx context.Context) (codec.Codec, error) {
			wc, err := wazero.Load(ctx, wazero.Options{})
			if err != nil {
				return nil, err
			}
			return wc, nil
		}, disasm.SharedOptions{}),
	})
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpc.NewServer()
	rpc.RegisterExplorerServer(srv, &rpc.Server{Explorer: ex, DisassembleTimeout: 10 * time.Second})
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)
	return lis.Addr().String()
}

func TestRemote(t *testing.T) {
	c := newCLI(t)
	addr := c.serve(t)
	img := c.gw.PublishImage(testkit.DefaultManifest, testkit.CalcWasm, []byte("\x7fELF"))
	c.backend.Add(model.ProofRecord{SessionID: sessionID, ImageCID: img.ID, Status: model.StatusCompleted})

	code, out, errOut := c.run(t, "image", "--remote", addr, "--timeout", "10s", "--disasm", img.ID)
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "zkmain(U32, U32) -> U32")
	require.Contains(t, out, sessionID)
	require.Contains(t, out, "i32.add")

	code, out, errOut = c.run(t, "session", "--remote", addr, sessionID)
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "completed")

	code, out, errOut = c.run(t, "sessions", "--remote", addr, img.ID)
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, sessionID)

	code, _, errOut = c.run(t, "session", "--remote", addr, "00000000-0000-0000-0000-000000000000")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "not found")

	code, _, errOut = c.run(t, "image", "--remote", addr, "bafybeibdzwn5cu23rk4wamjlz2zj6v6qrk7juyrn6qxye3gx3hl5psfdvy")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "not found")
}
