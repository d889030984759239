package main

import (
	"context"
	"fmt"
	"io"

	"xdao.co/zkview/explorer"
	"xdao.co/zkview/resolver"
	"xdao.co/zkview/rpc"
)

// dialRemote connects to the zkviewd daemon named by --remote.
func dialRemote(c *commonFlags, errOut io.Writer) (*rpc.Client, int) {
	client, err := rpc.Dial(c.remote, rpc.DialOptions{Timeout: c.timeout})
	if err != nil {
		fmt.Fprintf(errOut, "dial %s: %v\n", c.remote, err)
		return nil, 1
	}
	client.Timeout = c.timeout
	return client, 0
}

func remoteImage(c *commonFlags, imageID string, showDisasm bool, out io.Writer, errOut io.Writer) int {
	client, code := dialRemote(c, errOut)
	if client == nil {
		return code
	}
	defer client.Close()

	ctx := context.Background()
	img, err := client.ResolveImage(ctx, imageID)
	if err != nil {
		return report(errOut, err)
	}
	v := &explorer.ImageView{
		Image: &resolver.Image{
			ID:           img.ID,
			Manifest:     img.Manifest,
			ManifestLink: img.ManifestLink,
			Files:        img.Files,
		},
		Sessions: img.Sessions,
	}
	if err := explorer.RenderImage(out, v); err != nil {
		fmt.Fprintf(errOut, "write: %v\n", err)
		return 1
	}
	if !showDisasm || !img.Manifest.HasWasm() {
		return 0
	}

	text, err := client.Disassemble(ctx, imageID)
	if err != nil {
		return report(errOut, err)
	}
	fmt.Fprintln(out)
	_, _ = io.WriteString(out, text)
	return 0
}

func remoteSession(c *commonFlags, sessionID string, out io.Writer, errOut io.Writer) int {
	client, code := dialRemote(c, errOut)
	if client == nil {
		return code
	}
	defer client.Close()

	rec, err := client.GetSession(context.Background(), sessionID)
	if err != nil {
		return report(errOut, err)
	}
	if err := explorer.RenderSession(out, &explorer.SessionView{Record: rec}); err != nil {
		fmt.Fprintf(errOut, "write: %v\n", err)
		return 1
	}
	return 0
}

func remoteSessions(c *commonFlags, imageID string, out io.Writer, errOut io.Writer) int {
	client, code := dialRemote(c, errOut)
	if client == nil {
		return code
	}
	defer client.Close()

	recs, err := client.ListSessions(context.Background(), imageID)
	if err != nil {
		return report(errOut, err)
	}
	if err := explorer.RenderSessions(out, recs); err != nil {
		fmt.Fprintf(errOut, "write: %v\n", err)
		return 1
	}
	return 0
}
