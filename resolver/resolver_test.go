package resolver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/zkview/gateway"
	"xdao.co/zkview/model"
	"xdao.co/zkview/testkit"
)

const imageID = "bafybeibdzwn5cu23rk4wamjlz2zj6v6qrk7juyrn6qxye3gx3hl5psfdvy"

func listing(t *testing.T, links ...gateway.Link) []byte {
	t.Helper()
	b, err := json.Marshal(gateway.Listing{Objects: []gateway.Object{{Links: links}}})
	require.NoError(t, err)
	return b
}

func TestResolve_EndToEnd(t *testing.T) {
	g := testkit.NewGateway(t)
	manifestCID := g.Put([]byte(`{"wasm_path":"./module.wasm","elf_path":"./guest.elf","elf_id":"ab","argument_type":["U32","U32"],"result_type":"U32"}`))
	wasmCID := g.Put(testkit.CalcWasm)
	elfCID := g.Put([]byte("\x7fELF"))
	g.SetListing(imageID, listing(t,
		gateway.Link{Name: "guest.elf", Hash: elfCID},
		gateway.Link{Name: "manifest.json", Hash: manifestCID},
		gateway.Link{Name: "module.wasm", Hash: wasmCID},
	))

	img, err := New(g.Client(), Options{}).Resolve(context.Background(), imageID)
	require.NoError(t, err)
	require.Equal(t, imageID, img.ID)
	require.Equal(t, "U32, U32", img.Manifest.Arguments())
	require.Equal(t, "U32", img.Manifest.ResultType)
	require.Equal(t, model.DefaultMethod, img.Manifest.Method)
	require.Equal(t, []gateway.Link{{Name: "guest.elf", Hash: elfCID}, {Name: "module.wasm", Hash: wasmCID}}, img.Files)

	wasm, ok := img.WasmFile()
	require.True(t, ok)
	require.Equal(t, wasmCID, wasm.Hash)
	elf, ok := img.ElfFile()
	require.True(t, ok)
	require.Equal(t, elfCID, elf.Hash)
}

func TestResolve_LinkCountPolicy(t *testing.T) {
	g := testkit.NewGateway(t)
	manifestCID := g.Put([]byte(testkit.DefaultManifest))
	r := New(g.Client(), Options{})

	for n := 0; n <= 5; n++ {
		if n == 3 {
			continue
		}
		links := []gateway.Link{}
		if n > 0 {
			links = append(links, gateway.Link{Name: "manifest.json", Hash: manifestCID})
		}
		for i := 1; i < n; i++ {
			links = append(links, gateway.Link{Name: "f", Hash: g.Put([]byte{byte(i)})})
		}
		id := g.PutDir(links...)
		_, err := r.Resolve(context.Background(), id)
		require.True(t, model.IsNotFound(err), "links=%d", n)
		require.Equal(t, model.ErrNotFound, model.CodeOf(err), "links=%d", n)
	}

	// The check can be relaxed.
	id := g.PutDir(gateway.Link{Name: "manifest.json", Hash: manifestCID})
	img, err := New(g.Client(), Options{ExpectedLinks: -1}).Resolve(context.Background(), id)
	require.NoError(t, err)
	require.Empty(t, img.Files)
}

func TestResolve_ShapeMismatch(t *testing.T) {
	g := testkit.NewGateway(t)
	r := New(g.Client(), Options{})
	for _, raw := range []string{
		`{"Objects":[]}`,
		`{}`,
		`{"Objects":[{"Links":[]},{"Links":[]}]}`,
		`[]`,
		`garbage`,
	} {
		g.SetListing(imageID, []byte(raw))
		_, err := r.Resolve(context.Background(), imageID)
		require.True(t, model.IsNotFound(err), "listing %s", raw)
	}
}

func TestResolve_MissingManifest(t *testing.T) {
	g := testkit.NewGateway(t)
	id := g.PutDir(
		gateway.Link{Name: "a.wasm", Hash: g.Put([]byte("a"))},
		gateway.Link{Name: "b.elf", Hash: g.Put([]byte("b"))},
		gateway.Link{Name: "readme", Hash: g.Put([]byte("c"))},
	)
	_, err := New(g.Client(), Options{}).Resolve(context.Background(), id)
	require.True(t, model.IsNotFound(err))

	// A manifest entry with an undefined hash fails the fetch, not the caller.
	id = g.PutDir(
		gateway.Link{Name: "manifest.json"},
		gateway.Link{Name: "b.elf", Hash: g.Put([]byte("b"))},
		gateway.Link{Name: "readme", Hash: g.Put([]byte("c"))},
	)
	_, err = New(g.Client(), Options{}).Resolve(context.Background(), id)
	require.True(t, model.IsNotFound(err))
}

func TestResolve_ManifestFailures(t *testing.T) {
	g := testkit.NewGateway(t)
	img := g.PublishImage(testkit.DefaultManifest, testkit.CalcWasm, []byte("elf"))
	r := New(g.Client(), Options{})

	_, err := r.Resolve(context.Background(), img.ID)
	require.NoError(t, err)

	g.Fail("/cat/"+img.ManifestCID, http.StatusNotFound)
	_, err = r.Resolve(context.Background(), img.ID)
	require.True(t, model.IsNotFound(err))
	require.Equal(t, model.ErrNotFound, model.CodeOf(err))

	bad := g.PublishImage(`{"argument_type": 7}`, testkit.CalcWasm, []byte("elf2"))
	_, err = r.Resolve(context.Background(), bad.ID)
	require.Equal(t, model.ErrNotFound, model.CodeOf(err))

	null := g.PublishImage(`null`, testkit.CalcWasm, []byte("elf3"))
	_, err = r.Resolve(context.Background(), null.ID)
	require.Equal(t, model.ErrNotFound, model.CodeOf(err))
}

func TestResolve_TransientAndInvalid(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	u := srv.URL
	srv.Close()

	r := New(gateway.New(gateway.Options{APIURL: u}), Options{})
	_, err := r.Resolve(context.Background(), imageID)
	require.True(t, model.IsNotFound(err))
	require.Equal(t, model.ErrTransientIO, model.CodeOf(err))

	_, err = r.Resolve(context.Background(), "123e4567-e89b-12d3-a456-426614174000")
	require.Equal(t, model.ErrNotFound, model.CodeOf(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := testkit.NewGateway(t)
	img := g.PublishImage(testkit.DefaultManifest, testkit.CalcWasm, []byte("elf"))
	_, err = New(g.Client(), Options{}).Resolve(ctx, img.ID)
	require.Equal(t, model.ErrTransientIO, model.CodeOf(err))
	require.ErrorIs(t, err, context.Canceled)
}
