// Package testkit provides in-memory stand-ins for the content network and
// the proof backend, served over httptest, plus WASM fixtures.
package testkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"xdao.co/zkview/cidutil"
	"xdao.co/zkview/gateway"
)

// Gateway is a fake IPFS HTTP API plus path gateway.
//
//	{URL}/api/v0/ls/{cid}
//	{URL}/api/v0/cat/{cid}
//	{URL}/ipfs/{cid}
type Gateway struct {
	Server *httptest.Server

	mu       sync.Mutex
	blobs    map[string][]byte
	listings map[string][]byte
	failures map[string]int
	requests []string
}

func NewGateway(t testing.TB) *Gateway {
	t.Helper()
	g := &Gateway{
		blobs:    map[string][]byte{},
		listings: map[string][]byte{},
		failures: map[string]int{},
	}
	g.Server = httptest.NewServer(http.HandlerFunc(g.serve))
	t.Cleanup(g.Server.Close)
	return g
}

func (g *Gateway) APIURL() string     { return g.Server.URL + "/api/v0" }
func (g *Gateway) GatewayURL() string { return g.Server.URL + "/ipfs/{cid}" }

func (g *Gateway) Client() *gateway.Client {
	return gateway.New(gateway.Options{APIURL: g.APIURL(), GatewayURL: g.GatewayURL()})
}

// Put stores a raw block and returns its CIDv1 (raw, sha2-256).
func (g *Gateway) Put(data []byte) string {
	id := cidutil.CIDv1RawSHA256(data)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.blobs[id] = append([]byte(nil), data...)
	return id
}

// PutDir stores a directory listing with the given links and returns a
// dag-pb CIDv1 for it.
func (g *Gateway) PutDir(links ...gateway.Link) string {
	body, err := json.Marshal(links)
	if err != nil {
		panic(err)
	}
	sum, err := multihash.Sum(body, multihash.SHA2_256, -1)
	if err != nil {
		panic(err)
	}
	id := cid.NewCidV1(cid.DagProtobuf, sum).String()
	listing, err := json.Marshal(gateway.Listing{Objects: []gateway.Object{{Hash: id, Links: links}}})
	if err != nil {
		panic(err)
	}
	g.SetListing(id, listing)
	return id
}

// SetListing serves raw as the "ls" answer for id.
func (g *Gateway) SetListing(id string, raw []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listings[id] = raw
}

// Fail makes every request whose path has the given suffix answer status.
func (g *Gateway) Fail(pathSuffix string, status int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[pathSuffix] = status
}

// Requests returns the paths served so far.
func (g *Gateway) Requests() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.requests...)
}

func (g *Gateway) serve(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	g.requests = append(g.requests, r.URL.Path)
	for suffix, status := range g.failures {
		if strings.HasSuffix(r.URL.Path, suffix) {
			g.mu.Unlock()
			http.Error(w, http.StatusText(status), status)
			return
		}
	}
	g.mu.Unlock()

	switch {
	case strings.HasPrefix(r.URL.Path, "/api/v0/ls/"):
		g.mu.Lock()
		b, ok := g.listings[strings.TrimPrefix(r.URL.Path, "/api/v0/ls/")]
		g.mu.Unlock()
		if !ok {
			kuboError(w, "merkledag: not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	case strings.HasPrefix(r.URL.Path, "/api/v0/cat/"):
		g.writeBlob(w, strings.TrimPrefix(r.URL.Path, "/api/v0/cat/"), true)
	case strings.HasPrefix(r.URL.Path, "/ipfs/"):
		g.writeBlob(w, strings.TrimPrefix(r.URL.Path, "/ipfs/"), false)
	default:
		http.NotFound(w, r)
	}
}

func (g *Gateway) writeBlob(w http.ResponseWriter, id string, api bool) {
	g.mu.Lock()
	b, ok := g.blobs[id]
	g.mu.Unlock()
	if !ok {
		if api {
			kuboError(w, "block was not found locally (offline): ipld: could not find "+id)
			return
		}
		http.NotFound(w, nil)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(b)
}

func kuboError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]any{"Message": msg, "Code": 0, "Type": "error"})
}

// Image is a published compute image fixture.
type Image struct {
	ID          string
	ManifestCID string
	WasmCID     string
	ElfCID      string
}

// PublishImage stores manifest, module.wasm and guest.elf and a directory
// listing that references all three. An empty wasm skips the WASM entry.
func (g *Gateway) PublishImage(manifest string, wasm, elf []byte) Image {
	img := Image{ManifestCID: g.Put([]byte(manifest)), ElfCID: g.Put(elf)}
	links := []gateway.Link{{Name: "manifest.json", Hash: img.ManifestCID, Size: uint64(len(manifest)), Type: 2}}
	if len(wasm) > 0 {
		img.WasmCID = g.Put(wasm)
		links = append(links, gateway.Link{Name: "module.wasm", Hash: img.WasmCID, Size: uint64(len(wasm)), Type: 2})
	}
	links = append(links, gateway.Link{Name: "guest.elf", Hash: img.ElfCID, Size: uint64(len(elf)), Type: 2})
	img.ID = g.PutDir(links...)
	return img
}

// DefaultManifest is a WASM image manifest with two U32 arguments.
const DefaultManifest = `{
	"wasm_path": "./module.wasm",
	"elf_path": "./guest.elf",
	"elf_id": "5f0c8e1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6",
	"argument_type": ["U32", "U32"],
	"result_type": "U32"
}`
