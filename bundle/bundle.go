// Package bundle exports resolved images as deterministic TAR archives and
// reads files back out of gzip'd image packages.
package bundle

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"xdao.co/zkview/cidutil"
	"xdao.co/zkview/gateway"
	"xdao.co/zkview/model"
	"xdao.co/zkview/resolver"
)

// FormatVersion is the current bundle index schema version.
const FormatVersion = 1

// IndexName is the root-level index entry. It sits outside the package
// directory, so ReadFile never matches it.
const IndexName = "index.json"

var (
	ErrFileNotFound = errors.New("bundle: file not found in archive")
	ErrInvalidEntry = errors.New("bundle: invalid entry")
)

var epoch0 = time.Unix(0, 0).UTC()

// Source reads raw content by CID.
type Source interface {
	Cat(ctx context.Context, id string) ([]byte, error)
}

type ExportOptions struct {
	// IncludeIndex controls whether index.json is included.
	IncludeIndex bool
	// Gzip compresses the TAR stream.
	Gzip bool
}

// Export writes the image's manifest and artifact files under a single
// top-level directory named by the image ID.
//
// Entry order is lexicographic and TAR headers are normalized, so the same
// image always produces the same bytes. Raw-codec content is verified
// against its CID.
func Export(ctx context.Context, w io.Writer, src Source, img *resolver.Image, opts ExportOptions) (err error) {
	if src == nil {
		return fmt.Errorf("bundle: nil source")
	}
	if img == nil || img.ID == "" {
		return fmt.Errorf("bundle: nil image")
	}

	links := append([]gateway.Link{img.ManifestLink}, img.Files...)
	sort.Slice(links, func(i, j int) bool { return links[i].Name < links[j].Name })

	out := w
	var zw *gzip.Writer
	if opts.Gzip {
		zw, err = gzip.NewWriterLevel(w, gzip.BestCompression)
		if err != nil {
			return err
		}
		out = zw
	}
	tw := tar.NewWriter(out)
	defer func() {
		if cerr := tw.Close(); err == nil {
			err = cerr
		}
		if zw != nil {
			if cerr := zw.Close(); err == nil {
				err = cerr
			}
		}
	}()

	entries := make([]indexEntry, 0, len(links))
	seen := map[string]struct{}{}
	for _, l := range links {
		name := cleanTarPath(model.CleanPath(l.Name))
		if name == "" || strings.Contains(name, "/") {
			return fmt.Errorf("%w: %q", ErrInvalidEntry, l.Name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate %q", ErrInvalidEntry, name)
		}
		seen[name] = struct{}{}

		id, perr := cidutil.Parse(l.Hash)
		if perr != nil {
			return fmt.Errorf("%w: %s: %v", gateway.ErrInvalidCID, name, perr)
		}
		b, ferr := src.Cat(ctx, l.Hash)
		if ferr != nil {
			return fmt.Errorf("bundle: fetch %s: %w", name, ferr)
		}
		if verr := cidutil.Verify(id, b); verr != nil {
			return fmt.Errorf("%w: %s", gateway.ErrCIDMismatch, name)
		}
		if werr := writeFile(tw, img.ID+"/"+name, b); werr != nil {
			return werr
		}
		entries = append(entries, indexEntry{Name: name, CID: l.Hash, Size: len(b)})
	}

	if opts.IncludeIndex {
		b, merr := marshalCanonicalIndexJSON(indexJSON{
			Version: FormatVersion,
			Image:   img.ID,
			Method:  img.Manifest.Method,
			Entries: entries,
		})
		if merr != nil {
			return merr
		}
		if werr := writeFile(tw, IndexName, b); werr != nil {
			return werr
		}
	}
	return nil
}

// ReadFile returns the content of path from a gzip'd TAR image package.
// Entry names are matched after their first path segment, so
// "<anything>/module.wasm" matches "module.wasm". A leading "./" on path
// is ignored.
func ReadFile(r io.Reader, path string) ([]byte, error) {
	path = model.CleanPath(path)
	if path == "" {
		return nil, ErrFileNotFound
	}
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		if err != nil {
			return nil, err
		}
		if h.Typeflag != tar.TypeReg {
			continue
		}
		_, rest, ok := strings.Cut(h.Name, "/")
		if !ok || rest == "" || rest != path {
			continue
		}
		return io.ReadAll(tr)
	}
}

// ReadManifest reads and parses the package's manifest.json.
func ReadManifest(archive []byte) (*model.Manifest, error) {
	b, err := ReadFile(bytes.NewReader(archive), model.ManifestName)
	if err != nil {
		return nil, err
	}
	return model.ParseManifest(b)
}

type indexJSON struct {
	Version int          `json:"version"`
	Image   string       `json:"image"`
	Method  string       `json:"method,omitempty"`
	Entries []indexEntry `json:"entries"`
}

type indexEntry struct {
	Name string `json:"name"`
	CID  string `json:"cid"`
	Size int    `json:"size"`
}

func marshalCanonicalIndexJSON(idx indexJSON) ([]byte, error) {
	// Structs and slices only, so encoding/json output is stable.
	b, err := json.Marshal(idx)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}
