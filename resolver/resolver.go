// Package resolver turns an image CID into its manifest and artifact files
// with a two-hop lookup: a directory listing, then the manifest content.
//
// Resolution fails soft. Every failure is reported as a model.CodedError
// with code NOT_FOUND or TRANSIENT_IO, both of which model.IsNotFound
// accepts. Nothing is retried.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"xdao.co/zkview/cidutil"
	"xdao.co/zkview/gateway"
	"xdao.co/zkview/model"
)

// DefaultExpectedLinks is the directory shape of a published image: the
// manifest plus the two artifact files it references.
const DefaultExpectedLinks = 3

// Source is the subset of the content network the resolver needs.
type Source interface {
	Ls(ctx context.Context, id string) (*gateway.Listing, error)
	Cat(ctx context.Context, id string) ([]byte, error)
}

type Options struct {
	// ExpectedLinks is the exact number of directory entries an image must
	// have. Zero means DefaultExpectedLinks; a negative value disables the check.
	ExpectedLinks int
	// ManifestName defaults to model.ManifestName.
	ManifestName string
	Logger       *zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.ExpectedLinks == 0 {
		o.ExpectedLinks = DefaultExpectedLinks
	}
	if o.ManifestName == "" {
		o.ManifestName = model.ManifestName
	}
	return o
}

// Image is a resolved compute image.
type Image struct {
	ID       string
	Manifest model.Manifest
	// ManifestLink is the directory entry the manifest was read from.
	ManifestLink gateway.Link
	// Files are the directory entries other than the manifest, in listing order.
	Files []gateway.Link
}

// File finds an artifact by the path the manifest uses for it.
func (img *Image) File(path string) (gateway.Link, bool) {
	name := model.CleanPath(path)
	if name == "" {
		return gateway.Link{}, false
	}
	for _, f := range img.Files {
		if model.CleanPath(f.Name) == name {
			return f, true
		}
	}
	return gateway.Link{}, false
}

func (img *Image) WasmFile() (gateway.Link, bool) { return img.File(img.Manifest.WasmPath) }

func (img *Image) ElfFile() (gateway.Link, bool) { return img.File(img.Manifest.ElfPath) }

type Resolver struct {
	src  Source
	opts Options
	log  zerolog.Logger
}

func New(src Source, opts Options) *Resolver {
	opts = opts.withDefaults()
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "resolver").Logger()
	}
	return &Resolver{src: src, opts: opts, log: log}
}

// Resolve lists imageID, checks the directory shape, partitions the manifest
// from the artifact files and fetches and parses the manifest.
func (r *Resolver) Resolve(ctx context.Context, imageID string) (*Image, error) {
	if r == nil || r.src == nil {
		return nil, model.NewError(model.ErrInternal, "resolver: missing source")
	}
	if _, err := cidutil.Parse(imageID); err != nil {
		return nil, model.Wrap(model.ErrNotFound, "invalid image id", err)
	}
	log := r.log.With().Str("image", imageID).Logger()

	listing, err := r.src.Ls(ctx, imageID)
	if err != nil {
		log.Debug().Err(err).Msg("listing failed")
		return nil, fetchError("directory listing failed", err)
	}

	links, err := r.checkShape(listing)
	if err != nil {
		log.Debug().Err(err).Msg("unexpected directory shape")
		return nil, model.Wrap(model.ErrNotFound, "unexpected directory shape", err)
	}

	manifestLink, files := partition(links, r.opts.ManifestName)
	if manifestLink == nil {
		log.Debug().Msg("no manifest entry")
		return nil, model.NewError(model.ErrNotFound, fmt.Sprintf("%s missing", r.opts.ManifestName))
	}

	raw, err := r.src.Cat(ctx, manifestLink.Hash)
	if err != nil {
		log.Debug().Err(err).Str("manifest", manifestLink.Hash).Msg("manifest fetch failed")
		return nil, fetchError("manifest fetch failed", err)
	}
	m, err := model.ParseManifest(raw)
	if err != nil {
		log.Debug().Err(err).Msg("manifest parse failed")
		return nil, model.Wrap(model.ErrNotFound, "manifest parse failed", err)
	}

	return &Image{ID: imageID, Manifest: *m, ManifestLink: *manifestLink, Files: files}, nil
}

func (r *Resolver) checkShape(l *gateway.Listing) ([]gateway.Link, error) {
	if l == nil || len(l.Objects) != 1 {
		n := 0
		if l != nil {
			n = len(l.Objects)
		}
		return nil, fmt.Errorf("expected 1 object, got %d", n)
	}
	links := l.Objects[0].Links
	if r.opts.ExpectedLinks > 0 && len(links) != r.opts.ExpectedLinks {
		return nil, fmt.Errorf("expected %d links, got %d", r.opts.ExpectedLinks, len(links))
	}
	return links, nil
}

// partition returns the first entry named manifestName and every entry not
// carrying that name.
func partition(links []gateway.Link, manifestName string) (*gateway.Link, []gateway.Link) {
	var manifest *gateway.Link
	files := make([]gateway.Link, 0, len(links))
	for i := range links {
		if links[i].Name == manifestName {
			if manifest == nil {
				manifest = &links[i]
			}
			continue
		}
		files = append(files, links[i])
	}
	return manifest, files
}

func fetchError(msg string, err error) *model.CodedError {
	if gateway.IsTransient(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return model.Wrap(model.ErrTransientIO, msg, err)
	}
	return model.Wrap(model.ErrNotFound, msg, err)
}
