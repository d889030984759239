// Package explorer composes the image and session pages: it routes user
// input, gathers everything a page shows, and opens disassembly views.
package explorer

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"xdao.co/zkview/disasm"
	"xdao.co/zkview/gateway"
	"xdao.co/zkview/ident"
	"xdao.co/zkview/model"
	"xdao.co/zkview/resolver"
	"xdao.co/zkview/sessions"
)

type Options struct {
	Gateway  *gateway.Client
	Sessions *sessions.Client
	// Resolver defaults to a resolver over Gateway with default options.
	Resolver *resolver.Resolver
	// Codec is required only by OpenDisassembly.
	Codec  *disasm.Shared
	Logger *zerolog.Logger
}

var errNoSessions = model.NewError(model.ErrInternal, "no sessions client configured")

type Explorer struct {
	gw       *gateway.Client
	sessions *sessions.Client
	resolver *resolver.Resolver
	codec    *disasm.Shared
	logger   *zerolog.Logger
	log      zerolog.Logger
}

func New(opts Options) *Explorer {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "explorer").Logger()
	}
	r := opts.Resolver
	if r == nil {
		// A nil *gateway.Client must stay a nil Source.
		var src resolver.Source
		if opts.Gateway != nil {
			src = opts.Gateway
		}
		r = resolver.New(src, resolver.Options{Logger: opts.Logger})
	}
	return &Explorer{
		gw:       opts.Gateway,
		sessions: opts.Sessions,
		resolver: r,
		codec:    opts.Codec,
		logger:   opts.Logger,
		log:      log,
	}
}

// Route returns the page path for input, or false when input is neither a
// session nor an image identifier.
func Route(input string) (string, bool) {
	c := ident.Classify(input)
	if !c.Navigable() {
		return "", false
	}
	return c.Route(), true
}

// ImageView is everything the image page shows.
type ImageView struct {
	Image    *resolver.Image
	Sessions []model.ProofRecord
}

// ImageView resolves the image and lists its sessions concurrently. It
// returns once both lookups have settled.
func (e *Explorer) ImageView(ctx context.Context, imageID string) (*ImageView, error) {
	if !ident.IsImageID(imageID) {
		return nil, model.NewError(model.ErrValidation, "not an image identifier: "+imageID)
	}
	if e.sessions == nil {
		return nil, errNoSessions
	}

	var (
		g    errgroup.Group
		img  *resolver.Image
		recs []model.ProofRecord
	)
	g.Go(func() error {
		var err error
		img, err = e.resolver.Resolve(ctx, imageID)
		return err
	})
	g.Go(func() error {
		recs = e.sessions.ByImage(ctx, imageID)
		return nil
	})
	if err := g.Wait(); err != nil {
		e.log.Debug().Err(err).Str("image", imageID).Msg("image not found")
		return nil, err
	}
	return &ImageView{Image: img, Sessions: recs}, nil
}

// ImageSessions lists the sessions recorded for an image. Backend failures
// yield an empty list.
func (e *Explorer) ImageSessions(ctx context.Context, imageID string) ([]model.ProofRecord, error) {
	if !ident.IsImageID(imageID) {
		return nil, model.NewError(model.ErrValidation, "not an image identifier: "+imageID)
	}
	if e.sessions == nil {
		return nil, errNoSessions
	}
	return e.sessions.ByImage(ctx, imageID), nil
}

// SessionView is everything the session page shows.
type SessionView struct {
	Record *model.ProofRecord
}

// SessionView loads one session from the backend. It never touches the
// content network.
func (e *Explorer) SessionView(ctx context.Context, sessionID string) (*SessionView, error) {
	if !ident.IsSessionID(sessionID) {
		return nil, model.NewError(model.ErrValidation, "not a session identifier: "+sessionID)
	}
	if e.sessions == nil {
		return nil, errNoSessions
	}
	rec, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		e.log.Debug().Err(err).Str("session", sessionID).Msg("session not found")
		return nil, err
	}
	return &SessionView{Record: rec}, nil
}

// OpenDisassembly prepares a viewer for the image's WASM module. The caller
// mounts and unmounts it.
func (e *Explorer) OpenDisassembly(v *ImageView) (*disasm.Viewer, error) {
	if e.codec == nil {
		return nil, model.NewError(model.ErrInternal, "no codec configured")
	}
	if e.gw == nil {
		return nil, model.NewError(model.ErrInternal, "no gateway configured")
	}
	if v == nil || v.Image == nil {
		return nil, model.NewError(model.ErrInternal, "no image")
	}
	if !v.Image.Manifest.HasWasm() {
		return nil, model.NewError(model.ErrNotFound, "image has no wasm module")
	}
	f, ok := v.Image.WasmFile()
	if !ok {
		return nil, model.NewError(model.ErrNotFound, "wasm module "+v.Image.Manifest.WasmPath+" not in image listing")
	}
	return disasm.NewViewer(e.codec, e.gw, f.Hash, disasm.ViewerOptions{Logger: e.logger}), nil
}
