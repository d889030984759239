package disasm

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"xdao.co/zkview/codec"
)

// Loader loads a codec. It is called at most once per generation.
type Loader func(ctx context.Context) (codec.Codec, error)

type SharedOptions struct {
	Logger *zerolog.Logger
}

// Shared is a lazily loaded, process-wide codec.
//
// Concurrent Acquire calls wait for the same load. The codec stays loaded
// while at least one Handle is held; releasing the last Handle closes it,
// and the next Acquire loads a new generation. A failed load is not
// memoized.
type Shared struct {
	load  Loader
	log   zerolog.Logger
	loads atomic.Int64

	mu  sync.Mutex
	gen *generation
}

type generation struct {
	done chan struct{}
	c    codec.Codec
	err  error
	refs int
}

func (g *generation) settled() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}

func NewShared(load Loader, opts SharedOptions) *Shared {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "disasm").Logger()
	}
	return &Shared{load: load, log: log}
}

// Loads reports how many times the loader has been invoked.
func (s *Shared) Loads() int64 { return s.loads.Load() }

// Acquire returns a handle to the loaded codec, starting a load if none is
// loaded or in flight. Cancelling ctx abandons the wait, not the load.
func (s *Shared) Acquire(ctx context.Context) (*Handle, error) {
	s.mu.Lock()
	g := s.gen
	if g == nil {
		g = &generation{done: make(chan struct{})}
		s.gen = g
		s.loads.Add(1)
		go s.run(context.WithoutCancel(ctx), g)
	}
	g.refs++
	s.mu.Unlock()

	select {
	case <-g.done:
	case <-ctx.Done():
		s.release(g)
		return nil, ctx.Err()
	}
	if g.err != nil {
		s.release(g)
		return nil, g.err
	}
	return &Handle{s: s, g: g}, nil
}

func (s *Shared) run(ctx context.Context, g *generation) {
	c, err := s.load(ctx)
	if err != nil {
		c = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	g.c, g.err = c, err
	if err != nil {
		s.log.Error().Err(err).Msg("codec load failed")
		s.retire(g)
	} else {
		s.log.Debug().Msg("codec loaded")
		if g.refs == 0 {
			s.retire(g)
			s.closeCodec(g)
		}
	}
	close(g.done)
}

func (s *Shared) release(g *generation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.refs--
	if g.refs > 0 || !g.settled() {
		return
	}
	s.retire(g)
	s.closeCodec(g)
}

// retire detaches g so the next Acquire starts over. Callers hold s.mu.
func (s *Shared) retire(g *generation) {
	if s.gen == g {
		s.gen = nil
	}
}

func (s *Shared) closeCodec(g *generation) {
	if g.c == nil {
		return
	}
	if err := g.c.Close(); err != nil {
		s.log.Warn().Err(err).Msg("codec close failed")
	}
	g.c = nil
	s.log.Debug().Msg("codec released")
}

// Handle is one reference to a loaded codec.
type Handle struct {
	s    *Shared
	g    *generation
	once sync.Once
}

func (h *Handle) Codec() codec.Codec { return h.g.c }

// Release drops the reference. It is safe to call more than once.
func (h *Handle) Release() {
	h.once.Do(func() { h.s.release(h.g) })
}
