package disasm

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"xdao.co/zkview/codec"
	"xdao.co/zkview/model"
)

type State int

const (
	Idle State = iota
	LibraryLoading
	LibraryReady
	Fetching
	Decoding
	Done
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case LibraryLoading:
		return "library-loading"
	case LibraryReady:
		return "library-ready"
	case Fetching:
		return "fetching"
	case Decoding:
		return "decoding"
	case Done:
		return "done"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

var ErrMounted = errors.New("disasm: viewer already mounted")

// Fetcher retrieves a binary by content identifier.
type Fetcher interface {
	Fetch(ctx context.Context, id string) ([]byte, error)
}

// Snapshot is what a view renders. Anything but Done shows a placeholder.
type Snapshot struct {
	State State
	Text  string
	Err   error
}

func (s Snapshot) Ready() bool { return s.State == Done }

type ViewerOptions struct {
	// Codec defaults to codec.DefaultOptions.
	Codec  *codec.Options
	Logger *zerolog.Logger
}

// Viewer disassembles one target binary for the lifetime of a mount.
type Viewer struct {
	shared *Shared
	fetch  Fetcher
	target string
	opts   codec.Options
	log    zerolog.Logger

	mu     sync.Mutex
	snap   Snapshot
	token  uint64
	cancel context.CancelFunc
	done   chan struct{}
}

func NewViewer(shared *Shared, fetch Fetcher, target string, opts ViewerOptions) *Viewer {
	copts := codec.DefaultOptions
	if opts.Codec != nil {
		copts = *opts.Codec
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	done := make(chan struct{})
	close(done)
	return &Viewer{
		shared: shared,
		fetch:  fetch,
		target: target,
		opts:   copts,
		log:    log.With().Str("component", "disasm").Str("target", target).Logger(),
		done:   done,
	}
}

// Mount starts loading, fetching and decoding in the background.
func (v *Viewer) Mount(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		return ErrMounted
	}
	ctx, cancel := context.WithCancel(ctx)
	v.token++
	v.cancel = cancel
	v.done = make(chan struct{})
	v.snap = Snapshot{State: Idle}
	go v.run(ctx, v.token, v.done)
	return nil
}

// Unmount cancels in-flight work and resets the view. Results that arrive
// afterwards are dropped.
func (v *Viewer) Unmount() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel == nil {
		return
	}
	v.cancel()
	v.cancel = nil
	v.token++
	v.snap = Snapshot{State: Idle}
}

// Done is closed when the current mount's work has finished.
func (v *Viewer) Done() <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.done
}

func (v *Viewer) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap
}

// Wait blocks until the current mount settles or ctx ends.
func (v *Viewer) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case <-v.Done():
		return v.Snapshot(), nil
	case <-ctx.Done():
		return v.Snapshot(), ctx.Err()
	}
}

func (v *Viewer) run(ctx context.Context, token uint64, done chan struct{}) {
	defer close(done)

	v.set(token, Snapshot{State: LibraryLoading})
	h, err := v.shared.Acquire(ctx)
	if err != nil {
		v.fail(ctx, token, model.Wrap(model.ErrCodec, "load codec", err))
		return
	}
	defer h.Release()
	v.set(token, Snapshot{State: LibraryReady})

	v.set(token, Snapshot{State: Fetching})
	bin, err := v.fetch.Fetch(ctx, v.target)
	if err != nil {
		v.fail(ctx, token, model.Wrap(model.ErrCodec, "fetch binary", err))
		return
	}

	v.set(token, Snapshot{State: Decoding})
	text, err := Disassemble(ctx, h.Codec(), bin, v.opts)
	if err != nil {
		v.fail(ctx, token, err)
		return
	}
	v.set(token, Snapshot{State: Done, Text: text})
}

func (v *Viewer) set(token uint64, s Snapshot) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if token != v.token {
		return false
	}
	v.snap = s
	return true
}

func (v *Viewer) fail(ctx context.Context, token uint64, err error) {
	if ctx.Err() != nil {
		v.set(token, Snapshot{State: Error, Err: ctx.Err()})
		return
	}
	if v.set(token, Snapshot{State: Error, Err: err}) {
		v.log.Error().Err(err).Msg("disassembly failed")
	}
}
