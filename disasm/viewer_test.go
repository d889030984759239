package disasm

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"xdao.co/zkview/codec"
	"xdao.co/zkview/codec/wazero"
	"xdao.co/zkview/model"
	"xdao.co/zkview/testkit"
)

func wazeroShared() *Shared {
	return NewShared(func(ctx context.Context) (codec.Codec, error) {
		c, err := wazero.Load(ctx, wazero.Options{})
		if err != nil {
			return nil, err
		}
		return c, nil
	}, SharedOptions{})
}

func waitSettled(t *testing.T, v *Viewer) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	snap, err := v.Wait(ctx)
	require.NoError(t, err)
	return snap
}

func TestViewer_DisassemblesWellFormedModule(t *testing.T) {
	gw := testkit.NewGateway(t)
	id := gw.Put(testkit.CalcWasm)

	v := NewViewer(wazeroShared(), gw.Client(), id, ViewerOptions{})
	require.Equal(t, Idle, v.Snapshot().State)
	require.NoError(t, v.Mount(context.Background()))
	defer v.Unmount()

	snap := waitSettled(t, v)
	require.True(t, snap.Ready(), "state=%s err=%v", snap.State, snap.Err)
	require.NoError(t, snap.Err)
	require.True(t, strings.HasPrefix(snap.Text, "(module"))
	require.Contains(t, snap.Text, `"add"`)
	require.Contains(t, snap.Text, "(i32.add")

	require.ErrorIs(t, v.Mount(context.Background()), ErrMounted)
}

func TestViewer_CorruptModuleIsError(t *testing.T) {
	gw := testkit.NewGateway(t)
	id := gw.Put(testkit.TruncatedWasm)

	v := NewViewer(wazeroShared(), gw.Client(), id, ViewerOptions{})
	require.NoError(t, v.Mount(context.Background()))
	defer v.Unmount()

	snap := waitSettled(t, v)
	require.Equal(t, Error, snap.State)
	require.False(t, snap.Ready())
	require.Empty(t, snap.Text)
	require.True(t, model.IsCodec(snap.Err))
	require.ErrorIs(t, snap.Err, codec.ErrMalformed)
}

func TestViewer_FetchFailureIsError(t *testing.T) {
	gw := testkit.NewGateway(t)
	id := gw.Put(testkit.CalcWasm)
	gw.Fail(id, http.StatusNotFound)

	v := NewViewer(wazeroShared(), gw.Client(), id, ViewerOptions{})
	require.NoError(t, v.Mount(context.Background()))
	defer v.Unmount()

	snap := waitSettled(t, v)
	require.Equal(t, Error, snap.State)
	require.True(t, model.IsCodec(snap.Err))
}

func TestViewer_LoadFailureIsError(t *testing.T) {
	s := NewShared(func(ctx context.Context) (codec.Codec, error) {
		return nil, codec.ErrUnavailable
	}, SharedOptions{})
	v := NewViewer(s, blockingFetcher{}, "x", ViewerOptions{})
	require.NoError(t, v.Mount(context.Background()))
	defer v.Unmount()

	snap := waitSettled(t, v)
	require.Equal(t, Error, snap.State)
	require.ErrorIs(t, snap.Err, codec.ErrUnavailable)
}

type blockingFetcher struct {
	started chan struct{}
	release chan struct{}
}

// Fetch ignores cancellation so a result can arrive after Unmount.
func (f blockingFetcher) Fetch(ctx context.Context, id string) ([]byte, error) {
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return testkit.CalcWasm, nil
}

func TestViewer_UnmountDiscardsLateResult(t *testing.T) {
	f := blockingFetcher{started: make(chan struct{}), release: make(chan struct{})}
	c := &fakeCodec{text: "(module)"}
	s := NewShared(func(ctx context.Context) (codec.Codec, error) { return c, nil }, SharedOptions{})

	v := NewViewer(s, f, "x", ViewerOptions{})
	require.NoError(t, v.Mount(context.Background()))
	<-f.started
	require.Equal(t, Fetching, v.Snapshot().State)

	done := v.Done()
	v.Unmount()
	close(f.release)
	<-done

	require.Equal(t, Snapshot{State: Idle}, v.Snapshot())
	require.EqualValues(t, 1, c.closed.Load())
}

func TestViewer_ConcurrentMountsShareOneLoad(t *testing.T) {
	gw := testkit.NewGateway(t)
	id := gw.Put(testkit.CalcWasm)
	s := wazeroShared()

	h, err := s.Acquire(context.Background())
	require.NoError(t, err)

	viewers := make([]*Viewer, 4)
	for i := range viewers {
		viewers[i] = NewViewer(s, gw.Client(), id, ViewerOptions{})
		require.NoError(t, viewers[i].Mount(context.Background()))
	}
	for _, v := range viewers {
		require.True(t, waitSettled(t, v).Ready())
		v.Unmount()
	}
	h.Release()
	require.EqualValues(t, 1, s.Loads())
}

func TestState_String(t *testing.T) {
	require.Equal(t, "library-loading", LibraryLoading.String())
	require.Equal(t, "done", Done.String())
	require.Equal(t, "unknown", State(42).String())
}
