// Package wabt is an external codec backed by the WebAssembly Binary
// Toolkit's "wasm2wat" program.
//
// Loading resolves the binary once and performs a version handshake; each
// Decode runs one short-lived wasm2wat process.
package wabt

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"xdao.co/zkview/codec"
)

var flagBin string

func init() {
	codec.MustRegister(codec.Backend{
		Name:        "wabt",
		Description: "external wasm2wat from the WebAssembly Binary Toolkit",
		Usage:       codec.UsageCLI | codec.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagBin, "wabt-bin", "wasm2wat", "Path to wasm2wat (for --codec=wabt)")
		},
		Load: func(ctx context.Context) (codec.Codec, error) {
			c, err := Load(ctx, Options{Bin: flagBin})
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	})
}

type Options struct {
	// Bin is the path to the wasm2wat binary. If empty, "wasm2wat" is used.
	Bin string
	// Env optionally overrides the command environment.
	// If nil, the process environment is used.
	Env []string
}

type Codec struct {
	path    string
	version string
	env     []string

	mu     sync.RWMutex
	closed bool
}

var _ codec.Codec = (*Codec)(nil)

// Load locates wasm2wat and checks that it runs.
func Load(ctx context.Context, opts Options) (*Codec, error) {
	bin := opts.Bin
	if bin == "" {
		bin = "wasm2wat"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", codec.ErrUnavailable, err)
	}
	c := &Codec{path: path, env: opts.Env}
	out, err := c.run(ctx, "--version")
	if err != nil {
		return nil, fmt.Errorf("%w: handshake: %v", codec.ErrUnavailable, err)
	}
	c.version = strings.TrimSpace(string(out))
	return c, nil
}

// Version is the toolkit version reported during the handshake.
func (c *Codec) Version() string { return c.version }

func (c *Codec) Decode(ctx context.Context, wasm []byte, opts codec.Options) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return "", codec.ErrClosed
	}

	f, err := os.CreateTemp("", "zkview-*.wasm")
	if err != nil {
		return "", err
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(wasm); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	out, err := c.run(ctx, append(flags(opts), f.Name())...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		var ee *exitError
		if errors.As(err, &ee) {
			return "", fmt.Errorf("%w: %s", codec.ErrMalformed, ee.msg)
		}
		return "", err
	}
	return string(out), nil
}

func (c *Codec) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func flags(opts codec.Options) []string {
	var args []string
	if opts.FoldExprs {
		args = append(args, "--fold-exprs")
	}
	if opts.InlineExport {
		args = append(args, "--inline-exports")
	}
	if !opts.DebugNames {
		args = append(args, "--no-debug-names")
	}
	return args
}

type exitError struct{ msg string }

func (e *exitError) Error() string { return "wasm2wat: " + e.msg }

func (c *Codec) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.path, args...)
	if c.env != nil {
		cmd.Env = c.env
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		s := strings.TrimSpace(stderr.String())
		if s == "" {
			s = err.Error()
		}
		return nil, &exitError{msg: s}
	}
	return nil, err
}
