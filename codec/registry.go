package codec

import (
	"context"
	"flag"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Usage is a bitmask of the binaries a backend may be loaded by. Backends
// are linked in with a blank import and register themselves from init().
type Usage uint8

const (
	UsageCLI Usage = 1 << iota
	UsageDaemon
)

func (u Usage) allows(want Usage) bool { return u&want != 0 }

func (u Usage) String() string {
	var parts []string
	if u&UsageCLI != 0 {
		parts = append(parts, "cli")
	}
	if u&UsageDaemon != 0 {
		parts = append(parts, "daemon")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

// Backend is a build-time plugin that can load a Codec.
//
// Backends typically register themselves in init():
//
//	codec.MustRegister(codec.Backend{ ... })
type Backend struct {
	Name        string
	Description string
	Usage       Usage

	// RegisterFlags adds backend-specific flags to fs. Optional.
	// It must be safe to call exactly once per process.
	RegisterFlags func(fs *flag.FlagSet)

	// Load constructs the codec using values parsed into flags registered by
	// RegisterFlags. It may block while the codec initializes.
	Load func(ctx context.Context) (Codec, error)
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
	// flagNames records the flags each backend added in RegisterFlags.
	flagNames = map[string]map[string]bool{}
)

// Register registers a backend.
func Register(b Backend) error {
	if b.Name == "" {
		return fmt.Errorf("codec: backend name is required")
	}
	if b.Load == nil {
		return fmt.Errorf("codec: backend %q missing Load", b.Name)
	}
	if b.Usage == 0 {
		return fmt.Errorf("codec: backend %q missing Usage", b.Name)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := backends[b.Name]; exists {
		return fmt.Errorf("codec: backend %q already registered", b.Name)
	}
	backends[b.Name] = b
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns backends matching usage, sorted by name.
func List(usage Usage) []Backend {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b.Usage.allows(usage) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns backend names matching usage, sorted.
func Names(usage Usage) []string {
	bs := List(usage)
	n := make([]string, 0, len(bs))
	for _, b := range bs {
		n = append(n, b.Name)
	}
	return n
}

// RegisterFlags registers flags for all backends matching usage.
func RegisterFlags(fs *flag.FlagSet, usage Usage) {
	for _, b := range List(usage) {
		if b.RegisterFlags == nil {
			continue
		}
		before := map[string]bool{}
		fs.VisitAll(func(f *flag.Flag) { before[f.Name] = true })
		b.RegisterFlags(fs)
		owned := map[string]bool{}
		fs.VisitAll(func(f *flag.Flag) {
			if !before[f.Name] {
				owned[f.Name] = true
			}
		})
		mu.Lock()
		flagNames[b.Name] = owned
		mu.Unlock()
	}
}

// Loader returns the load function of the named backend if it exists and
// matches usage.
func Loader(name string, usage Usage) (func(ctx context.Context) (Codec, error), error) {
	mu.RLock()
	b, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown codec %q", name)
	}
	if !b.Usage.allows(usage) {
		return nil, fmt.Errorf("codec %q not supported in this binary", name)
	}
	return b.Load, nil
}

// LoaderWithConfig is like Loader, but first applies values to the named
// backend's flags in fs, which must have been passed to RegisterFlags.
// Keys are flag names without dashes. Flags already set on fs keep their
// values.
func LoaderWithConfig(fs *flag.FlagSet, name string, usage Usage, values map[string]string) (func(ctx context.Context) (Codec, error), error) {
	load, err := Loader(name, usage)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return load, nil
	}

	mu.RLock()
	owned := flagNames[name]
	mu.RUnlock()
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !owned[k] || fs.Lookup(k) == nil {
			return nil, fmt.Errorf("codec %q: unknown config key %q", name, k)
		}
		if set[k] {
			continue
		}
		if err := fs.Set(k, values[k]); err != nil {
			return nil, fmt.Errorf("codec %q: %s: %w", name, k, err)
		}
	}
	return load, nil
}
