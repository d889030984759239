// Package wazero is an in-process codec backed by the wazero runtime.
//
// wazero validates and compiles the module; the text is rendered from the
// compiled module's imports and exports plus the function bodies read from
// the binary. Every defined function is listed with its instructions, flat
// or folded.
package wazero

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"xdao.co/zkview/codec"
)

var flagCompiler bool

func init() {
	codec.MustRegister(codec.Backend{
		Name:        "wazero",
		Description: "in-process disassembler (tetratelabs/wazero validation)",
		Usage:       codec.UsageCLI | codec.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.BoolVar(&flagCompiler, "wazero-compiler", false, "Use the wazero compiler instead of the interpreter (for --codec=wazero)")
		},
		Load: func(ctx context.Context) (codec.Codec, error) {
			c, err := Load(ctx, Options{Compiler: flagCompiler})
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	})
}

type Options struct {
	// Compiler selects wazero's optimizing compiler. The interpreter is
	// portable to every platform wazero supports.
	Compiler bool
}

// Codec holds one wazero runtime for its whole lifetime.
type Codec struct {
	mu     sync.RWMutex
	rt     wazero.Runtime
	closed bool
}

var _ codec.Codec = (*Codec)(nil)

func Load(ctx context.Context, opts Options) (*Codec, error) {
	cfg := wazero.NewRuntimeConfigInterpreter()
	if opts.Compiler {
		cfg = wazero.NewRuntimeConfig()
	}
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)
	if err := ctx.Err(); err != nil {
		_ = rt.Close(context.Background())
		return nil, fmt.Errorf("%w: %w", codec.ErrUnavailable, err)
	}
	return &Codec{rt: rt}, nil
}

func (c *Codec) Decode(ctx context.Context, wasm []byte, opts codec.Options) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return "", codec.ErrClosed
	}
	cm, err := c.rt.CompileModule(ctx, wasm)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %v", codec.ErrMalformed, err)
	}
	defer cm.Close(context.Background())
	m, err := parseModule(wasm)
	if err != nil {
		return "", fmt.Errorf("%w: %v", codec.ErrMalformed, err)
	}
	return render(cm, m, opts), nil
}

func (c *Codec) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rt.Close(context.Background())
}

// IsMalformed reports whether err came from a module that failed to compile.
func IsMalformed(err error) bool { return errors.Is(err, codec.ErrMalformed) }

func render(cm wazero.CompiledModule, m *module, opts codec.Options) string {
	var b strings.Builder
	b.WriteString("(module")
	if name := cm.Name(); opts.DebugNames && name != "" {
		b.WriteString(" $" + name)
	}
	b.WriteString("\n")

	var exports []string

	imported := cm.ImportedFunctions()
	sort.Slice(imported, func(i, j int) bool { return imported[i].Index() < imported[j].Index() })
	for _, fn := range imported {
		mod, name, _ := fn.Import()
		fmt.Fprintf(&b, "  (import %q %q (func %s%s%s))\n", mod, name, funcID(fn, opts), m.typeUse(fn.Index()), signature(fn))
	}
	for _, mem := range cm.ImportedMemories() {
		mod, name, _ := mem.Import()
		fmt.Fprintf(&b, "  (import %q %q (memory (;%d;) %s))\n", mod, name, mem.Index(), limits(mem))
	}

	exported := map[uint32][]string{}
	for _, fn := range uniqueFunctions(cm.ExportedFunctions()) {
		if _, _, isImport := fn.Import(); isImport {
			for _, e := range sortedExportNames(fn) {
				exports = append(exports, fmt.Sprintf("  (export %q (func %s))\n", e, funcRef(fn, opts)))
			}
			continue
		}
		exported[fn.Index()] = sortedExportNames(fn)
	}

	for i, fb := range m.bodies {
		idx := uint32(m.imported + i)
		if name := m.funcNames[idx]; opts.DebugNames && name != "" {
			b.WriteString("  (func $" + name)
		} else {
			fmt.Fprintf(&b, "  (func (;%d;)", idx)
		}
		for _, e := range exported[idx] {
			if opts.InlineExport {
				fmt.Fprintf(&b, " (export %q)", e)
			} else {
				exports = append(exports, fmt.Sprintf("  (export %q (func %s))\n", e, m.funcRef(idx, opts)))
			}
		}
		b.WriteString(m.typeUse(idx))
		if _, ft, ok := m.typeOf(idx); ok {
			if len(ft.params) > 0 {
				b.WriteString(" (param" + valTypes(ft.params) + ")")
			}
			if len(ft.results) > 0 {
				b.WriteString(" (result" + valTypes(ft.results) + ")")
			}
		}
		if lines := m.bodyLines(fb, opts); len(lines) > 0 {
			b.WriteString("\n" + strings.Join(lines, "\n"))
		}
		b.WriteString(")\n")
	}

	for _, mem := range uniqueMemories(cm.ExportedMemories()) {
		if _, _, isImport := mem.Import(); isImport {
			for _, e := range sorted(mem.ExportNames()) {
				exports = append(exports, fmt.Sprintf("  (export %q (memory %d))\n", e, mem.Index()))
			}
			continue
		}
		fmt.Fprintf(&b, "  (memory (;%d;)", mem.Index())
		if opts.InlineExport {
			for _, e := range sorted(mem.ExportNames()) {
				fmt.Fprintf(&b, " (export %q)", e)
			}
		} else {
			for _, e := range sorted(mem.ExportNames()) {
				exports = append(exports, fmt.Sprintf("  (export %q (memory %d))\n", e, mem.Index()))
			}
		}
		b.WriteString(" " + limits(mem) + ")\n")
	}

	for _, e := range exports {
		b.WriteString(e)
	}
	b.WriteString(")\n")
	return b.String()
}

func (m *module) typeUse(idx uint32) string {
	if ti, _, ok := m.typeOf(idx); ok {
		return fmt.Sprintf(" (type %d)", ti)
	}
	return ""
}

func funcID(fn api.FunctionDefinition, opts codec.Options) string {
	if opts.DebugNames && fn.Name() != "" {
		return "$" + fn.Name()
	}
	return fmt.Sprintf("(;%d;)", fn.Index())
}

func funcRef(fn api.FunctionDefinition, opts codec.Options) string {
	if opts.DebugNames && fn.Name() != "" {
		return "$" + fn.Name()
	}
	return fmt.Sprintf("%d", fn.Index())
}

func signature(fn api.FunctionDefinition) string {
	var b strings.Builder
	if params := fn.ParamTypes(); len(params) > 0 {
		b.WriteString(" (param")
		for _, t := range params {
			b.WriteString(" " + api.ValueTypeName(t))
		}
		b.WriteString(")")
	}
	if results := fn.ResultTypes(); len(results) > 0 {
		b.WriteString(" (result")
		for _, t := range results {
			b.WriteString(" " + api.ValueTypeName(t))
		}
		b.WriteString(")")
	}
	return b.String()
}

func limits(mem api.MemoryDefinition) string {
	if hi, ok := mem.Max(); ok {
		return fmt.Sprintf("%d %d", mem.Min(), hi)
	}
	return fmt.Sprintf("%d", mem.Min())
}

// uniqueFunctions collapses the export-name keyed map into one definition
// per function index, ordered by index.
func uniqueFunctions(m map[string]api.FunctionDefinition) []api.FunctionDefinition {
	byIndex := make(map[uint32]api.FunctionDefinition, len(m))
	for _, fn := range m {
		byIndex[fn.Index()] = fn
	}
	out := make([]api.FunctionDefinition, 0, len(byIndex))
	for _, fn := range byIndex {
		out = append(out, fn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index() < out[j].Index() })
	return out
}

func uniqueMemories(m map[string]api.MemoryDefinition) []api.MemoryDefinition {
	byIndex := make(map[uint32]api.MemoryDefinition, len(m))
	for _, mem := range m {
		byIndex[mem.Index()] = mem
	}
	out := make([]api.MemoryDefinition, 0, len(byIndex))
	for _, mem := range byIndex {
		out = append(out, mem)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index() < out[j].Index() })
	return out
}

func sortedExportNames(fn api.FunctionDefinition) []string { return sorted(fn.ExportNames()) }

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
