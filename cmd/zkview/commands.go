package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"xdao.co/zkview/bundle"
	"xdao.co/zkview/codec"
	"xdao.co/zkview/disasm"
	"xdao.co/zkview/explorer"
	"xdao.co/zkview/ident"
	"xdao.co/zkview/model"
	"xdao.co/zkview/sessions"
)

func cmdClassify(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "usage: zkview classify <input>")
		return 2
	}
	c := ident.Classify(args[0])
	if !c.Navigable() {
		fmt.Fprintln(out, c.Kind)
		return 1
	}
	fmt.Fprintf(out, "%s\t%s\n", c.Kind, c.Route())
	return 0
}

func cmdImage(args []string, out io.Writer, errOut io.Writer) int {
	fs, common := newFlagSet("image", errOut)
	var showDisasm bool
	fs.BoolVar(&showDisasm, "disasm", false, "Also disassemble the image's WASM module")
	e, code := parse(fs, common, args, errOut)
	if e == nil {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: zkview image [--disasm] <image-cid>")
		return 2
	}
	if common.remote != "" {
		return remoteImage(common, fs.Arg(0), showDisasm, out, errOut)
	}

	ctx := context.Background()
	v, err := e.explorer.ImageView(ctx, fs.Arg(0))
	if err != nil {
		return report(errOut, err)
	}
	if err := explorer.RenderImage(out, v); err != nil {
		fmt.Fprintf(errOut, "write: %v\n", err)
		return 1
	}
	if !showDisasm || !v.Image.Manifest.HasWasm() {
		return 0
	}

	viewer, err := e.explorer.OpenDisassembly(v)
	if err != nil {
		return report(errOut, err)
	}
	if err := viewer.Mount(ctx); err != nil {
		return report(errOut, err)
	}
	defer viewer.Unmount()
	snap, err := viewer.Wait(ctx)
	if err != nil {
		return report(errOut, err)
	}
	fmt.Fprintln(out)
	if err := explorer.RenderDisassembly(out, snap); err != nil {
		fmt.Fprintf(errOut, "write: %v\n", err)
		return 1
	}
	if !snap.Ready() {
		return 1
	}
	return 0
}

func cmdSession(args []string, out io.Writer, errOut io.Writer) int {
	fs, common := newFlagSet("session", errOut)
	e, code := parse(fs, common, args, errOut)
	if e == nil {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: zkview session <session-id>")
		return 2
	}
	if common.remote != "" {
		return remoteSession(common, fs.Arg(0), out, errOut)
	}
	ctx := context.Background()
	v, err := e.explorer.SessionView(ctx, fs.Arg(0))
	if err != nil {
		return report(errOut, err)
	}
	if err := explorer.RenderSession(out, v); err != nil {
		fmt.Fprintf(errOut, "write: %v\n", err)
		return 1
	}
	return 0
}

func cmdSessions(args []string, out io.Writer, errOut io.Writer) int {
	fs, common := newFlagSet("sessions", errOut)
	e, code := parse(fs, common, args, errOut)
	if e == nil {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: zkview sessions <image-cid>")
		return 2
	}
	if common.remote != "" {
		return remoteSessions(common, fs.Arg(0), out, errOut)
	}
	ctx := context.Background()
	recs, err := e.explorer.ImageSessions(ctx, fs.Arg(0))
	if err != nil {
		return report(errOut, err)
	}
	if err := explorer.RenderSessions(out, recs); err != nil {
		fmt.Fprintf(errOut, "write: %v\n", err)
		return 1
	}
	return 0
}

func cmdProve(args []string, out io.Writer, errOut io.Writer) int {
	fs, common := newFlagSet("prove", errOut)
	var imageID string
	fs.StringVar(&imageID, "image", "", "Image CID")
	e, code := parse(fs, common, args, errOut)
	if e == nil {
		return code
	}
	if imageID == "" {
		fmt.Fprintln(errOut, "usage: zkview prove --image <image-cid> <value> [<value> ...]")
		return 2
	}

	ctx := context.Background()
	img, err := e.resolver.Resolve(ctx, imageID)
	if err != nil {
		return report(errOut, err)
	}
	proofArgs, err := sessions.NewArguments(img.Manifest.ArgumentType, fs.Args())
	if err != nil {
		return report(errOut, err)
	}
	id, err := e.sessions.Create(ctx, imageID, proofArgs)
	if err != nil {
		return report(errOut, err)
	}
	fmt.Fprintln(out, id)
	return 0
}

func cmdVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs, common := newFlagSet("verify", errOut)
	e, code := parse(fs, common, args, errOut)
	if e == nil {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: zkview verify <session-id>")
		return 2
	}
	ctx := context.Background()
	v, err := e.sessions.Verify(ctx, fs.Arg(0))
	if err != nil {
		return report(errOut, err)
	}
	fmt.Fprintf(out, "verified\t%t\n", v.Verified)
	if len(v.Result) > 0 {
		fmt.Fprintf(out, "result\t%s\n", v.Result)
	}
	if !v.Verified {
		return 1
	}
	return 0
}

func cmdDisasm(args []string, out io.Writer, errOut io.Writer) int {
	fs, common := newFlagSet("disasm", errOut)
	var file string
	fs.StringVar(&file, "file", "", "Local WASM module instead of a CID")
	e, code := parse(fs, common, args, errOut)
	if e == nil {
		return code
	}
	if (file == "") == (fs.NArg() != 1) {
		fmt.Fprintln(errOut, "usage: zkview disasm (<wasm-cid> | --file <module.wasm>)")
		return 2
	}

	ctx := context.Background()
	if file != "" {
		bin, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(errOut, "read module: %v\n", err)
			return 1
		}
		h, err := e.codec.Acquire(ctx)
		if err != nil {
			return report(errOut, model.Wrap(model.ErrCodec, "load codec", err))
		}
		defer h.Release()
		text, err := disasm.Disassemble(ctx, h.Codec(), bin, codec.DefaultOptions)
		if err != nil {
			return report(errOut, err)
		}
		_, _ = io.WriteString(out, text)
		return 0
	}

	viewer := disasm.NewViewer(e.codec, e.gw, fs.Arg(0), disasm.ViewerOptions{Logger: &e.log})
	if err := viewer.Mount(ctx); err != nil {
		return report(errOut, err)
	}
	defer viewer.Unmount()
	snap, err := viewer.Wait(ctx)
	if err != nil {
		return report(errOut, err)
	}
	if !snap.Ready() {
		return report(errOut, snap.Err)
	}
	_, _ = io.WriteString(out, snap.Text)
	return 0
}

func cmdExport(args []string, out io.Writer, errOut io.Writer) int {
	fs, common := newFlagSet("export", errOut)
	var (
		outPath string
		gz      bool
		index   bool
	)
	fs.StringVar(&outPath, "out", "", "Output file ('-' for stdout)")
	fs.BoolVar(&gz, "gzip", false, "Gzip the archive")
	fs.BoolVar(&index, "index", false, "Include index.json")
	e, code := parse(fs, common, args, errOut)
	if e == nil {
		return code
	}
	if outPath == "" || fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: zkview export [--gzip] [--index] --out <file> <image-cid>")
		return 2
	}

	ctx := context.Background()
	img, err := e.resolver.Resolve(ctx, fs.Arg(0))
	if err != nil {
		return report(errOut, err)
	}
	var buf bytes.Buffer
	if err := bundle.Export(ctx, &buf, e.gw, img, bundle.ExportOptions{Gzip: gz, IncludeIndex: index}); err != nil {
		fmt.Fprintf(errOut, "export: %v\n", err)
		return 1
	}
	if outPath == "-" {
		_, _ = out.Write(buf.Bytes())
		return 0
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		fmt.Fprintf(errOut, "write %s: %v\n", outPath, err)
		return 1
	}
	return 0
}

func cmdExtract(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var archive string
	fs.StringVar(&archive, "archive", "", "Gzip'd TAR image package")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if archive == "" || fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: zkview extract --archive <image.tar.gz> <path>")
		return 2
	}
	f, err := os.Open(archive)
	if err != nil {
		fmt.Fprintf(errOut, "open archive: %v\n", err)
		return 1
	}
	defer f.Close()
	b, err := bundle.ReadFile(f, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "extract: %v\n", err)
		return 1
	}
	_, _ = out.Write(b)
	return 0
}

func cmdCodecs(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) != 0 {
		fmt.Fprintln(errOut, "usage: zkview codecs")
		return 2
	}
	for _, b := range codec.List(codec.UsageCLI) {
		if b.Description == "" {
			_, _ = fmt.Fprintf(out, "%s\n", b.Name)
			continue
		}
		_, _ = fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
	}
	return 0
}

// report prints err by its class and returns the exit code.
func report(errOut io.Writer, err error) int {
	switch {
	case model.IsValidation(err):
		fmt.Fprintf(errOut, "invalid input: %v\n", err)
		return 2
	case model.IsNotFound(err):
		fmt.Fprintf(errOut, "not found: %v\n", err)
	default:
		fmt.Fprintf(errOut, "error: %v\n", err)
	}
	return 1
}
