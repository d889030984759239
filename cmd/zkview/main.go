package main

import (
	"fmt"
	"io"
	"os"

	_ "xdao.co/zkview/codec/wabt"
	_ "xdao.co/zkview/codec/wazero"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "classify":
		return cmdClassify(args[1:], out, errOut)
	case "image":
		return cmdImage(args[1:], out, errOut)
	case "session":
		return cmdSession(args[1:], out, errOut)
	case "sessions":
		return cmdSessions(args[1:], out, errOut)
	case "prove":
		return cmdProve(args[1:], out, errOut)
	case "verify":
		return cmdVerify(args[1:], out, errOut)
	case "disasm":
		return cmdDisasm(args[1:], out, errOut)
	case "export":
		return cmdExport(args[1:], out, errOut)
	case "extract":
		return cmdExtract(args[1:], out, errOut)
	case "codecs":
		return cmdCodecs(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "zkview: explore zk compute images and proof sessions")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  zkview classify <input>")
	fmt.Fprintln(w, "  zkview image [--disasm] <image-cid>")
	fmt.Fprintln(w, "  zkview session <session-id>")
	fmt.Fprintln(w, "  zkview sessions <image-cid>")
	fmt.Fprintln(w, "  zkview prove --image <image-cid> <value> [<value> ...]")
	fmt.Fprintln(w, "  zkview verify <session-id>")
	fmt.Fprintln(w, "  zkview disasm (<wasm-cid> | --file <module.wasm>)")
	fmt.Fprintln(w, "  zkview export [--gzip] [--index] --out <file> <image-cid>")
	fmt.Fprintln(w, "  zkview extract --archive <image.tar.gz> <path>")
	fmt.Fprintln(w, "  zkview codecs")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Common flags:")
	fmt.Fprintln(w, "  --config <file>        JSON or YAML config")
	fmt.Fprintln(w, "  --api-url <url>        IPFS HTTP API base (ls, cat)")
	fmt.Fprintln(w, "  --gateway-url <tmpl>   raw content URL template containing {cid}")
	fmt.Fprintln(w, "  --backend-url <url>    proof backend base URL (env API_URL)")
	fmt.Fprintln(w, "  --codec <name>         disassembly codec (see zkview codecs)")
	fmt.Fprintln(w, "  --remote <addr>        query a zkviewd daemon (image, session, sessions)")
	fmt.Fprintln(w, "  --log-level, --log-format")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - exit status 1 means not found or failed; 2 means bad usage")
	fmt.Fprintln(w, "  - prove takes one positive integer per manifest argument type")
	fmt.Fprintln(w, "  - extract matches entry paths after their top-level directory")
}
