package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"google.golang.org/grpc"

	"xdao.co/zkview/codec"
	"xdao.co/zkview/config"
	"xdao.co/zkview/disasm"
	"xdao.co/zkview/explorer"
	"xdao.co/zkview/gateway"
	"xdao.co/zkview/logging"
	"xdao.co/zkview/resolver"
	"xdao.co/zkview/rpc"
	"xdao.co/zkview/sessions"

	_ "xdao.co/zkview/codec/wabt"
	_ "xdao.co/zkview/codec/wazero"
)

func main() {
	fs := flag.NewFlagSet("zkviewd", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file (JSON or YAML)")
	listen := fs.String("listen", "", "listen address (default from config, "+config.DefaultListen+")")
	codecName := fs.String("codec", "", "Disassembly codec name")
	disasmTimeout := fs.Duration("disasm-timeout", time.Minute, "Upper bound for one Disassemble call")
	listCodecs := fs.Bool("list-codecs", false, "List supported codecs and exit")

	codec.RegisterFlags(fs, codec.UsageDaemon)

	_ = fs.Parse(os.Args[1:])
	if *listCodecs {
		for _, b := range codec.List(codec.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(os.Stdout, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(os.Stdout, "%s\t%s\n", b.Name, b.Description)
		}
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *codecName != "" {
		cfg.Codec.Name = *codecName
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	load, err := codec.LoaderWithConfig(fs, cfg.Codec.Name, codec.UsageDaemon, cfg.Codec.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	gw := gateway.New(cfg.GatewayOptions(&log))
	ex := explorer.New(explorer.Options{
		Gateway:  gw,
		Sessions: sessions.New(cfg.SessionsOptions(&log)),
		Resolver: resolver.New(gw, cfg.ResolverOptions(&log)),
		Codec:    disasm.NewShared(load, disasm.SharedOptions{Logger: &log}),
		Logger:   &log,
	})

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer lis.Close()

	s := grpc.NewServer()
	rpc.RegisterExplorerServer(s, &rpc.Server{Explorer: ex, DisassembleTimeout: *disasmTimeout, Logger: &log})

	log.Info().
		Str("listen", lis.Addr().String()).
		Str("codec", cfg.Codec.Name).
		Str("gateway", cfg.Gateway.APIURL).
		Str("backend", cfg.Backend.URL).
		Msg("zkviewd listening")
	if err := s.Serve(lis); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
