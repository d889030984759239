package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"xdao.co/zkview/codec"
	"xdao.co/zkview/config"
	"xdao.co/zkview/disasm"
	"xdao.co/zkview/explorer"
	"xdao.co/zkview/gateway"
	"xdao.co/zkview/logging"
	"xdao.co/zkview/resolver"
	"xdao.co/zkview/sessions"
)

type commonFlags struct {
	configPath string
	apiURL     string
	gatewayURL string
	backendURL string
	codecName  string
	logLevel   string
	logFormat  string
	timeout    time.Duration
	remote     string
}

func newFlagSet(name string, errOut io.Writer) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(errOut)
	c := &commonFlags{}
	fs.StringVar(&c.configPath, "config", "", "Config file (JSON or YAML)")
	fs.StringVar(&c.apiURL, "api-url", "", "IPFS HTTP API base URL")
	fs.StringVar(&c.gatewayURL, "gateway-url", "", "Raw content URL template containing {cid}")
	fs.StringVar(&c.backendURL, "backend-url", "", "Proof backend base URL")
	fs.StringVar(&c.codecName, "codec", "", "Disassembly codec")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&c.logFormat, "log-format", "", "Log format (console, json)")
	fs.DurationVar(&c.timeout, "timeout", 0, "Per-request timeout; 0 waits indefinitely")
	fs.StringVar(&c.remote, "remote", "", "zkviewd address; image, session and sessions query it instead")
	codec.RegisterFlags(fs, codec.UsageCLI)
	return fs, c
}

// env is everything a command may talk to, built from config, environment
// and flags in that order of precedence (flags win).
type env struct {
	cfg      config.Config
	log      zerolog.Logger
	gw       *gateway.Client
	sessions *sessions.Client
	resolver *resolver.Resolver
	codec    *disasm.Shared
	explorer *explorer.Explorer
}

func (c *commonFlags) env(fs *flag.FlagSet, errOut io.Writer) (*env, error) {
	cfg := config.Default()
	if c.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(c.configPath); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.Getenv)
	override(&cfg.Gateway.APIURL, c.apiURL)
	override(&cfg.Gateway.URL, c.gatewayURL)
	override(&cfg.Backend.URL, c.backendURL)
	override(&cfg.Codec.Name, c.codecName)
	override(&cfg.Log.Level, c.logLevel)
	override(&cfg.Log.Format, c.logFormat)
	if c.timeout > 0 {
		cfg.Gateway.Timeout = config.Duration(c.timeout)
		cfg.Backend.Timeout = config.Duration(c.timeout)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Codec settings from the config file yield to explicit flags.
	load, err := codec.LoaderWithConfig(fs, cfg.Codec.Name, codec.UsageCLI, cfg.Codec.Config)
	if err != nil {
		return nil, err
	}

	log := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Writer: errOut})
	e := &env{cfg: cfg, log: log}
	e.gw = gateway.New(cfg.GatewayOptions(&log))
	e.sessions = sessions.New(cfg.SessionsOptions(&log))
	e.resolver = resolver.New(e.gw, cfg.ResolverOptions(&log))
	e.codec = disasm.NewShared(disasm.Loader(load), disasm.SharedOptions{Logger: &log})
	e.explorer = explorer.New(explorer.Options{
		Gateway:  e.gw,
		Sessions: e.sessions,
		Resolver: e.resolver,
		Codec:    e.codec,
		Logger:   &log,
	})
	return e, nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parse parses args and builds the environment. It prints the problem and
// returns a non-zero exit code on failure.
func parse(fs *flag.FlagSet, c *commonFlags, args []string, errOut io.Writer) (*env, int) {
	if err := fs.Parse(args); err != nil {
		return nil, 2
	}
	e, err := c.env(fs, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return nil, 2
	}
	return e, 0
}
