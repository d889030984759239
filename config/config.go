// Package config loads the explorer's runtime configuration from a JSON or
// YAML file and the environment.
//
// Example:
//
//	gateway:
//	  api_url: https://dweb.link/api/v0
//	  url: https://{cid}.ipfs.w3s.link
//	backend:
//	  url: http://localhost:3005
//	codec:
//	  name: wabt
//	  config:
//	    wabt-bin: /usr/local/bin/wasm2wat
//	log:
//	  level: debug
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"sigs.k8s.io/yaml"

	"xdao.co/zkview/gateway"
	"xdao.co/zkview/model"
	"xdao.co/zkview/resolver"
	"xdao.co/zkview/sessions"
)

// EnvAPIURL overrides Backend.URL.
const EnvAPIURL = "API_URL"

// DefaultListen is the daemon's default gRPC address.
const DefaultListen = "127.0.0.1:7788"

type Config struct {
	Gateway  GatewayConfig  `json:"gateway"`
	Backend  BackendConfig  `json:"backend"`
	Resolver ResolverConfig `json:"resolver"`
	Codec    CodecConfig    `json:"codec"`
	Log      LogConfig      `json:"log"`
	// Listen is the daemon's gRPC address.
	Listen string `json:"listen,omitempty"`
}

type GatewayConfig struct {
	APIURL string `json:"api_url,omitempty"`
	// URL is a raw content URL template containing "{cid}".
	URL     string   `json:"url,omitempty"`
	Timeout Duration `json:"timeout,omitempty"`
}

type BackendConfig struct {
	URL     string   `json:"url,omitempty"`
	Timeout Duration `json:"timeout,omitempty"`
}

type ResolverConfig struct {
	// ExpectedLinks is the exact directory size of an image; negative
	// disables the check.
	ExpectedLinks int    `json:"expected_links,omitempty"`
	ManifestName  string `json:"manifest_name,omitempty"`
}

type CodecConfig struct {
	// Name is the codec registry backend to load.
	Name string `json:"name,omitempty"`
	// Config values are backend-specific, keyed by flag name.
	Config map[string]string `json:"config,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level,omitempty"`
	Format string `json:"format,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q", s)
	}
	*d = Duration(v)
	return nil
}

func Default() Config {
	return Config{
		Gateway:  GatewayConfig{APIURL: gateway.DefaultAPIURL, URL: gateway.DefaultGatewayURL},
		Backend:  BackendConfig{URL: sessions.DefaultBaseURL},
		Resolver: ResolverConfig{ExpectedLinks: resolver.DefaultExpectedLinks, ManifestName: model.ManifestName},
		Codec:    CodecConfig{Name: "wazero"},
		Log:      LogConfig{Level: "info", Format: "console"},
		Listen:   DefaultListen,
	}
}

// Load parses a JSON or YAML document over the defaults.
func Load(b []byte) (Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, cfg.Validate()
}

func LoadFile(path string) (Config, error) {
	if path == "" {
		return Default(), errors.New("config: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Default(), err
	}
	return Load(b)
}

// ApplyEnv applies environment overrides using getenv (os.Getenv if nil).
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv(EnvAPIURL)); v != "" {
		c.Backend.URL = v
	}
}

func (c Config) Validate() error {
	if err := checkURL("gateway.api_url", c.Gateway.APIURL); err != nil {
		return err
	}
	if !strings.Contains(c.Gateway.URL, "{cid}") {
		return fmt.Errorf("config: gateway.url must contain {cid}")
	}
	if err := checkURL("gateway.url", strings.ReplaceAll(c.Gateway.URL, "{cid}", "x")); err != nil {
		return err
	}
	if err := checkURL("backend.url", c.Backend.URL); err != nil {
		return err
	}
	if c.Gateway.Timeout < 0 || c.Backend.Timeout < 0 {
		return errors.New("config: timeouts must not be negative")
	}
	if c.Codec.Name == "" {
		return errors.New("config: codec.name is required")
	}
	if c.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Listen); err != nil {
			return fmt.Errorf("config: invalid listen %q: %v", c.Listen, err)
		}
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: invalid log.level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("config: invalid log.format %q", c.Log.Format)
	}
	return nil
}

func checkURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("config: invalid %s %q", field, raw)
	}
	return nil
}

// GatewayOptions returns client options for the content network.
func (c Config) GatewayOptions(log *zerolog.Logger) gateway.Options {
	return gateway.Options{
		APIURL:     c.Gateway.APIURL,
		GatewayURL: c.Gateway.URL,
		Timeout:    time.Duration(c.Gateway.Timeout),
		Logger:     log,
	}
}

func (c Config) SessionsOptions(log *zerolog.Logger) sessions.Options {
	return sessions.Options{
		BaseURL: c.Backend.URL,
		Timeout: time.Duration(c.Backend.Timeout),
		Logger:  log,
	}
}

func (c Config) ResolverOptions(log *zerolog.Logger) resolver.Options {
	return resolver.Options{
		ExpectedLinks: c.Resolver.ExpectedLinks,
		ManifestName:  c.Resolver.ManifestName,
		Logger:        log,
	}
}
