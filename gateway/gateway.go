// Package gateway is a read-only client for an IPFS HTTP API ("ls", "cat")
// and an HTTP gateway serving raw content by CID.
//
// Transport reachability is not validity: raw-codec CIDs fetched through
// the gateway are verified against their bytes.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"xdao.co/zkview/cidutil"
)

const (
	DefaultAPIURL     = "https://dweb.link/api/v0"
	DefaultGatewayURL = "https://{cid}.ipfs.w3s.link"
	// DefaultMaxBytes bounds any single response body.
	DefaultMaxBytes = 64 << 20
)

type Options struct {
	// APIURL is the base of the IPFS HTTP API. If empty, DefaultAPIURL is used.
	APIURL string
	// GatewayURL is a URL template for raw content; "{cid}" is replaced by
	// the content identifier. If empty, DefaultGatewayURL is used.
	GatewayURL string
	// HTTPClient defaults to a client without a timeout.
	HTTPClient *http.Client
	// Timeout applies per request when non-zero.
	Timeout  time.Duration
	MaxBytes int64
	Logger   *zerolog.Logger
}

// Link is a directory entry of an "ls" answer.
type Link struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size uint64 `json:"Size,omitempty"`
	Type int    `json:"Type,omitempty"`
}

type Object struct {
	Hash  string `json:"Hash,omitempty"`
	Links []Link `json:"Links"`
}

// Listing is the body of an "ls" answer.
type Listing struct {
	Objects []Object `json:"Objects"`
}

type Client struct {
	api      string
	gw       string
	hc       *http.Client
	timeout  time.Duration
	maxBytes int64
	log      zerolog.Logger
}

func New(opts Options) *Client {
	api := strings.TrimRight(opts.APIURL, "/")
	if api == "" {
		api = DefaultAPIURL
	}
	gw := opts.GatewayURL
	if gw == "" {
		gw = DefaultGatewayURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "gateway").Logger()
	}
	return &Client{api: api, gw: gw, hc: hc, timeout: opts.Timeout, maxBytes: maxBytes, log: log}
}

// Ls lists the directory addressed by id.
func (c *Client) Ls(ctx context.Context, id string) (*Listing, error) {
	if _, err := cidutil.Parse(id); err != nil {
		return nil, ErrInvalidCID
	}
	b, err := c.get(ctx, "ls", c.api+"/ls/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	var out Listing
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("%w: ls: %v", ErrMalformed, err)
	}
	return &out, nil
}

// Cat returns the raw content of the file addressed by id.
func (c *Client) Cat(ctx context.Context, id string) ([]byte, error) {
	if _, err := cidutil.Parse(id); err != nil {
		return nil, ErrInvalidCID
	}
	return c.get(ctx, "cat", c.api+"/cat/"+url.PathEscape(id))
}

// URL returns the gateway location of id.
func (c *Client) URL(id string) string {
	return strings.ReplaceAll(c.gw, "{cid}", id)
}

// Fetch downloads id through the gateway. Raw-codec CIDs are verified.
func (c *Client) Fetch(ctx context.Context, id string) ([]byte, error) {
	parsed, err := cidutil.Parse(id)
	if err != nil {
		return nil, ErrInvalidCID
	}
	b, err := c.get(ctx, "fetch", c.URL(id))
	if err != nil {
		return nil, err
	}
	if err := cidutil.Verify(parsed, b); err != nil {
		return nil, ErrCIDMismatch
	}
	return b, nil
}

func (c *Client) get(ctx context.Context, op, u string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Str("op", op).Str("url", u).Msg("request")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Debug().Str("op", op).Int("status", resp.StatusCode).Msg("non-success status")
		return nil, &StatusError{Op: op, Status: resp.StatusCode, Body: errorBody(body)}
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("%w: %s: body exceeds %d bytes", ErrMalformed, op, c.maxBytes)
	}
	return body, nil
}

// errorBody extracts the message of a Kubo-style {"Message": ...} error body.
func errorBody(b []byte) string {
	var kubo struct {
		Message string `json:"Message"`
	}
	if json.Unmarshal(b, &kubo) == nil && kubo.Message != "" {
		return kubo.Message
	}
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

func isLikelyNotFound(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "not found") || strings.Contains(msg, "no link named")
}
