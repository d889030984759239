// Package sessions is a client for the proof backend's session API.
//
// Reads always bypass HTTP caches: sessions are updated asynchronously by
// the proving pipeline. Plural queries degrade to an empty result, singular
// queries to a coded not-found error.
package sessions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"xdao.co/zkview/ident"
	"xdao.co/zkview/model"
)

const DefaultBaseURL = "http://localhost:3005"

type Options struct {
	// BaseURL is the backend root; routes live under {BaseURL}/api.
	BaseURL    string
	HTTPClient *http.Client
	// Timeout applies per request when non-zero.
	Timeout time.Duration
	Logger  *zerolog.Logger
}

type Client struct {
	base    string
	hc      *http.Client
	timeout time.Duration
	log     zerolog.Logger
}

func New(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "sessions").Logger()
	}
	return &Client{base: base, hc: hc, timeout: opts.Timeout, log: log}
}

func (c *Client) route(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.base + "/api/" + strings.Join(escaped, "/")
}

// ByImage lists the proof sessions of an image. Any failure yields an empty,
// non-nil slice.
func (c *Client) ByImage(ctx context.Context, imageID string) []model.ProofRecord {
	var out []model.ProofRecord
	if err := c.getJSON(ctx, c.route("proofs", "by-image", imageID), &out); err != nil {
		c.log.Warn().Err(err).Str("image", imageID).Msg("listing sessions failed")
		return []model.ProofRecord{}
	}
	if out == nil {
		out = []model.ProofRecord{}
	}
	return out
}

// Get fetches one session. Failures are reported as NOT_FOUND, or
// TRANSIENT_IO when the backend could not be reached.
func (c *Client) Get(ctx context.Context, sessionID string) (*model.ProofRecord, error) {
	if !ident.IsSessionID(sessionID) {
		return nil, model.NewError(model.ErrValidation, "invalid session id")
	}
	var rec model.ProofRecord
	if err := c.getJSON(ctx, c.route("proofs", sessionID), &rec); err != nil {
		return nil, lookupError("session lookup failed", err)
	}
	if rec.SessionID == "" {
		return nil, model.NewError(model.ErrNotFound, "session lookup failed: empty record")
	}
	return &rec, nil
}

// Verify asks the backend to check the receipt of a completed session.
func (c *Client) Verify(ctx context.Context, sessionID string) (*model.Verification, error) {
	if !ident.IsSessionID(sessionID) {
		return nil, model.NewError(model.ErrValidation, "invalid session id")
	}
	var v model.Verification
	if err := c.getJSON(ctx, c.route("proofs", sessionID, "verify"), &v); err != nil {
		return nil, lookupError("verification failed", err)
	}
	return &v, nil
}

// Create requests a new proof session and returns its id.
func (c *Client) Create(ctx context.Context, imageID string, args []model.Argument) (string, error) {
	if !ident.IsImageID(imageID) {
		return "", model.NewError(model.ErrValidation, "invalid image id")
	}
	body, err := json.Marshal(model.ProofRequest{ImageCID: imageID, Arguments: args})
	if err != nil {
		return "", model.Wrap(model.ErrInternal, "encode proof request", err)
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.route("proofs"), bytes.NewReader(body))
	if err != nil {
		return "", model.Wrap(model.ErrInternal, "build proof request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := c.do(req, &out); err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return "", model.Wrap(model.ErrInternal, "failed to generate proof", err)
		}
		return "", model.Wrap(model.ErrTransientIO, "failed to generate proof", err)
	}
	id, err := uuid.Parse(out.SessionID)
	if err != nil || !ident.IsSessionID(out.SessionID) {
		return "", model.Wrap(model.ErrInternal, "backend returned a malformed session id", err)
	}
	c.log.Info().Str("image", imageID).Str("session", id.String()).Msg("proof session created")
	return out.SessionID, nil
}

func (c *Client) ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")
	return c.do(req, v)
}

func (c *Client) do(req *http.Request, v any) error {
	c.log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Msg("request")
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

var ErrMalformed = errors.New("sessions: malformed response")

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sessions: HTTP %d", e.Status)
	}
	return fmt.Sprintf("sessions: HTTP %d: %s", e.Status, e.Body)
}

func lookupError(msg string, err error) error {
	var se *StatusError
	if errors.As(err, &se) || errors.Is(err, ErrMalformed) {
		return model.Wrap(model.ErrNotFound, msg, err)
	}
	return model.Wrap(model.ErrTransientIO, msg, err)
}
