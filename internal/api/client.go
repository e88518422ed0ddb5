// Package api is the HTTP gateway to the user-management backend.
//
// Every call either decodes a JSON success payload or returns a *Failure
// carrying the HTTP status and the server's "detail" text. Nothing panics
// and no error escapes untyped, so callers can always show Failure.Message()
// to the operator.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rileyhilliard/v2dash/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// APIPrefix is prepended to every path except /health.
const APIPrefix = "/api"

// maxErrorBody bounds how much of a non-JSON error body ends up in Detail.
const maxErrorBody = 512

// Recorder receives per-request observations. Outcome is "ok" or "error".
type Recorder interface {
	ObserveRequest(op, outcome string, d time.Duration)
}

// DialContextFunc matches net.Dialer.DialContext.
type DialContextFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Client talks to the backend.
type Client struct {
	baseURL  string
	http     *http.Client
	log      logger.Logger
	recorder Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithDialer routes connections through dial, e.g. an SSH tunnel.
func WithDialer(dial DialContextFunc) Option {
	return func(c *Client) {
		c.http.Transport = &http.Transport{
			DialContext:         dial,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
		}
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// New creates a client for the backend at baseURL (e.g. "http://127.0.0.1:8000").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Transport: http.DefaultTransport,
			Timeout:   10 * time.Second,
		},
		log: logger.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs method on path (relative to /api) with an optional JSON body,
// decoding the success payload into out when out is non-nil.
// Any failure is returned as a *Failure.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	return c.call(ctx, method+" "+path, method, APIPrefix+path, body, out)
}

// call is Do with an explicit operation name and a full path.
func (c *Client) call(ctx context.Context, op, method, fullPath string, body, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		if c.recorder == nil {
			return
		}
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		c.recorder.ObserveRequest(op, outcome, time.Since(start))
	}()

	fail := func(status int, detail string, cause error) *Failure {
		return &Failure{Op: op, Method: method, Path: fullPath, Status: status, Detail: detail, Cause: cause}
	}

	var reqBody io.Reader
	if body != nil {
		data, mErr := json.Marshal(body)
		if mErr != nil {
			return fail(0, "", fmt.Errorf("encode request: %w", mErr))
		}
		reqBody = bytes.NewReader(data)
	}

	url := c.baseURL + fullPath
	c.log.Debug("send request method=%s url=%s", method, url)

	req, rErr := http.NewRequestWithContext(ctx, method, url, reqBody)
	if rErr != nil {
		return fail(0, "", rErr)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, dErr := c.http.Do(req)
	if dErr != nil {
		return fail(0, "", dErr)
	}
	defer res.Body.Close()

	data, readErr := io.ReadAll(res.Body)
	if readErr != nil {
		return fail(res.StatusCode, "", fmt.Errorf("read response: %w", readErr))
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		detail := extractDetail(data)
		if detail == "" {
			detail = http.StatusText(res.StatusCode)
		}
		c.log.Debug("error from API op=%q status=%d detail=%q", op, res.StatusCode, detail)
		return fail(res.StatusCode, detail, nil)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if uErr := json.Unmarshal(data, out); uErr != nil {
		return fail(res.StatusCode, "", fmt.Errorf("decode response: %w", uErr))
	}
	return nil
}

// extractDetail pulls "detail" out of an error body. FastAPI uses a string
// for HTTPException and a list of objects for validation errors; the latter
// is returned as compact JSON. Non-JSON bodies are returned trimmed.
func extractDetail(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ""
	}

	var envelope struct {
		Detail jsoniter.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		if len(trimmed) > maxErrorBody {
			trimmed = trimmed[:maxErrorBody]
		}
		return string(trimmed)
	}
	if len(envelope.Detail) == 0 || string(envelope.Detail) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return s
	}

	var compact bytes.Buffer
	if err := compactJSON(&compact, envelope.Detail); err != nil {
		return string(envelope.Detail)
	}
	return compact.String()
}

func compactJSON(w *bytes.Buffer, raw []byte) error {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.Write(data)
	return nil
}
