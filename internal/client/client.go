// Package client talks to the remote impact service: CSV upload, job status,
// single report submission and the monthly dashboard.
//
// Responses are decoded as MessagePack when the service answers with a msgpack
// Content-Type and as JSON otherwise.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// DefaultRequestTimeout bounds status, report and dashboard calls.
	DefaultRequestTimeout = 30 * time.Second

	// maxErrorBody caps how much of an error response is read for its message.
	maxErrorBody = 4096

	contentTypeJSON    = "application/json"
	contentTypeMsgpack = "application/msgpack"
)

// Encoding selects the body format for requests the client encodes itself.
type Encoding string

const (
	EncodingJSON    Encoding = "json"
	EncodingMsgpack Encoding = "msgpack"
)

// Options configures a Client.
type Options struct {
	BaseURL        string
	Encoding       Encoding
	RequestTimeout time.Duration
	// UploadTimeout bounds the CSV upload. Zero leaves it to the transport.
	UploadTimeout time.Duration
	HTTPClient    *http.Client
}

// Client is safe for concurrent use.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	encoding       Encoding
	requestTimeout time.Duration
	uploadTimeout  time.Duration
}

// New validates opts and builds a client.
func New(opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", opts.BaseURL)
	}

	enc := opts.Encoding
	switch enc {
	case "":
		enc = EncodingJSON
	case EncodingJSON, EncodingMsgpack:
	default:
		return nil, fmt.Errorf("unknown encoding %q", opts.Encoding)
	}

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		httpClient:     hc,
		baseURL:        u.String(),
		encoding:       enc,
		requestTimeout: timeout,
		uploadTimeout:  opts.UploadTimeout,
	}, nil
}

// BaseURL returns the service root requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.encoding == EncodingMsgpack {
		req.Header.Set("Accept", contentTypeMsgpack+", "+contentTypeJSON)
	} else {
		req.Header.Set("Accept", contentTypeJSON)
	}
	return req, nil
}

// encodeBody marshals v in the client's encoding.
func (c *Client) encodeBody(v any) (io.Reader, string, error) {
	if c.encoding == EncodingMsgpack {
		b, err := msgpack.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(b), contentTypeMsgpack, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(b), contentTypeJSON, nil
}

// do sends req and decodes a 2xx body into out (which may be nil).
// Every failure comes back as a *TransportError tagged with op.
func (c *Client) do(req *http.Request, op string, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		log.Debug().Str("op", op).Str("path", req.URL.Path).Dur("duration", duration).Err(err).Msg("Impact API request failed")
		return networkError(op, err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("op", op).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("requestId", req.Header.Get("X-Request-ID")).
		Int("statusCode", resp.StatusCode).
		Dur("duration", duration).
		Msg("Impact API response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(op, resp.StatusCode, errorMessage(body))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkError(op, fmt.Errorf("read response: %w", err))
	}
	if err := decode(resp.Header.Get("Content-Type"), body, out); err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Message: "malformed response: " + err.Error(), Details: err}
	}
	return nil
}

func decode(contentType string, body []byte, out any) error {
	if strings.Contains(contentType, "msgpack") {
		return msgpack.Unmarshal(body, out)
	}
	return json.Unmarshal(body, out)
}

// errorMessage pulls a human-readable message out of an error body.
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return truncate(strings.TrimSpace(string(body)), 200)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
