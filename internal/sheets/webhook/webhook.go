// Package webhook pushes the ledger to a Google Apps Script web app.
//
// The script clears its sheet and appends one row per record, so each push
// carries the whole ledger. The response is never inspected: a request that
// left the process without a transport error counts as delivered.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"quy/internal/core"
	"quy/internal/log"
	ports "quy/internal/sheets"
)

// Prefix is the only endpoint origin the webhook writer talks to.
const Prefix = "https://script.google.com"

type Client struct {
	endpoint string
	http     *http.Client
}

var _ ports.SnapshotWriter = (*Client)(nil)

// Supported reports whether endpoint is an Apps Script URL.
func Supported(endpoint string) bool {
	return strings.HasPrefix(endpoint, Prefix)
}

// New returns a writer for endpoint. A nil httpClient selects a pooled
// client with the given overall timeout.
func New(endpoint string, httpClient *http.Client, timeout time.Duration) (*Client, error) {
	if !Supported(endpoint) {
		return nil, fmt.Errorf("%w: %q", ports.ErrUnsupportedEndpoint, endpoint)
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(timeout)
	}
	return &Client{endpoint: endpoint, http: httpClient}, nil
}

// Resolver builds webhook writers that share one HTTP client.
func Resolver(httpClient *http.Client) ports.Resolver {
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	return func(endpoint string) (ports.SnapshotWriter, error) {
		return New(endpoint, httpClient, 0)
	}
}

// NewHTTPClient creates a client with connection pooling and keep-alive
// tuned for Google endpoints.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// WriteSnapshot posts txs as a JSON array.
func (c *Client) WriteSnapshot(ctx context.Context, txs []core.Transaction) error {
	if txs == nil {
		txs = []core.Transaction{}
	}
	body, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post to apps script: %w", err)
	}
	// Drain so the connection can be reused; the content is opaque.
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	log.For(log.ComponentSync).InfoContext(ctx, "Ledger pushed to apps script", "records", len(txs))
	return nil
}
