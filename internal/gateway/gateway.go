// Package gateway is the HTTP client for the remote transcript-analysis
// service. Every call is a single best-effort round trip: no retries, no
// caching, outcomes reported verbatim to the caller.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"time"

	"chabench/internal/session"
)

// Config holds client configuration.
type Config struct {
	// BaseURL of the analysis service, e.g. "http://localhost:8889".
	BaseURL string
	// Timeout for one round trip. The service may run a command for up to
	// five minutes, so the default is generous.
	Timeout time.Duration
}

// Client issues requests against the analysis service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client. The transport timeout is the only client-side limit;
// requests are never retried and cannot be cancelled once issued except
// through ctx.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 6 * time.Minute
	}
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
	}
}

// ListFiles fetches the workspace listing.
func (c *Client) ListFiles(ctx context.Context, workspaceID string) ([]session.Entry, error) {
	var resp listResponse
	err := c.getJSON(ctx, "/list/"+url.PathEscape(workspaceID), &resp)
	if err != nil {
		return nil, err
	}

	entries := make([]session.Entry, 0, len(resp.Files))
	for _, f := range resp.Files {
		entries = append(entries, session.Entry{
			Name: f.Name,
			Kind: session.EntryKind(f.Type),
			Size: f.Size,
		})
	}
	return entries, nil
}

// ListBinaries fetches the catalog of invocable binaries. The order is the
// service's; repeated calls with no server-side change return the same
// sequence.
func (c *Client) ListBinaries(ctx context.Context) ([]string, error) {
	var resp binariesResponse
	if err := c.getJSON(ctx, "/binaries", &resp); err != nil {
		return nil, err
	}
	return resp.Binaries, nil
}

// Upload sends one transcript as a multipart form and returns the workspace
// the service created for it.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (*UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeFailure(resp)
	}

	var out UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &out, nil
}

// Execute runs binary with args inside the workspace and returns the captured
// output. A non-zero return code is still a completed run, not an error.
func (c *Client) Execute(ctx context.Context, workspaceID, binary string, args []string) (*session.Result, error) {
	if args == nil {
		args = []string{}
	}
	payload, err := json.Marshal(executeRequest{
		UniqueID: workspaceID,
		Binary:   binary,
		Args:     args,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeFailure(resp)
	}

	var out executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode execute response: %w", err)
	}
	return &session.Result{
		Stdout:   out.Stdout,
		Stderr:   out.Stderr,
		ExitCode: out.ReturnCode,
	}, nil
}

// Download fetches one file as UTF-8 text wrapped in JSON. Binary-unsafe by
// construction; the service only stores text transcripts and their derived
// reports.
func (c *Client) Download(ctx context.Context, workspaceID, filename string) (*DownloadResult, error) {
	var out DownloadResult
	path := "/download/" + url.PathEscape(workspaceID) + "/" + url.PathEscape(filename)
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteWorkspace permanently removes the workspace and everything in it.
func (c *Client) DeleteWorkspace(ctx context.Context, workspaceID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/cleanup/"+url.PathEscape(workspaceID), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete workspace: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeFailure(resp)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeFailure(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
