// Package grades is the HTTP client for the grading service: token
// validation, upstream resource lookup, build submission, and source archive
// download. Every operation issues exactly one request; retry behavior, if
// any, belongs to the caller.
package grades

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
)

// ClientInterface defines the operations the pipeline uses against the
// grading service.
type ClientInterface interface {
	// ValidateToken asks the service whether a token is authentic.
	ValidateToken(ctx context.Context, token string) (bool, error)

	// GetResource fetches the upstream resource descriptor bound to a token.
	GetResource(ctx context.Context, token string) (*Resource, error)

	// SubmitBuild posts one completed test run and returns the result
	// locator.
	SubmitBuild(ctx context.Context, req *SubmitBuildRequest) (*SubmitBuildResponse, error)

	// DownloadArchive streams the archive at archiveURL into the file at
	// dest. The URL is absolute (it comes from the resource descriptor, not
	// from the service base URL).
	DownloadArchive(ctx context.Context, archiveURL, dest string) error
}

// Client provides a high-level interface for interacting with the grading
// service.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a new grades client with the given options.
func NewClient(options ...ClientOption) *Client {
	config := DefaultConfig()

	for _, option := range options {
		option(config)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: config.Timeout,
		}
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}
}

// ValidateToken asks the service whether a token is authentic. The caller
// is responsible for the structural format gate; this method only reports
// what the service says.
func (c *Client) ValidateToken(ctx context.Context, token string) (bool, error) {
	path := "/submissions/validate_token?token=" + url.QueryEscape(token)

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return false, fmt.Errorf("failed to validate token: %w", err)
	}

	var result ValidateTokenResponse
	if err := c.handleResponse(resp, &result); err != nil {
		return false, fmt.Errorf("failed to process validate token response: %w", err)
	}

	return result.Success, nil
}

// GetResource fetches the upstream resource descriptor bound to a token.
func (c *Client) GetResource(ctx context.Context, token string) (*Resource, error) {
	path := "/submissions/resource?token=" + url.QueryEscape(token)

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}

	var result Resource
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to process resource response: %w", err)
	}

	return &result, nil
}

// SubmitBuild posts one completed test run to the grading service.
func (c *Client) SubmitBuild(ctx context.Context, req *SubmitBuildRequest) (*SubmitBuildResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/builds", req)
	if err != nil {
		return nil, fmt.Errorf("failed to submit build: %w", err)
	}

	var result SubmitBuildResponse
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to process submit build response: %w", err)
	}

	return &result, nil
}

// DownloadArchive streams the archive at archiveURL into dest.
func (c *Client) DownloadArchive(ctx context.Context, archiveURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create archive request: %w", err)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &Error{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("archive download failed with status %d", resp.StatusCode),
			Body:       string(body),
		}
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to write archive file: %w", err)
	}

	return nil
}

// doRequest performs a single HTTP request against the service base URL.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var requestBody io.Reader

	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		requestBody = bytes.NewBuffer(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range c.config.DefaultHeaders {
		req.Header.Set(key, value)
	}

	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	return c.httpClient.Do(req)
}

// handleResponse processes the HTTP response and unmarshals JSON if
// successful.
func (c *Client) handleResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errorResponse struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}

		message := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if json.Unmarshal(body, &errorResponse) == nil {
			if errorResponse.Error != "" {
				message = errorResponse.Error
			} else if errorResponse.Message != "" {
				message = errorResponse.Message
			}
		}

		return &Error{
			StatusCode: resp.StatusCode,
			Message:    message,
			Body:       string(body),
			RequestID:  resp.Header.Get("X-Request-ID"),
		}
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}
