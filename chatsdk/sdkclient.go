// Package chatsdk talks to the chat REST API and the file server over HTTP.
package chatsdk

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/contenox/chatsync/apiframework"
)

// Config holds configuration for the SDK client
type Config struct {
	BaseURL  string
	FilesURL string
	Token    string
}

// Client implements the history, send, ack, user and channel APIs.
type Client struct {
	client   *http.Client
	baseURL  string
	filesURL string
	token    string
}

func NewClient(config Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	filesURL := config.FilesURL
	if filesURL == "" {
		filesURL = config.BaseURL
	}
	return &Client{
		client:   httpClient,
		baseURL:  strings.TrimSuffix(config.BaseURL, "/"),
		filesURL: strings.TrimSuffix(filesURL, "/"),
		token:    config.Token,
	}
}

// do sends the request and decodes a successful response into out when out is not nil.
func (c *Client) do(ctx context.Context, method, url string, body io.Reader, contentType string, wantStatus int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	apiframework.SetRequestHeaders(ctx, req, c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Bodyless calls take any 2xx; a call that expects a body must get exactly wantStatus.
	if out == nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return apiframework.HandleAPIError(resp)
		}
		return nil
	}
	if resp.StatusCode != wantStatus {
		return apiframework.HandleAPIError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
