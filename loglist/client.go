// Copyright 2025 the prism-ct-service Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package loglist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"k8s.io/klog/v2"
)

// GoogleAllLogsURL is the well-known v3 list of all known CT logs.
const GoogleAllLogsURL = "https://www.gstatic.com/ct/log_list/v3/all_logs_list.json"

const defaultFetchTimeout = 30 * time.Second

// NetworkError indicates the log list could not be retrieved.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetching log list from %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError indicates the retrieved payload was not a valid log list.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing log list: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Client fetches log lists over HTTP. It holds no retry or caching policy;
// that belongs to the Cache wrapping it.
type Client struct {
	hc  *http.Client
	url string
}

// NewClient returns a Client fetching from the given URL. A nil httpClient
// selects a default client with a request timeout.
func NewClient(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &Client{hc: httpClient, url: url}
}

// NewGoogleClient returns a Client fetching the Google all-logs list.
func NewGoogleClient() *Client {
	return NewClient(GoogleAllLogsURL, nil)
}

// Fetch retrieves and parses the log list from the configured URL.
func (c *Client) Fetch(ctx context.Context) (*LogList, error) {
	return c.FetchFrom(ctx, c.url)
}

// FetchFrom retrieves and parses a log list from the given URL, overriding
// the configured endpoint.
func (c *Client) FetchFrom(ctx context.Context, url string) (*LogList, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	klog.V(1).Infof("Fetched log list from %s: %s", url, resp.Status)
	if resp.StatusCode != http.StatusOK {
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("unexpected status %q", resp.Status)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}

	var list LogList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &list, nil
}
