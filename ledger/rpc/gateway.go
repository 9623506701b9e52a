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

// Package rpc implements the ledger Gateway over the ledger's HTTP/JSON
// endpoints.
package rpc

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

	"github.com/deltadevsde/prism-ct-service/ledger"
)

const defaultRequestTimeout = 30 * time.Second

// Gateway talks to a remote ledger node.
type Gateway struct {
	hc   *http.Client
	base string
}

// New returns a Gateway for the ledger node at baseURL. A nil httpClient
// selects a default client with a request timeout.
func New(baseURL string, httpClient *http.Client) *Gateway {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &Gateway{hc: httpClient, base: strings.TrimRight(baseURL, "/")}
}

// Submit posts the transaction for validation. Any non-2xx response is an
// error; the caller decides whether to retry.
func (g *Gateway) Submit(ctx context.Context, tx *ledger.Transaction) error {
	body, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encoding transaction: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.base+"/v1/transactions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.hc.Do(req)
	if err != nil {
		return fmt.Errorf("submitting transaction: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("ledger rejected transaction: %s: %s", resp.Status, bytes.TrimSpace(msg))
	}
	return nil
}

// Account fetches the current state of an account.
func (g *Gateway) Account(ctx context.Context, id string) (*ledger.Account, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.base+"/v1/accounts/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying account %q: %v", id, err)
	}
	defer func() { _ = resp.Body.Close() }()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ledger.ErrNotFound
	case resp.StatusCode/100 != 2:
		return nil, fmt.Errorf("querying account %q: %s", id, resp.Status)
	}
	var account ledger.Account
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return nil, fmt.Errorf("decoding account %q: %v", id, err)
	}
	return &account, nil
}
