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

package ctlog

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"net/http"
	"time"

	"github.com/google/certificate-transparency-go/client"
	"github.com/google/certificate-transparency-go/jsonclient"
)

const defaultFetchTimeout = 30 * time.Second

// Source yields the latest checkpoint of a single log.
//
// Latest has three outcomes: (checkpoint, nil) when a verified checkpoint
// was obtained; (nil, err) when no checkpoint could be fetched at all; and
// (checkpoint, *AnomalyError) when a tree head was readable but could not
// be verified. Callers must not treat the third case as trustworthy.
type Source interface {
	Latest(ctx context.Context) (*Checkpoint, error)
}

// AnomalyError reports that a checkpoint was readable but failed
// verification.
type AnomalyError struct {
	Err error
}

func (e *AnomalyError) Error() string {
	return fmt.Sprintf("checkpoint anomaly: %v", e.Err)
}

func (e *AnomalyError) Unwrap() error { return e.Err }

// HTTPSource fetches tree heads over the RFC 6962 get-sth endpoint and
// verifies their signatures locally, so that a readable head with a bad
// signature still surfaces as a checkpoint (with an AnomalyError).
type HTTPSource struct {
	client *client.LogClient
	pub    *ecdsa.PublicKey
}

// NewHTTPSource returns a Source for the log at baseURL with the given
// DER-encoded public key. A nil httpClient selects a default client with a
// request timeout.
func NewHTTPSource(baseURL string, keyDER []byte, httpClient *http.Client) (*HTTPSource, error) {
	pub, err := ParsePublicKey(keyDER)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultFetchTimeout}
	}
	// Signature verification happens here, not in the client, to keep the
	// readable-but-unverifiable case observable.
	lc, err := client.New(baseURL, httpClient, jsonclient.Options{})
	if err != nil {
		return nil, fmt.Errorf("creating log client for %s: %v", baseURL, err)
	}
	return &HTTPSource{client: lc, pub: pub}, nil
}

// Latest fetches the log's current tree head. See Source for the outcome
// contract.
func (s *HTTPSource) Latest(ctx context.Context) (*Checkpoint, error) {
	sth, err := s.client.GetSTH(ctx)
	if err != nil {
		return nil, err
	}
	cp := fromSignedTreeHead(sth)
	if err := VerifySignature(s.pub, cp); err != nil {
		return cp, &AnomalyError{Err: err}
	}
	return cp, nil
}
