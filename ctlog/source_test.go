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
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	ct "github.com/google/certificate-transparency-go"
	"github.com/google/certificate-transparency-go/tls"
)

func genTestKey(t *testing.T) (*ecdsa.PrivateKey, []byte) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey: %v", err)
	}
	return priv, der
}

// signCheckpoint fills in cp.Signature with priv's signature over the
// checkpoint's signature input.
func signCheckpoint(t *testing.T, priv *ecdsa.PrivateKey, cp *Checkpoint) {
	t.Helper()
	input, err := cp.SignatureInput()
	if err != nil {
		t.Fatalf("SignatureInput: %v", err)
	}
	digest := sha256.Sum256(input)
	sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
	if err != nil {
		t.Fatalf("SignASN1: %v", err)
	}
	cp.Signature = sig
}

func sthResponse(t *testing.T, cp *Checkpoint) []byte {
	t.Helper()
	ds := tls.DigitallySigned{
		Algorithm: tls.SignatureAndHashAlgorithm{
			Hash:      tls.SHA256,
			Signature: tls.ECDSA,
		},
		Signature: cp.Signature,
	}
	rawSig, err := tls.Marshal(ds)
	if err != nil {
		t.Fatalf("tls.Marshal: %v", err)
	}
	resp := ct.GetSTHResponse{
		TreeSize:          cp.TreeSize,
		Timestamp:         cp.Timestamp,
		SHA256RootHash:    cp.RootHash[:],
		TreeHeadSignature: rawSig,
	}
	body, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	return body
}

func TestVerifySignatureRoundTrip(t *testing.T) {
	priv, _ := genTestKey(t)
	cp := &Checkpoint{
		TreeSize:  1234,
		Timestamp: 1729844467796,
		RootHash:  sha256.Sum256([]byte("root")),
	}
	signCheckpoint(t, priv, cp)

	if err := VerifySignature(&priv.PublicKey, cp); err != nil {
		t.Errorf("VerifySignature=%v, want nil", err)
	}

	tampered := *cp
	tampered.TreeSize++
	if err := VerifySignature(&priv.PublicKey, &tampered); err == nil {
		t.Error("VerifySignature on tampered checkpoint succeeded, want error")
	}
}

func TestParsePublicKey(t *testing.T) {
	_, der := genTestKey(t)
	if _, err := ParsePublicKey(der); err != nil {
		t.Errorf("ParsePublicKey(valid)=%v, want nil", err)
	}

	if _, err := ParsePublicKey([]byte("not a key")); err == nil {
		t.Error("ParsePublicKey(garbage) succeeded, want error")
	}

	// A key on a different curve is rejected.
	p384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey(P384): %v", err)
	}
	p384der, err := x509.MarshalPKIXPublicKey(&p384.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey: %v", err)
	}
	if _, err := ParsePublicKey(p384der); err == nil {
		t.Error("ParsePublicKey(P-384 key) succeeded, want error")
	}
}

func TestHTTPSourceLatest(t *testing.T) {
	priv, der := genTestKey(t)
	cp := &Checkpoint{
		TreeSize:  77,
		Timestamp: 1729844467796,
		RootHash:  sha256.Sum256([]byte("tree")),
	}
	signCheckpoint(t, priv, cp)
	body := sthResponse(t, cp)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ct/v1/get-sth" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL, der, nil)
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}
	got, err := src.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest()=%v, want nil", err)
	}
	if got.RootHash != cp.RootHash {
		t.Errorf("Latest().RootHash=%x, want %x", got.RootHash, cp.RootHash)
	}
	if got.TreeSize != cp.TreeSize {
		t.Errorf("Latest().TreeSize=%d, want %d", got.TreeSize, cp.TreeSize)
	}
}

func TestHTTPSourceHardError(t *testing.T) {
	_, der := genTestKey(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL, der, nil)
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}
	cp, err := src.Latest(context.Background())
	if err == nil {
		t.Fatal("Latest() succeeded against a failing log, want error")
	}
	if cp != nil {
		t.Errorf("Latest() returned checkpoint %+v alongside hard error, want nil", cp)
	}
}

func TestHTTPSourceAnomaly(t *testing.T) {
	// The served tree head is signed by a different key than the one the
	// source trusts.
	rogue, _ := genTestKey(t)
	_, trustedDER := genTestKey(t)

	cp := &Checkpoint{
		TreeSize:  99,
		Timestamp: 1729844467796,
		RootHash:  sha256.Sum256([]byte("forged")),
	}
	signCheckpoint(t, rogue, cp)
	body := sthResponse(t, cp)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL, trustedDER, nil)
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}
	got, err := src.Latest(context.Background())
	var anomaly *AnomalyError
	if !errors.As(err, &anomaly) {
		t.Fatalf("Latest()=%v, want AnomalyError", err)
	}
	if got == nil {
		t.Fatal("Latest() returned nil checkpoint alongside anomaly, want the readable head")
	}
	if got.RootHash != cp.RootHash {
		t.Errorf("anomalous checkpoint RootHash=%x, want %x", got.RootHash, cp.RootHash)
	}
}
