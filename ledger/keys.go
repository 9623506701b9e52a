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

package ledger

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// SigningKey is the Ed25519 identity used to authenticate transactions
// submitted to the ledger.
type SigningKey struct {
	priv ed25519.PrivateKey
}

// GenerateSigningKey creates a fresh signing identity.
func GenerateSigningKey() (*SigningKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &SigningKey{priv: priv}, nil
}

// LoadSigningKey reads a PEM-encoded PKCS#8 Ed25519 private key from path.
func LoadSigningKey(path string) (*SigningKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading signing key: %v", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("signing key file is not PEM")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing signing key: %v", err)
	}
	priv, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("signing key is %T, want ed25519.PrivateKey", parsed)
	}
	return &SigningKey{priv: priv}, nil
}

// Sign signs the message with the identity's private key.
func (k *SigningKey) Sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}

// Verifier returns the public half of the identity.
func (k *SigningKey) Verifier() VerifyingKey {
	return VerifyingKey(k.priv.Public().(ed25519.PublicKey))
}

// VerifyingKey is a raw Ed25519 public key. It serializes to base64 in
// transaction JSON.
type VerifyingKey []byte

// Verify reports whether sig is a valid signature of message under the key.
func (v VerifyingKey) Verify(message, sig []byte) bool {
	if len(v) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(v), message, sig)
}

// Equal reports whether two keys hold the same bytes.
func (v VerifyingKey) Equal(other VerifyingKey) bool {
	return string(v) == string(other)
}
