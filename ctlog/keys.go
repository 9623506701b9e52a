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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"
)

// ParsePublicKey parses a log's DER-encoded public key and checks it uses
// the ECDSA P-256 scheme CT logs sign tree heads with. A log whose key does
// not parse cannot be monitored.
func ParsePublicKey(der []byte) (*ecdsa.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parsing log public key: %v", err)
	}
	ec, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("log public key is %T, want *ecdsa.PublicKey", pub)
	}
	if ec.Curve != elliptic.P256() {
		return nil, errors.New("log public key is not on the P-256 curve")
	}
	return ec, nil
}

// VerifySignature checks the checkpoint's signature against the log's
// public key.
func VerifySignature(pub *ecdsa.PublicKey, cp *Checkpoint) error {
	input, err := cp.SignatureInput()
	if err != nil {
		return fmt.Errorf("serializing signature input: %v", err)
	}
	digest := sha256.Sum256(input)
	if !ecdsa.VerifyASN1(pub, digest[:], cp.Signature) {
		return errors.New("tree head signature verification failed")
	}
	return nil
}
