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

// Package ctlog talks the RFC 6962 wire protocol to CT logs and turns their
// signed tree heads into checkpoints the monitoring engine can compare and
// forward.
package ctlog

import (
	"encoding/base64"

	ct "github.com/google/certificate-transparency-go"
)

// Checkpoint is a log's signed commitment to its current tree. Two
// checkpoints refer to the same tree state iff their RootHash bytes are
// equal; TreeSize is informational.
type Checkpoint struct {
	TreeSize  uint64
	Timestamp uint64 // Milliseconds since the epoch, as reported by the log.
	RootHash  [32]byte
	// Signature is the DER-encoded signature over SignatureInput, with the
	// TLS DigitallySigned header already consumed.
	Signature []byte
}

// SignatureInput returns the RFC 6962 TreeHeadSignature structure the log
// signed. This is the body forwarded to the ledger.
func (c *Checkpoint) SignatureInput() ([]byte, error) {
	sth := ct.SignedTreeHead{
		Version:        ct.V1,
		TreeSize:       c.TreeSize,
		Timestamp:      c.Timestamp,
		SHA256RootHash: ct.SHA256Hash(c.RootHash),
	}
	return ct.SerializeSTHSignatureInput(sth)
}

// RootHashString returns the root hash in the base64 form logs list it in.
func (c *Checkpoint) RootHashString() string {
	return base64.StdEncoding.EncodeToString(c.RootHash[:])
}

func fromSignedTreeHead(sth *ct.SignedTreeHead) *Checkpoint {
	return &Checkpoint{
		TreeSize:  sth.TreeSize,
		Timestamp: sth.Timestamp,
		RootHash:  [32]byte(sth.SHA256RootHash),
		Signature: sth.TreeHeadSignature.Signature,
	}
}
