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

// Package ledger holds the transaction and account model for the external
// verifiable ledger, and the Gateway interface the monitoring engine
// submits through. The ledger's own validation and consensus are out of
// scope; this package only prepares, signs and locally applies updates.
package ledger

// OperationType discriminates the operation union.
type OperationType string

// Operation types accepted by the ledger.
const (
	OpRegisterService OperationType = "register_service"
	OpCreateAccount   OperationType = "create_account"
	OpSetData         OperationType = "set_data"
)

// Operation is the payload of a transaction. Which fields are meaningful
// depends on Type:
//
//   - OpRegisterService: ID, Key.
//   - OpCreateAccount: ID, ServiceID, Challenge, Key. Challenge is the
//     service identity's signature over HashItems(id, service_id, key).
//   - OpSetData: Data, DataSignature. Data is the externally signed body
//     (a checkpoint's signature input); DataSignature carries the external
//     signer's key and signature.
type Operation struct {
	Type          OperationType    `json:"type"`
	ID            string           `json:"id,omitempty"`
	ServiceID     string           `json:"service_id,omitempty"`
	Challenge     []byte           `json:"challenge,omitempty"`
	Key           VerifyingKey     `json:"key,omitempty"`
	Data          []byte           `json:"data,omitempty"`
	DataSignature *SignatureBundle `json:"data_signature,omitempty"`
}

// SignatureBundle pairs externally signed data with the DER-encoded key
// that signed it, so the ledger can verify provenance without knowing the
// signer.
type SignatureBundle struct {
	VerifyingKeyDER []byte `json:"verifying_key"`
	Signature       []byte `json:"signature"`
}
