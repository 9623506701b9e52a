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
	"encoding/json"
	"fmt"
)

// Account is the local view of a ledger account: the position in its
// transaction chain plus the keys authorized to extend it. The zero value
// is the pre-creation state from which the first transaction is prepared.
type Account struct {
	ID    string         `json:"id"`
	Nonce uint64         `json:"nonce"`
	Keys  []VerifyingKey `json:"keys,omitempty"`
}

// Transaction is a signed, nonce-ordered update to one account.
type Transaction struct {
	AccountID string    `json:"account_id"`
	Nonce     uint64    `json:"nonce"`
	Operation Operation `json:"operation"`
	Signature []byte    `json:"signature"`
}

// Digest returns the hash the transaction signature covers: everything but
// the signature itself.
func (t *Transaction) Digest() (Digest, error) {
	unsigned := struct {
		AccountID string    `json:"account_id"`
		Nonce     uint64    `json:"nonce"`
		Operation Operation `json:"operation"`
	}{t.AccountID, t.Nonce, t.Operation}
	encoded, err := json.Marshal(unsigned)
	if err != nil {
		return Digest{}, fmt.Errorf("encoding transaction: %v", err)
	}
	return HashItems(encoded), nil
}

// PrepareTransaction builds and signs the next transaction for the account
// at its current chain position. The account itself is not modified; call
// ApplyTransaction once the ledger has accepted the update.
func (a *Account) PrepareTransaction(id string, op Operation, sk *SigningKey) (*Transaction, error) {
	tx := &Transaction{
		AccountID: id,
		Nonce:     a.Nonce,
		Operation: op,
	}
	digest, err := tx.Digest()
	if err != nil {
		return nil, err
	}
	tx.Signature = sk.Sign(digest[:])
	return tx, nil
}

// ApplyTransaction advances the local account state past an acknowledged
// transaction. It must only be called after the ledger accepted the update.
func (a *Account) ApplyTransaction(tx *Transaction) error {
	if a.ID != "" && tx.AccountID != a.ID {
		return fmt.Errorf("transaction for account %q applied to account %q", tx.AccountID, a.ID)
	}
	if tx.Nonce != a.Nonce {
		return fmt.Errorf("transaction nonce %d applied at chain position %d", tx.Nonce, a.Nonce)
	}
	a.ID = tx.AccountID
	a.Nonce++
	switch tx.Operation.Type {
	case OpRegisterService, OpCreateAccount:
		if len(tx.Operation.Key) > 0 {
			a.Keys = append(a.Keys, tx.Operation.Key)
		}
	}
	return nil
}
