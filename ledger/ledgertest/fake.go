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

// Package ledgertest provides an in-memory ledger for tests: a Fake
// implementing ledger.Gateway directly, and an HTTP server wrapping one for
// exercising RPC clients.
package ledgertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/deltadevsde/prism-ct-service/ledger"
)

// Fake is an in-memory ledger.Gateway. Submissions apply transactions to
// in-memory accounts with prism-like duplicate handling: a transaction
// whose nonce is behind the account's chain position is acknowledged
// without being applied again.
type Fake struct {
	mu        sync.Mutex
	accounts  map[string]*ledger.Account
	submitted []*ledger.Transaction
	attempts  int

	failRemaining int
	failErr       error
}

// NewFake returns an empty in-memory ledger.
func NewFake() *Fake {
	return &Fake{accounts: make(map[string]*ledger.Account)}
}

// FailSubmissions makes the next n Submit calls fail with err before the
// fake resumes accepting transactions.
func (f *Fake) FailSubmissions(n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRemaining = n
	f.failErr = err
}

// SeedAccount installs an existing account, as if created by a previous
// process.
func (f *Fake) SeedAccount(account *ledger.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *account
	f.accounts[account.ID] = &cp
}

// Submit implements ledger.Gateway.
func (f *Fake) Submit(ctx context.Context, tx *ledger.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.failRemaining > 0 {
		f.failRemaining--
		return f.failErr
	}

	account, ok := f.accounts[tx.AccountID]
	if !ok {
		account = &ledger.Account{ID: tx.AccountID}
		f.accounts[tx.AccountID] = account
	}
	switch {
	case tx.Nonce < account.Nonce:
		// Duplicate-looking resubmission: acknowledged, not re-applied.
		return nil
	case tx.Nonce > account.Nonce:
		return fmt.Errorf("transaction nonce %d ahead of account %q position %d", tx.Nonce, tx.AccountID, account.Nonce)
	}
	if err := account.ApplyTransaction(tx); err != nil {
		return err
	}
	f.submitted = append(f.submitted, tx)
	return nil
}

// Account implements ledger.Gateway.
func (f *Fake) Account(ctx context.Context, id string) (*ledger.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	cp := *account
	return &cp, nil
}

// Attempts returns the number of Submit calls seen, including failed ones.
func (f *Fake) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

// Submissions returns the transactions applied so far, in order.
func (f *Fake) Submissions() []*ledger.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*ledger.Transaction, len(f.submitted))
	copy(out, f.submitted)
	return out
}

// SubmissionsFor returns the applied transactions targeting one account.
func (f *Fake) SubmissionsFor(id string) []*ledger.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*ledger.Transaction
	for _, tx := range f.submitted {
		if tx.AccountID == id {
			out = append(out, tx)
		}
	}
	return out
}
