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
	"context"
	"errors"
)

// ErrNotFound is returned by Gateway.Account for an unknown account id.
var ErrNotFound = errors.New("ledger: account not found")

// Gateway is the narrow surface of the external ledger. Submit must be safe
// to repeat verbatim after a failure: the ledger rejects or no-ops
// duplicate-looking resubmissions rather than double-applying them — the
// retry policy in the monitoring engine relies on this.
type Gateway interface {
	// Submit queues a transaction for validation. A nil return means the
	// ledger accepted the update.
	Submit(ctx context.Context, tx *Transaction) error
	// Account returns the current account for id, or ErrNotFound.
	Account(ctx context.Context, id string) (*Account, error)
}
