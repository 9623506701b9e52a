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

package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	"github.com/deltadevsde/prism-ct-service/ctlog"
	"github.com/deltadevsde/prism-ct-service/ledger"
	"github.com/deltadevsde/prism-ct-service/loglist"
	"github.com/deltadevsde/prism-ct-service/util/backoff"
)

// submitRetryPause is the fixed pause between submission retries. Retries
// continue until the ledger acknowledges the update or the watcher's
// context is canceled.
const submitRetryPause = time.Second

// watcher monitors a single log. It owns all of its state; no other
// goroutine touches it.
type watcher struct {
	log      loglist.Log
	source   ctlog.Source
	ledger   ledger.Gateway
	signer   *ledger.SigningKey
	interval time.Duration
	// retryPause overrides submitRetryPause when non-zero; used in tests.
	retryPause time.Duration

	// account tracks the log's ledger account position; lastRoot the most
	// recently seen checkpoint root. Both advance only after the ledger
	// has acknowledged the corresponding update, except that an anomalous
	// (unverifiable) checkpoint moves lastRoot without a submission.
	account  ledger.Account
	lastRoot [32]byte
}

// runWatcher bootstraps and runs the watcher for one log. Setup errors —
// an unparseable log key or a failed account bootstrap — are fatal to this
// watcher only; steady-state errors never are.
func (s *Supervisor) runWatcher(ctx context.Context, log loglist.Log) error {
	if _, err := ctlog.ParsePublicKey(log.Key); err != nil {
		return fmt.Errorf("log %s: %w", log.URL, err)
	}
	source, err := s.opts.NewSource(log)
	if err != nil {
		return fmt.Errorf("creating source for log %s: %w", log.URL, err)
	}

	w := &watcher{
		log:      log,
		source:   source,
		ledger:   s.ledger,
		signer:   s.signer,
		interval: s.opts.PollInterval,
	}
	if err := w.bootstrapAccount(ctx); err != nil {
		return fmt.Errorf("bootstrapping account for log %s: %w", log.URL, err)
	}
	return w.run(ctx)
}

// bootstrapAccount adopts the log's existing ledger account, or creates it
// with a single submission. Creation is deliberately not retried: a failed
// creation must surface rather than risk submitting duplicates. Adopting an
// existing account starts monitoring from "now"; historical checkpoints are
// not replayed.
func (w *watcher) bootstrapAccount(ctx context.Context) error {
	existing, err := w.ledger.Account(ctx, w.log.LogID)
	if err == nil {
		klog.V(1).Infof("Account %s (%s) exists already", w.log.LogID, w.log.Description)
		w.account = *existing
		return nil
	}
	if !errors.Is(err, ledger.ErrNotFound) {
		return err
	}

	vk := w.signer.Verifier()
	challenge := ledger.HashItems([]byte(w.log.LogID), []byte(ServiceID), vk)
	tx, err := w.account.PrepareTransaction(w.log.LogID, ledger.Operation{
		Type:      ledger.OpCreateAccount,
		ID:        w.log.LogID,
		ServiceID: ServiceID,
		Challenge: w.signer.Sign(challenge[:]),
		Key:       vk,
	}, w.signer)
	if err != nil {
		return err
	}

	klog.V(1).Infof("Submitting transaction to create account %s (%s)", w.log.LogID, w.log.Description)
	if err := w.ledger.Submit(ctx, tx); err != nil {
		return err
	}
	return w.account.ApplyTransaction(tx)
}

// run polls the log at a fixed interval until ctx is canceled. A submission
// in flight blocks the next poll; there is never more than one pending
// update per log.
func (w *watcher) run(ctx context.Context) error {
	for {
		if err := w.pollOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.interval):
		}
	}
}

// pollOnce fetches the log's current checkpoint and reacts to one of three
// outcomes: a verified checkpoint (submit if the root changed), a hard
// fetch error (log and move on), or a readable-but-unverifiable head (log
// and observe; never submit). The returned error is non-nil only on
// context cancellation.
func (w *watcher) pollOnce(ctx context.Context) error {
	polls.Inc(w.log.LogID)
	cp, err := w.source.Latest(ctx)
	switch {
	case err == nil:
		if cp.RootHash == w.lastRoot {
			return nil
		}
		checkpointsObserved.Inc(w.log.LogID)
		return w.submit(ctx, cp)

	case cp != nil:
		pollAnomalies.Inc(w.log.LogID)
		klog.Errorf("Anomalous checkpoint from %s: %v", w.log.Description, err)
		if cp.RootHash != w.lastRoot {
			// Observed for visibility only: no cryptographic confidence,
			// so nothing is submitted.
			w.lastRoot = cp.RootHash
			klog.V(1).Infof("%s: %s (unverified)", w.log.Description, cp.RootHashString())
		}
		return nil

	default:
		pollErrors.Inc(w.log.LogID)
		klog.Errorf("Error fetching checkpoint from %s: %v", w.log.Description, err)
		return nil
	}
}

// submit forwards the checkpoint to the ledger and blocks until it is
// acknowledged, retrying the same transaction verbatim with a fixed pause.
// Local state advances strictly after acknowledgment, so a restart can
// never skip past a checkpoint the ledger has not recorded.
func (w *watcher) submit(ctx context.Context, cp *ctlog.Checkpoint) error {
	body, err := cp.SignatureInput()
	if err != nil {
		// Leaves lastRoot untouched; the next poll retries the checkpoint.
		klog.Errorf("Error serializing checkpoint from %s: %v", w.log.Description, err)
		return nil
	}
	tx, err := w.account.PrepareTransaction(w.log.LogID, ledger.Operation{
		Type: ledger.OpSetData,
		Data: body,
		DataSignature: &ledger.SignatureBundle{
			VerifyingKeyDER: w.log.Key,
			Signature:       cp.Signature,
		},
	}, w.signer)
	if err != nil {
		klog.Errorf("Error preparing update for %s: %v", w.log.Description, err)
		return nil
	}

	pause := w.retryPause
	if pause == 0 {
		pause = submitRetryPause
	}
	b := backoff.Backoff{Min: pause, Max: pause, Factor: 1}
	start := time.Now()
	if err := b.Retry(ctx, func() error {
		if err := w.ledger.Submit(ctx, tx); err != nil {
			submissionFailures.Inc(w.log.LogID)
			klog.Errorf("Error submitting update for %s: %v", w.log.URL, err)
			return err
		}
		return nil
	}); err != nil {
		// Retry only gives up when ctx is done.
		return ctx.Err()
	}
	submitLatency.Observe(time.Since(start).Seconds(), w.log.LogID)
	submissions.Inc(w.log.LogID)

	if err := w.account.ApplyTransaction(tx); err != nil {
		return fmt.Errorf("applying acknowledged update for %s: %w", w.log.LogID, err)
	}
	w.lastRoot = cp.RootHash
	klog.V(1).Infof("%s: %s", w.log.Description, cp.RootHashString())
	return nil
}
