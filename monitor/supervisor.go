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

// Package monitor continuously watches a set of CT logs and forwards every
// new checkpoint into the ledger as an authenticated transaction. One
// watcher runs per log; watchers share no mutable state.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/deltadevsde/prism-ct-service/ctlog"
	"github.com/deltadevsde/prism-ct-service/ledger"
	"github.com/deltadevsde/prism-ct-service/loglist"
	"github.com/deltadevsde/prism-ct-service/monitoring"
)

// ServiceID is the well-known ledger account of the monitoring service
// itself. Log accounts are created under this service identity.
const ServiceID = "ct_service"

// DefaultPollInterval is how often each watcher asks its log for a new
// checkpoint.
const DefaultPollInterval = 60 * time.Second

// Options adjusts Supervisor behavior. The zero value selects defaults.
type Options struct {
	// PollInterval between checkpoint fetches per log; DefaultPollInterval
	// if zero.
	PollInterval time.Duration
	// MetricFactory for the engine's metrics; inert if nil.
	MetricFactory monitoring.MetricFactory
	// NewSource builds the checkpoint source for a log. Defaults to an
	// HTTP source against the log's URL. Tests replace it.
	NewSource func(log loglist.Log) (ctlog.Source, error)
}

// Supervisor resolves operators to their usable logs and runs one watcher
// per log. It tracks watcher goroutines so shutdown can drain them, but a
// watcher that dies is not restarted.
type Supervisor struct {
	logs   *loglist.Cache
	ledger ledger.Gateway
	signer *ledger.SigningKey
	opts   Options

	group *errgroup.Group
}

// NewSupervisor returns a Supervisor monitoring through the given directory
// cache and ledger gateway, signing as the given service identity.
func NewSupervisor(logs *loglist.Cache, gw ledger.Gateway, signer *ledger.SigningKey, opts Options) *Supervisor {
	if opts.PollInterval == 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.NewSource == nil {
		opts.NewSource = func(log loglist.Log) (ctlog.Source, error) {
			return ctlog.NewHTTPSource(log.URL, log.Key, nil)
		}
	}
	once.Do(func() { createMetrics(opts.MetricFactory) })
	return &Supervisor{logs: logs, ledger: gw, signer: signer, opts: opts}
}

// Start registers the service identity, resolves every requested operator
// and spawns one watcher per usable log. It returns an error, and starts
// nothing further, if registration fails or an operator cannot be resolved:
// an operator the caller explicitly asked to monitor must resolve.
//
// Watchers run until ctx is canceled; use Wait to drain them. A watcher
// failing to bootstrap is logged and released without affecting the others.
func (s *Supervisor) Start(ctx context.Context, operators []string) error {
	if err := s.registerService(ctx); err != nil {
		return fmt.Errorf("registering service identity: %w", err)
	}

	group, gctx := errgroup.WithContext(ctx)
	for _, operator := range operators {
		logs, err := s.logs.AllByOperator(ctx, operator)
		if err != nil {
			return fmt.Errorf("resolving logs for operator %q: %w", operator, err)
		}
		klog.V(1).Infof("Found %d logs for operator %s", len(logs), operator)

		for _, log := range logs {
			log := log
			klog.Infof("Spawning watcher for %s", log.Description)
			group.Go(func() error {
				watchersRunning.Inc()
				defer watchersRunning.Dec()
				err := s.runWatcher(gctx, log)
				if err != nil && !errors.Is(err, context.Canceled) {
					klog.Errorf("Watcher for %s exited: %v", log.Description, err)
				}
				// Watcher failures do not cancel sibling watchers.
				return nil
			})
		}
	}
	s.group = group
	return nil
}

// Wait blocks until every watcher has returned. Watchers only return once
// the context passed to Start is canceled or their own setup failed, so
// Wait is effectively the supervisor's shutdown join point.
func (s *Supervisor) Wait() error {
	if s.group == nil {
		return nil
	}
	return s.group.Wait()
}

// registerService makes sure the service identity has a ledger account,
// submitting a registration transaction only when none exists. The check
// then register is idempotent across sequential runs, but not safe to race
// from multiple processes without external coordination.
func (s *Supervisor) registerService(ctx context.Context) error {
	if _, err := s.ledger.Account(ctx, ServiceID); err == nil {
		klog.V(1).Info("Service already registered")
		return nil
	} else if !errors.Is(err, ledger.ErrNotFound) {
		return err
	}

	var account ledger.Account
	tx, err := account.PrepareTransaction(ServiceID, ledger.Operation{
		Type: ledger.OpRegisterService,
		ID:   ServiceID,
		Key:  s.signer.Verifier(),
	}, s.signer)
	if err != nil {
		return err
	}

	klog.V(1).Info("Submitting transaction to register service identity")
	return s.ledger.Submit(ctx, tx)
}
