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

package loglist

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/deltadevsde/prism-ct-service/util/clock"
)

type fakeFetcher struct {
	mu      sync.Mutex
	fetches int32
	list    *LogList
	err     error
}

func (f *fakeFetcher) Fetch(ctx context.Context) (*LogList, error) {
	atomic.AddInt32(&f.fetches, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.list, nil
}

func (f *fakeFetcher) count() int32 {
	return atomic.LoadInt32(&f.fetches)
}

func usableState() *State {
	return &State{Usable: &StateTimestamp{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}}
}

func rejectedState() *State {
	return &State{Rejected: &StateTimestamp{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}}
}

func acmeList() *LogList {
	return &LogList{
		Version: "1",
		Operators: []Operator{
			{
				Name: "Acme",
				Logs: []Log{
					{Description: "Acme usable", LogID: "L1", URL: "https://l1.example/", State: usableState()},
					{Description: "Acme rejected", LogID: "L2", URL: "https://l2.example/", State: rejectedState()},
				},
			},
		},
	}
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := &fakeFetcher{list: acmeList()}
	c := NewCache(f, DefaultTTL, clock.NewFake(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)))

	got, err := c.GetByID(ctx, "L1")
	if err != nil {
		t.Fatalf("GetByID(L1)=%v, want nil", err)
	}
	if got.LogID != "L1" || !got.Usable() {
		t.Errorf("GetByID(L1)=%+v, want the usable Acme log", got)
	}

	if _, err := c.GetByID(ctx, "L2"); !errors.Is(err, ErrLogNotFound) {
		t.Errorf("GetByID(L2)=%v, want ErrLogNotFound", err)
	}

	logs, err := c.AllByOperator(ctx, "Acme")
	if err != nil {
		t.Fatalf("AllByOperator(Acme)=%v, want nil", err)
	}
	want := []string{"L1"}
	var ids []string
	for _, l := range logs {
		ids = append(ids, l.LogID)
	}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("AllByOperator(Acme) ids mismatch (-want +got):\n%s", diff)
	}
}

func TestCacheUnknownOperatorEmpty(t *testing.T) {
	f := &fakeFetcher{list: acmeList()}
	c := NewCache(f, DefaultTTL, clock.NewFake(time.Now()))

	logs, err := c.AllByOperator(context.Background(), "Nobody")
	if err != nil {
		t.Fatalf("AllByOperator(Nobody)=%v, want nil", err)
	}
	if len(logs) != 0 {
		t.Errorf("AllByOperator(Nobody)=%v, want empty", logs)
	}
}

func TestCacheFreshnessNoRefresh(t *testing.T) {
	ctx := context.Background()
	ts := clock.NewFake(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))
	f := &fakeFetcher{list: acmeList()}
	c := NewCache(f, DefaultTTL, ts)

	// First access populates the cache.
	if _, err := c.GetByID(ctx, "L1"); err != nil {
		t.Fatalf("GetByID=%v, want nil", err)
	}
	if got, want := f.count(), int32(1); got != want {
		t.Fatalf("fetch count=%d, want %d", got, want)
	}

	// Accesses within the TTL are served from cache.
	ts.Advance(DefaultTTL - time.Second)
	for i := 0; i < 3; i++ {
		if _, err := c.AllByOperator(ctx, "Acme"); err != nil {
			t.Fatalf("AllByOperator=%v, want nil", err)
		}
	}
	if got, want := f.count(), int32(1); got != want {
		t.Errorf("fetch count=%d after fresh accesses, want %d", got, want)
	}
}

func TestCacheExpiryTriggersRefresh(t *testing.T) {
	ctx := context.Background()
	ts := clock.NewFake(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))
	f := &fakeFetcher{list: acmeList()}
	c := NewCache(f, DefaultTTL, ts)

	if _, err := c.GetByID(ctx, "L1"); err != nil {
		t.Fatalf("GetByID=%v, want nil", err)
	}

	// One second past the TTL a single access refreshes exactly once.
	ts.Advance(DefaultTTL + time.Second)
	if _, err := c.GetByID(ctx, "L1"); err != nil {
		t.Fatalf("GetByID after expiry=%v, want nil", err)
	}
	if got, want := f.count(), int32(2); got != want {
		t.Errorf("fetch count=%d, want %d", got, want)
	}

	// The refresh reset the clock; the next access is served from cache.
	if _, err := c.GetByID(ctx, "L1"); err != nil {
		t.Fatalf("GetByID=%v, want nil", err)
	}
	if got, want := f.count(), int32(2); got != want {
		t.Errorf("fetch count=%d, want %d", got, want)
	}
}

func TestCacheReplacedWholesale(t *testing.T) {
	ctx := context.Background()
	ts := clock.NewFake(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))
	f := &fakeFetcher{list: acmeList()}
	c := NewCache(f, DefaultTTL, ts)

	if _, err := c.GetByID(ctx, "L1"); err != nil {
		t.Fatalf("GetByID=%v, want nil", err)
	}

	// The next snapshot drops L1 and introduces L3 under a new operator.
	f.mu.Lock()
	f.list = &LogList{
		Version: "2",
		Operators: []Operator{
			{Name: "Beta", Logs: []Log{{Description: "Beta log", LogID: "L3", State: usableState()}}},
		},
	}
	f.mu.Unlock()

	ts.Advance(DefaultTTL + time.Second)
	if _, err := c.GetByID(ctx, "L1"); !errors.Is(err, ErrLogNotFound) {
		t.Errorf("GetByID(L1) after replacement=%v, want ErrLogNotFound", err)
	}
	if _, err := c.GetByID(ctx, "L3"); err != nil {
		t.Errorf("GetByID(L3)=%v, want nil", err)
	}
	logs, err := c.AllByOperator(ctx, "Acme")
	if err != nil {
		t.Fatalf("AllByOperator(Acme)=%v, want nil", err)
	}
	if len(logs) != 0 {
		t.Errorf("AllByOperator(Acme) after replacement=%v, want empty", logs)
	}
}

func TestCacheIDCollisionLastWriterWins(t *testing.T) {
	f := &fakeFetcher{list: &LogList{
		Operators: []Operator{
			{Name: "First", Logs: []Log{{Description: "first claim", LogID: "DUP", State: usableState()}}},
			{Name: "Second", Logs: []Log{{Description: "second claim", LogID: "DUP", State: usableState()}}},
		},
	}}
	c := NewCache(f, DefaultTTL, clock.NewFake(time.Now()))

	got, err := c.GetByID(context.Background(), "DUP")
	if err != nil {
		t.Fatalf("GetByID(DUP)=%v, want nil", err)
	}
	if got.Description != "second claim" {
		t.Errorf("GetByID(DUP).Description=%q, want the later operator's entry", got.Description)
	}
}

func TestCacheSurfacesFetchErrors(t *testing.T) {
	boom := &NetworkError{URL: "http://x", Err: errors.New("boom")}
	f := &fakeFetcher{err: boom}
	c := NewCache(f, DefaultTTL, clock.NewFake(time.Now()))

	if _, err := c.GetByID(context.Background(), "L1"); !errors.Is(err, boom) {
		t.Errorf("GetByID with failing fetcher=%v, want %v", err, boom)
	}
	if _, err := c.AllByOperator(context.Background(), "Acme"); !errors.Is(err, boom) {
		t.Errorf("AllByOperator with failing fetcher=%v, want %v", err, boom)
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	ts := clock.NewFake(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))
	f := &fakeFetcher{list: acmeList()}
	c := NewCache(f, DefaultTTL, ts)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := c.AllByOperator(context.Background(), "Acme"); err != nil {
					t.Errorf("AllByOperator=%v, want nil", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	// Concurrent first accesses may each have fetched; the directory content
	// must have converged regardless.
	if got, err := c.GetByID(context.Background(), "L1"); err != nil || got.LogID != "L1" {
		t.Errorf("GetByID(L1)=%+v, %v; want the usable log", got, err)
	}
}
