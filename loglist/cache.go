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
	"time"

	"k8s.io/klog/v2"

	"github.com/deltadevsde/prism-ct-service/util/clock"
)

// DefaultTTL is how long a fetched log list is served before a refresh.
const DefaultTTL = 24 * time.Hour

// ErrLogNotFound is returned by GetByID when no usable log has the
// requested id.
var ErrLogNotFound = errors.New("loglist: log not found")

// Fetcher retrieves a log list snapshot. *Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context) (*LogList, error)
}

// cachedLogs is the derived index over the most recent snapshot. It is
// rebuilt from scratch and swapped wholesale on every refresh; the index
// maps always point into the logs slice of the same rebuild. Only usable
// logs are indexed.
type cachedLogs struct {
	logs          []Log
	byID          map[string]int
	byOperator    map[string][]int
	lastRefreshed time.Time
}

// Cache wraps a Fetcher with a TTL and lookup indices by log id and by
// operator name. The zero lastRefreshed time makes the first access refresh.
//
// The freshness check and the refresh are deliberately not mutually
// exclusive: two concurrent callers may both observe staleness and both
// fetch. The rebuild is idempotent and whichever swap happens last wins, so
// the state converges either way. The lock is never held across the fetch.
type Cache struct {
	fetcher    Fetcher
	ttl        time.Duration
	timeSource clock.TimeSource

	mu     sync.Mutex
	cached cachedLogs
}

// NewCache returns a Cache over the given fetcher. A ttl of 0 selects
// DefaultTTL.
func NewCache(fetcher Fetcher, ttl time.Duration, ts clock.TimeSource) *Cache {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	if ts == nil {
		ts = clock.System
	}
	return &Cache{fetcher: fetcher, ttl: ttl, timeSource: ts}
}

// GetByID returns the usable log with the given id, refreshing the cache
// first if it is stale.
func (c *Cache) GetByID(ctx context.Context, id string) (Log, error) {
	if err := c.refreshIfStale(ctx); err != nil {
		return Log{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.cached.byID[id]
	if !ok {
		return Log{}, ErrLogNotFound
	}
	return c.cached.logs[i], nil
}

// AllByOperator returns every usable log belonging to the named operator,
// refreshing the cache first if it is stale. An unknown operator yields an
// empty slice, not an error.
func (c *Cache) AllByOperator(ctx context.Context, operator string) ([]Log, error) {
	if err := c.refreshIfStale(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	indices := c.cached.byOperator[operator]
	logs := make([]Log, 0, len(indices))
	for _, i := range indices {
		logs = append(logs, c.cached.logs[i])
	}
	return logs, nil
}

func (c *Cache) refreshIfStale(ctx context.Context) error {
	now := c.timeSource.Now()

	c.mu.Lock()
	elapsed := now.Sub(c.cached.lastRefreshed)
	c.mu.Unlock()
	// A clock stepping backwards counts as stale.
	if fresh := elapsed >= 0 && elapsed < c.ttl; fresh {
		return nil
	}

	list, err := c.fetcher.Fetch(ctx)
	if err != nil {
		return err
	}

	next := cachedLogs{
		byID:          make(map[string]int),
		byOperator:    make(map[string][]int),
		lastRefreshed: now,
	}
	for _, operator := range list.Operators {
		indices := make([]int, 0, len(operator.Logs))
		for _, log := range operator.Logs {
			if !log.Usable() {
				continue
			}
			i := len(next.logs)
			next.logs = append(next.logs, log)
			// A duplicate id across operators overwrites the earlier
			// entry; well-formed lists have unique ids.
			next.byID[log.LogID] = i
			indices = append(indices, i)
		}
		next.byOperator[operator.Name] = indices
	}
	klog.V(1).Infof("Refreshed log list: %d usable logs across %d operators", len(next.logs), len(list.Operators))

	c.mu.Lock()
	c.cached = next
	c.mu.Unlock()
	return nil
}
