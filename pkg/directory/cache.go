/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package directory is the stale-while-revalidate cache of each organization's
// targetable device roster.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/carverauto/fleetcmd/pkg/api"
	"github.com/carverauto/fleetcmd/pkg/kv"
	"github.com/carverauto/fleetcmd/pkg/logger"
	"github.com/carverauto/fleetcmd/pkg/models"
)

const (
	DefaultTTL          = 5 * time.Minute
	defaultDeviceLimit  = 1000
	defaultFetchTimeout = 30 * time.Second
	keyPrefix           = "devices."
)

var errCacheClosed = errors.New("device directory is closed")

// Config controls cache freshness and roster fetching.
type Config struct {
	TTL          time.Duration
	DeviceLimit  int
	FetchTimeout time.Duration
}

// Options modify a single lookup.
type Options struct {
	// SkipCache forces a synchronous fetch, used for explicit refreshes.
	SkipCache bool
}

// Result is a roster snapshot. Devices is owned by the caller.
type Result struct {
	Devices   []models.Device `json:"devices"`
	FetchedAt time.Time       `json:"fetchedAt"`
	Stale     bool            `json:"stale"`
	FromCache bool            `json:"fromCache"`
}

// entry is immutable once published.
type entry struct {
	Devices   []models.Device `json:"devices"`
	Timestamp time.Time       `json:"timestamp"`
}

// Cache serves rosters from memory or the KV store and revalidates stale
// entries in the background. Each org's entry is replaced with a single atomic
// pointer store, so readers observe either the old or the new roster.
type Cache struct {
	lister api.DeviceLister
	store  kv.KVStore
	logger logger.Logger
	nowFn  func() time.Time

	ttl          time.Duration
	limit        int
	fetchTimeout time.Duration

	entries      sync.Map // orgID -> *atomic.Pointer[entry]
	revalidating sync.Map // orgID -> struct{}
	group        singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
	// closeMu orders wg.Add in revalidate against Close
	closeMu sync.Mutex
}

// New builds a Cache. store may be nil, in which case entries live only in memory.
func New(lister api.DeviceLister, store kv.KVStore, cfg Config, log logger.Logger) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	if cfg.DeviceLimit <= 0 {
		cfg.DeviceLimit = defaultDeviceLimit
	}

	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Cache{
		lister:       lister,
		store:        store,
		logger:       log,
		nowFn:        time.Now,
		ttl:          cfg.TTL,
		limit:        cfg.DeviceLimit,
		fetchTimeout: cfg.FetchTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// GetDevices returns the roster for orgID.
//
// A fresh entry is returned without any network call. A stale entry is
// returned immediately and one background revalidation is started. With no
// entry the roster is fetched synchronously. SkipCache always fetches; on
// failure the previous roster, if any, is returned along with the error.
func (c *Cache) GetDevices(ctx context.Context, orgID string, opts Options) (*Result, error) {
	if orgID == "" {
		return nil, models.NewValidationError("GetDevices", models.ErrMissingOrg, "")
	}

	if c.closed.Load() {
		return nil, errCacheClosed
	}

	if opts.SkipCache {
		recordLookup(ctx, "forced")

		e, err := c.fetch(ctx, orgID, "forced")
		if err != nil {
			if prev := c.load(ctx, orgID); prev != nil {
				return c.result(prev, true), err
			}

			return nil, err
		}

		return c.result(e, false), nil
	}

	if e := c.load(ctx, orgID); e != nil {
		res := c.result(e, true)
		if res.Stale {
			recordLookup(ctx, "stale")
			c.revalidate(orgID)
		} else {
			recordLookup(ctx, "fresh")
		}

		return res, nil
	}

	recordLookup(ctx, "miss")

	e, err := c.fetch(ctx, orgID, "miss")
	if err != nil {
		return nil, err
	}

	return c.result(e, false), nil
}

// Close stops background revalidation and waits for in-flight work.
func (c *Cache) Close() {
	c.closeMu.Lock()
	if c.closed.Swap(true) {
		c.closeMu.Unlock()

		return
	}
	c.closeMu.Unlock()

	c.cancel()
	c.wg.Wait()
}

func (c *Cache) result(e *entry, fromCache bool) *Result {
	devices := make([]models.Device, len(e.Devices))
	copy(devices, e.Devices)

	return &Result{
		Devices:   devices,
		FetchedAt: e.Timestamp,
		Stale:     c.isStale(e),
		FromCache: fromCache,
	}
}

func (c *Cache) isStale(e *entry) bool {
	return c.nowFn().Sub(e.Timestamp) >= c.ttl
}

func (c *Cache) slot(orgID string) *atomic.Pointer[entry] {
	if p, ok := c.entries.Load(orgID); ok {
		return p.(*atomic.Pointer[entry])
	}

	p, _ := c.entries.LoadOrStore(orgID, new(atomic.Pointer[entry]))

	return p.(*atomic.Pointer[entry])
}

// publish installs e unless a newer roster is already present.
func (c *Cache) publish(orgID string, e *entry) {
	slot := c.slot(orgID)

	for {
		cur := slot.Load()
		if cur != nil && cur.Timestamp.After(e.Timestamp) {
			return
		}

		if slot.CompareAndSwap(cur, e) {
			return
		}
	}
}

// load returns the in-memory entry, falling back to the KV store. Store
// failures and undecodable values count as a miss.
func (c *Cache) load(ctx context.Context, orgID string) *entry {
	if e := c.slot(orgID).Load(); e != nil {
		return e
	}

	if c.store == nil {
		return nil
	}

	data, found, err := c.store.Get(ctx, storeKey(orgID))
	if err != nil {
		c.logger.Warn().Err(err).Str("org_id", orgID).Msg("Roster cache read failed, treating as miss")

		return nil
	}

	if !found {
		return nil
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil || e.Timestamp.IsZero() {
		c.logger.Warn().Err(err).Str("org_id", orgID).Msg("Discarding corrupt roster cache entry")

		return nil
	}

	c.publish(orgID, &e)

	return c.slot(orgID).Load()
}

func (c *Cache) fetch(ctx context.Context, orgID, mode string) (*entry, error) {
	v, err, _ := c.group.Do(orgID, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()

		start := time.Now()

		records, err := c.lister.ListDevices(fetchCtx, orgID, c.limit)

		recordRefresh(ctx, mode, time.Since(start), err)

		if err != nil {
			return nil, err
		}

		e := &entry{Devices: Normalize(records), Timestamp: c.nowFn()}

		c.publish(orgID, e)
		c.persist(ctx, orgID, e)

		c.logger.Debug().
			Str("org_id", orgID).
			Str("mode", mode).
			Int("devices", len(e.Devices)).
			Int("raw_devices", len(records)).
			Msg("Refreshed device roster")

		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch device roster for org %s: %w", orgID, err)
	}

	return v.(*entry), nil
}

func (c *Cache) persist(ctx context.Context, orgID string, e *entry) {
	if c.store == nil {
		return
	}

	data, err := json.Marshal(e)
	if err != nil {
		c.logger.Warn().Err(err).Str("org_id", orgID).Msg("Failed to encode roster cache entry")

		return
	}

	if err := c.store.Put(ctx, storeKey(orgID), data, 0); err != nil {
		c.logger.Warn().Err(err).Str("org_id", orgID).Msg("Failed to persist roster cache entry")
	}
}

// revalidate starts at most one background refresh per org. Failures are
// logged and leave the stored roster untouched.
func (c *Cache) revalidate(orgID string) {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed.Load() {
		return
	}

	if _, running := c.revalidating.LoadOrStore(orgID, struct{}{}); running {
		return
	}

	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		defer c.revalidating.Delete(orgID)

		if _, err := c.fetch(c.ctx, orgID, "background"); err != nil {
			c.logger.Warn().Err(err).Str("org_id", orgID).Msg("Background roster revalidation failed")
		}
	}()
}

// storeKey maps an org id onto a KV-safe key.
func storeKey(orgID string) string {
	var b strings.Builder

	b.Grow(len(keyPrefix) + len(orgID))
	b.WriteString(keyPrefix)

	for _, r := range orgID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			fmt.Fprintf(&b, "=%02X", r)
		}
	}

	return b.String()
}
