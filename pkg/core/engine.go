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

// Package core wires the catalog, directory, dispatcher, aggregator and
// pollers into a single engine bound to one organization.
package core

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/carverauto/fleetcmd/pkg/api"
	"github.com/carverauto/fleetcmd/pkg/catalog"
	"github.com/carverauto/fleetcmd/pkg/directory"
	"github.com/carverauto/fleetcmd/pkg/dispatch"
	"github.com/carverauto/fleetcmd/pkg/kv"
	"github.com/carverauto/fleetcmd/pkg/logger"
	"github.com/carverauto/fleetcmd/pkg/models"
	"github.com/carverauto/fleetcmd/pkg/poller"
	"github.com/carverauto/fleetcmd/pkg/status"
)

// Engine is the entry point used by the CLI.
type Engine struct {
	cfg        *Config
	base       logger.Logger
	logger     logger.Logger
	catalog    *catalog.Catalog
	client     *api.Client
	store      kv.KVStore
	directory  *directory.Cache
	dispatcher *dispatch.Dispatcher
	aggregator *status.Aggregator
	clock      poller.Clock
	httpClient *http.Client

	mu       sync.Mutex
	watchers map[string]*poller.Watcher
	closed   bool
}

// Option customizes engine construction.
type Option func(*Engine)

// WithStore uses store for persisted roster entries instead of building one
// from the config.
func WithStore(store kv.KVStore) Option {
	return func(e *Engine) { e.store = store }
}

// WithHTTPClient overrides the API transport.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.httpClient = c }
}

// WithClock drives watchers from clock.
func WithClock(clock poller.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithCatalog replaces the configured action catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(e *Engine) { e.catalog = c }
}

// NewEngine validates cfg and builds every component. The caller must Close
// the engine.
func NewEngine(ctx context.Context, cfg *Config, log logger.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, errConfigRequired
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	e := &Engine{
		cfg:      cfg,
		base:     log,
		logger:   logger.Component(log, "engine"),
		watchers: make(map[string]*poller.Watcher),
	}

	for _, opt := range opts {
		opt(e)
	}

	if err := e.initCatalog(); err != nil {
		return nil, err
	}

	client, err := api.NewClient(api.Config{
		BaseURL:           cfg.APIBaseURL,
		Token:             cfg.APIToken,
		Timeout:           cfg.RequestTimeout.Std(),
		RequestsPerSecond: cfg.RequestsPerSecond,
		HTTPClient:        e.httpClient,
	}, logger.Component(log, "api"))
	if err != nil {
		return nil, err
	}

	e.client = client

	if err := e.initStore(ctx, log); err != nil {
		return nil, err
	}

	e.directory = directory.New(client, e.store, directory.Config{
		TTL:          cfg.DirectoryTTL.Std(),
		DeviceLimit:  cfg.DeviceLimit,
		FetchTimeout: cfg.RequestTimeout.Std(),
	}, logger.Component(log, "directory"))

	e.dispatcher = dispatch.New(e.catalog, client, logger.Component(log, "dispatch"))
	e.aggregator = status.New(client, e.directory, logger.Component(log, "status"))

	e.logger.Info().
		Str("api", cfg.APIBaseURL).
		Str("org_id", cfg.OrgID).
		Str("catalog_version", e.catalog.Version()).
		Bool("nats_kv", cfg.NATSURL != "").
		Msg("Engine initialized")

	return e, nil
}

func (e *Engine) initCatalog() error {
	if e.catalog != nil {
		return nil
	}

	if e.cfg.CatalogFile == "" {
		e.catalog = catalog.Default()

		return nil
	}

	c, err := catalog.LoadFile(e.cfg.CatalogFile)
	if err != nil {
		return err
	}

	e.catalog = c

	return nil
}

func (e *Engine) initStore(ctx context.Context, log logger.Logger) error {
	if e.store != nil {
		return nil
	}

	if e.cfg.NATSURL == "" {
		e.store = kv.NewMemoryStore(0)

		return nil
	}

	store, err := kv.NewNatsStore(ctx, e.cfg.kvConfig(), logger.Component(log, "kv"))
	if err != nil {
		return err
	}

	e.store = store

	return nil
}

// OrgID is the organization every call is scoped to.
func (e *Engine) OrgID() string {
	return e.cfg.OrgID
}

// Catalog returns the action catalog in use.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Actions lists the catalog in display order.
func (e *Engine) Actions() []models.ActionDescriptor {
	return e.catalog.List()
}

// Devices returns the targetable roster. refresh bypasses the cache.
func (e *Engine) Devices(ctx context.Context, refresh bool) (*directory.Result, error) {
	if err := e.check(); err != nil {
		return nil, err
	}

	return e.directory.GetDevices(ctx, e.cfg.OrgID, directory.Options{SkipCache: refresh})
}

// DispatchRequest is a dispatch scoped to the engine's org.
type DispatchRequest struct {
	ActionType string
	// TargetDeviceIDs are checked against the roster; empty broadcasts.
	TargetDeviceIDs []string
	Parameters      string
}

// Dispatch submits an action. Explicit targets are filtered against the
// current roster first, and a selection that filters down to nothing is
// rejected instead of widening to a broadcast.
func (e *Engine) Dispatch(ctx context.Context, req DispatchRequest) (*dispatch.Result, error) {
	if err := e.check(); err != nil {
		return nil, err
	}

	dr := dispatch.Request{
		OrgID:           e.cfg.OrgID,
		ActionType:      req.ActionType,
		TargetDeviceIDs: req.TargetDeviceIDs,
		Parameters:      req.Parameters,
	}

	// reject disabled or malformed requests before touching the roster
	if _, err := e.dispatcher.Validate(dr); err != nil {
		return nil, err
	}

	targets := req.TargetDeviceIDs

	if len(targets) > 0 {
		roster, err := e.directory.GetDevices(ctx, e.cfg.OrgID, directory.Options{})
		if err != nil {
			return nil, err
		}

		selected, err := dispatch.SelectTargets(targets, roster.Devices)
		if err != nil {
			return nil, err
		}

		if dropped := len(targets) - len(selected); dropped > 0 {
			e.logger.Warn().
				Int("requested", len(targets)).
				Int("dropped", dropped).
				Msg("Ignoring targets that are not in the roster or not enabled")
		}

		targets = selected
	}

	dr.TargetDeviceIDs = targets

	return e.dispatcher.Dispatch(ctx, dr)
}

// Commands lists recent commands, newest first. A zero limit uses the
// configured default.
func (e *Engine) Commands(ctx context.Context, filter status.Filter, limit int) ([]models.Command, error) {
	if err := e.check(); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = e.cfg.CommandLimit
	}

	return e.aggregator.ListCommands(ctx, e.cfg.OrgID, filter, limit)
}

// Detail fetches one command with per-device status.
func (e *Engine) Detail(ctx context.Context, commandID string) (*models.CommandDetail, error) {
	if err := e.check(); err != nil {
		return nil, err
	}

	detail, err := e.aggregator.GetCommandDetail(ctx, e.cfg.OrgID, commandID)

	// a one-off lookup keeps no state unless a watcher owns the command
	e.mu.Lock()
	if _, watched := e.watchers[commandID]; !watched {
		e.aggregator.Forget(e.cfg.OrgID, commandID)
	}
	e.mu.Unlock()

	return detail, err
}

// Cancel asks the server to cancel a command. Local state is left for the
// next refresh to report.
func (e *Engine) Cancel(ctx context.Context, commandID string) error {
	if err := e.check(); err != nil {
		return err
	}

	return e.dispatcher.Cancel(ctx, e.cfg.OrgID, commandID)
}

// Watch starts polling a command. A nil nextCheckAt refreshes immediately;
// otherwise the first check waits for the hint. Watching a command that is
// already watched replaces the previous watcher.
func (e *Engine) Watch(
	ctx context.Context, commandID string, nextCheckAt *time.Time, onEvent func(poller.Event),
) (*poller.Watcher, error) {
	if err := e.check(); err != nil {
		return nil, err
	}

	var w *poller.Watcher

	w, err := poller.NewWatcher(e.aggregator, poller.WatcherConfig{
		OrgID:      e.cfg.OrgID,
		CommandID:  commandID,
		Floor:      e.cfg.PollFloor.Std(),
		MaxBackoff: e.cfg.PollMaxBackoff.Std(),
		Clock:      e.clock,
		OnEvent: func(ev poller.Event) {
			if ev.Type == poller.EventResolved || ev.Type == poller.EventFailed {
				e.release(commandID, w)
			}

			if onEvent != nil {
				onEvent(ev)
			}
		},
	}, logger.Component(e.base, "poller"))
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if prev, ok := e.watchers[commandID]; ok {
		prev.Stop()
	}
	e.watchers[commandID] = w
	e.mu.Unlock()

	if err := w.StartAt(ctx, nextCheckAt); err != nil && !models.IsRetryable(err) {
		w.Stop()
		e.release(commandID, w)

		return nil, err
	}

	return w, nil
}

// Watching reports the number of active watchers.
func (e *Engine) Watching() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.watchers)
}

func (e *Engine) release(commandID string, w *poller.Watcher) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cur, ok := e.watchers[commandID]; ok && cur == w {
		delete(e.watchers, commandID)
		e.aggregator.Forget(e.cfg.OrgID, commandID)
	}
}

func (e *Engine) check() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return errEngineClosed
	}

	return nil
}

// Close stops every watcher and releases the store. It is idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()

		return nil
	}

	e.closed = true
	watchers := e.watchers
	e.watchers = make(map[string]*poller.Watcher)
	e.mu.Unlock()

	for id, w := range watchers {
		w.Stop()
		e.aggregator.Forget(e.cfg.OrgID, id)
	}

	e.directory.Close()

	var errs []error

	if err := e.store.Close(); err != nil {
		errs = append(errs, err)
	}

	e.logger.Info().Int("watchers_stopped", len(watchers)).Msg("Engine closed")

	return errors.Join(errs...)
}
