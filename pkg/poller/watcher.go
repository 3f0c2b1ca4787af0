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

package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/carverauto/fleetcmd/pkg/logger"
	"github.com/carverauto/fleetcmd/pkg/models"
)

// EventType identifies what a refresh produced.
type EventType int

const (
	// EventUpdated means fresh detail arrived and the next check is armed.
	EventUpdated EventType = iota
	// EventResolved means every device reached a terminal status. No more
	// checks are scheduled.
	EventResolved
	// EventStalled means the command is unresolved but the server gave no
	// hint for the next check.
	EventStalled
	// EventRefreshFailed means a transient failure; a retry is armed.
	EventRefreshFailed
	// EventFailed means a permanent failure; no retry is armed.
	EventFailed
)

func (e EventType) String() string {
	switch e {
	case EventUpdated:
		return "updated"
	case EventResolved:
		return "resolved"
	case EventStalled:
		return "stalled"
	case EventRefreshFailed:
		return "refresh_failed"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is delivered to WatcherConfig.OnEvent after each refresh that
// changes what a viewer should see.
type Event struct {
	Type      EventType
	CommandID string
	// Detail is the latest detail, possibly the last good one on failure.
	Detail *models.CommandDetail
	Err    error
	// Delay until the next scheduled check, zero when nothing is armed.
	Delay time.Duration
	At    time.Time
}

// WatcherConfig configures a single command watch.
type WatcherConfig struct {
	OrgID      string
	CommandID  string
	Floor      time.Duration
	MaxBackoff time.Duration
	Clock      Clock
	// OnEvent must not call Refresh. Calling Stop from it is safe.
	OnEvent func(Event)
	// backoffJitter overrides the retry randomization factor; tests pin it
	// to zero.
	backoffJitter *float64
}

// Watcher keeps one command's detail current by re-checking it when the
// server says new information may be available.
type Watcher struct {
	refresher Refresher
	cfg       WatcherConfig
	clock     Clock
	sched     *Scheduler
	logger    logger.Logger

	refreshMu sync.Mutex
	retry     *backoff.ExponentialBackOff
	failing   bool

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
	last    *models.CommandDetail
}

// NewWatcher validates cfg and returns an idle watcher.
func NewWatcher(refresher Refresher, cfg WatcherConfig, log logger.Logger) (*Watcher, error) {
	if refresher == nil {
		return nil, errRefresherRequired
	}

	if cfg.OrgID == "" {
		return nil, errOrgIDRequired
	}

	if cfg.CommandID == "" {
		return nil, errCommandIDRequired
	}

	pc := Config{Floor: models.Duration(cfg.Floor), MaxBackoff: models.Duration(cfg.MaxBackoff)}
	if err := pc.Validate(); err != nil {
		return nil, err
	}

	cfg.Floor = pc.Floor.Std()
	cfg.MaxBackoff = pc.MaxBackoff.Std()

	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = cfg.Floor
	retry.MaxInterval = cfg.MaxBackoff
	retry.Multiplier = 2

	if cfg.backoffJitter != nil {
		retry.RandomizationFactor = *cfg.backoffJitter
	}

	retry.Reset()

	w := &Watcher{
		refresher: refresher,
		cfg:       cfg,
		clock:     cfg.Clock,
		logger:    log,
		retry:     retry,
		ctx:       context.Background(),
	}

	w.sched = NewScheduler(cfg.Clock, cfg.Floor, w.onTimer)

	return w, nil
}

// Start refreshes immediately and keeps the command watched until it is
// resolved, a permanent error occurs, Stop is called or ctx ends.
func (w *Watcher) Start(ctx context.Context) (*models.CommandDetail, error) {
	if err := w.bind(ctx); err != nil {
		return nil, err
	}

	return w.Refresh(w.context())
}

// StartAt arms the first check from a submission hint. A nil hint refreshes
// immediately.
func (w *Watcher) StartAt(ctx context.Context, nextCheckAt *time.Time) error {
	if nextCheckAt == nil {
		_, err := w.Start(ctx)

		return err
	}

	if err := w.bind(ctx); err != nil {
		return err
	}

	delay := w.sched.Arm(*nextCheckAt)

	w.logger.Debug().
		Str("command_id", w.cfg.CommandID).
		Dur("delay", delay).
		Msg("First status check armed")

	return nil
}

// Refresh fetches the command now, replacing any pending check.
func (w *Watcher) Refresh(ctx context.Context) (*models.CommandDetail, error) {
	if w.isStopped() {
		return w.Last(), errWatcherStopped
	}

	w.refreshMu.Lock()
	defer w.refreshMu.Unlock()

	detail, err := w.refresher.GetCommandDetail(ctx, w.cfg.OrgID, w.cfg.CommandID)
	if err != nil {
		w.handleFailure(ctx, detail, err)

		return w.Last(), err
	}

	w.handleSuccess(ctx, detail)

	return detail, nil
}

// Stop disarms the watcher and cancels in-flight timer-driven refreshes.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()

		return
	}

	w.stopped = true
	cancel := w.cancel
	w.mu.Unlock()

	w.sched.Disarm()

	if cancel != nil {
		cancel()
	}
}

// Last returns the most recent successfully fetched detail.
func (w *Watcher) Last() *models.CommandDetail {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.last
}

// State reports the underlying scheduler state.
func (w *Watcher) State() State {
	return w.sched.State()
}

// Pending reports when the next check fires, if one is armed.
func (w *Watcher) Pending() (time.Time, bool) {
	return w.sched.Pending()
}

func (w *Watcher) bind(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return errWatcherStopped
	}

	if w.cancel != nil {
		w.cancel()
	}

	w.ctx, w.cancel = context.WithCancel(ctx)

	return nil
}

func (w *Watcher) context() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.ctx
}

func (w *Watcher) isStopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.stopped
}

func (w *Watcher) onTimer() {
	ctx := w.context()
	if ctx.Err() != nil {
		w.sched.Disarm()

		return
	}

	if _, err := w.Refresh(ctx); err != nil && !errors.Is(err, errWatcherStopped) {
		w.logger.Debug().
			Err(err).
			Str("command_id", w.cfg.CommandID).
			Msg("Scheduled status check failed")
	}
}

func (w *Watcher) handleSuccess(ctx context.Context, detail *models.CommandDetail) {
	w.mu.Lock()
	w.last = detail
	w.mu.Unlock()

	w.failing = false
	w.retry.Reset()

	ev := Event{CommandID: w.cfg.CommandID, Detail: detail, At: w.clock.Now()}

	switch {
	case detail.Resolved():
		w.sched.Disarm()
		ev.Type = EventResolved

		w.logger.Info().
			Str("command_id", w.cfg.CommandID).
			Str("overall_status", detail.OverallStatus.String()).
			Msg("Command resolved, polling stopped")
	case detail.NextCheckAt != nil:
		ev.Type = EventUpdated
		ev.Delay = w.sched.Arm(*detail.NextCheckAt)
	default:
		w.sched.Disarm()
		ev.Type = EventStalled

		w.logger.Warn().
			Str("command_id", w.cfg.CommandID).
			Msg("Command unresolved but no next check hint was provided")
	}

	if w.isStopped() {
		w.sched.Disarm()
	}

	recordRefresh(ctx, ev.Type)
	w.emit(ev)
}

func (w *Watcher) handleFailure(ctx context.Context, detail *models.CommandDetail, err error) {
	if detail != nil {
		w.mu.Lock()
		w.last = detail
		w.mu.Unlock()
	}

	if ctx.Err() != nil || w.isStopped() {
		w.sched.Disarm()

		return
	}

	ev := Event{CommandID: w.cfg.CommandID, Detail: w.Last(), Err: err, At: w.clock.Now()}

	if models.IsRetryable(err) {
		delay := w.retry.NextBackOff()
		if delay == backoff.Stop || delay > w.cfg.MaxBackoff {
			delay = w.cfg.MaxBackoff
		}

		ev.Delay = w.sched.ArmIn(delay)
		ev.Type = EventRefreshFailed

		first := !w.failing
		w.failing = true

		w.logger.Warn().
			Err(err).
			Str("command_id", w.cfg.CommandID).
			Dur("retry_in", ev.Delay).
			Msg("Status refresh failed, retrying")

		recordRefresh(ctx, ev.Type)

		if first {
			w.emit(ev)
		}

		return
	}

	w.sched.Disarm()
	ev.Type = EventFailed

	w.logger.Error().
		Err(err).
		Str("command_id", w.cfg.CommandID).
		Msg("Status refresh failed permanently, polling stopped")

	recordRefresh(ctx, ev.Type)
	w.emit(ev)
}

func (w *Watcher) emit(ev Event) {
	if w.cfg.OnEvent != nil {
		w.cfg.OnEvent(ev)
	}
}
