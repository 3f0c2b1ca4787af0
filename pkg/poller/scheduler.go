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

// Package poller schedules status checks for watched commands from
// server-supplied hints.
package poller

import (
	"sync"
	"time"
)

// State is the scheduler lifecycle position.
type State int

const (
	StateIdle State = iota
	StateWatching
	StateDisarmed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWatching:
		return "watching"
	case StateDisarmed:
		return "disarmed"
	default:
		return "unknown"
	}
}

// Scheduler owns at most one pending timer. Arming replaces any pending
// timer, and a generation counter discards callbacks from replaced timers
// that were already in flight.
type Scheduler struct {
	clock Clock
	floor time.Duration
	fire  func()

	mu        sync.Mutex
	state     State
	timer     Timer
	gen       uint64
	pendingAt time.Time
}

// NewScheduler returns an idle scheduler that calls fire when a timer expires.
func NewScheduler(clock Clock, floor time.Duration, fire func()) *Scheduler {
	if clock == nil {
		clock = realClock{}
	}

	if floor <= 0 {
		floor = DefaultFloor
	}

	return &Scheduler{clock: clock, floor: floor, fire: fire}
}

// Arm schedules the next check at nextCheckAt, or after the floor if that
// is sooner. It returns the delay used.
func (s *Scheduler) Arm(nextCheckAt time.Time) time.Duration {
	return s.ArmIn(nextCheckAt.Sub(s.clock.Now()))
}

// ArmIn schedules the next check after delay, raised to the floor.
func (s *Scheduler) ArmIn(delay time.Duration) time.Duration {
	if delay < s.floor {
		delay = s.floor
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	s.gen++
	gen := s.gen

	s.state = StateWatching
	s.pendingAt = s.clock.Now().Add(delay)
	s.timer = s.clock.AfterFunc(delay, func() { s.onFire(gen) })

	recordArm(delay)

	return delay
}

// Disarm cancels any pending timer. It is idempotent and safe to call from
// within the fire callback.
func (s *Scheduler) Disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.gen++
	s.state = StateDisarmed
}

// State reports the lifecycle position.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Pending reports whether a timer is armed, and when it will fire.
func (s *Scheduler) Pending() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pendingAt, s.timer != nil
}

func (s *Scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	s.pendingAt = time.Time{}
}

func (s *Scheduler) onFire(gen uint64) {
	s.mu.Lock()

	if gen != s.gen || s.state != StateWatching {
		s.mu.Unlock()

		return
	}

	s.timer = nil
	s.pendingAt = time.Time{}
	s.mu.Unlock()

	if s.fire != nil {
		s.fire()
	}
}
