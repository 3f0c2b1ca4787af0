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
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/fleetcmd/pkg/logger"
	"github.com/carverauto/fleetcmd/pkg/models"
)

const (
	testOrg     = "org-1"
	testCommand = "cmd-1"
)

var errConnReset = errors.New("connection reset by peer")

func detailAt(next *time.Time, statuses ...models.CommandStatus) *models.CommandDetail {
	devices := make([]models.DeviceDetail, len(statuses))
	for i, st := range statuses {
		devices[i] = models.DeviceDetail{
			DeviceCommandStatus: models.DeviceCommandStatus{DeviceID: "dev-" + string(rune('a'+i)), Status: st},
		}
	}

	return &models.CommandDetail{
		CommandID:     testCommand,
		CommandType:   "CollectLogs",
		TotalDevices:  len(statuses),
		OverallStatus: models.DeriveOverallStatus(statuses),
		NextCheckAt:   next,
		Devices:       devices,
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}

type recorder struct {
	events []Event
}

func (r *recorder) on(ev Event) {
	r.events = append(r.events, ev)
}

func (r *recorder) types() []EventType {
	out := make([]EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}

	return out
}

func newTestWatcher(t *testing.T, refresher Refresher, clock Clock, rec *recorder) *Watcher {
	t.Helper()

	jitter := 0.0

	w, err := NewWatcher(refresher, WatcherConfig{
		OrgID:         testOrg,
		CommandID:     testCommand,
		Floor:         5 * time.Second,
		MaxBackoff:    20 * time.Second,
		Clock:         clock,
		OnEvent:       rec.on,
		backoffJitter: &jitter,
	}, logger.NewTestLogger())
	require.NoError(t, err)

	t.Cleanup(w.Stop)

	return w
}

func TestNewWatcherValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	refresher := NewMockRefresher(ctrl)

	_, err := NewWatcher(nil, WatcherConfig{OrgID: testOrg, CommandID: testCommand}, nil)
	require.ErrorIs(t, err, errRefresherRequired)

	_, err = NewWatcher(refresher, WatcherConfig{CommandID: testCommand}, nil)
	require.ErrorIs(t, err, errOrgIDRequired)

	_, err = NewWatcher(refresher, WatcherConfig{OrgID: testOrg}, nil)
	require.ErrorIs(t, err, errCommandIDRequired)

	_, err = NewWatcher(refresher, WatcherConfig{
		OrgID:      testOrg,
		CommandID:  testCommand,
		Floor:      time.Minute,
		MaxBackoff: time.Second,
	}, nil)
	require.ErrorIs(t, err, errBackoffBelowFloor)

	w, err := NewWatcher(refresher, WatcherConfig{OrgID: testOrg, CommandID: testCommand}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultFloor, w.cfg.Floor)
	assert.Equal(t, DefaultMaxBackoff, w.cfg.MaxBackoff)
	assert.Equal(t, StateIdle, w.State())
}

func TestWatcherFollowsHintUntilResolved(t *testing.T) {
	ctrl := gomock.NewController(t)
	refresher := NewMockRefresher(ctrl)
	clock := newFakeClock(t0)
	rec := &recorder{}

	gomock.InOrder(
		refresher.EXPECT().GetCommandDetail(gomock.Any(), testOrg, testCommand).
			Return(detailAt(timePtr(t0.Add(30*time.Second)), models.StatusExecuting, models.StatusQueued), nil),
		refresher.EXPECT().GetCommandDetail(gomock.Any(), testOrg, testCommand).
			Return(detailAt(nil, models.StatusCompleted, models.StatusCompleted), nil),
	)

	w := newTestWatcher(t, refresher, clock, rec)

	detail, err := w.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.OverallInProgress, detail.OverallStatus)

	at, ok := w.Pending()
	require.True(t, ok)
	assert.Equal(t, t0.Add(30*time.Second), at)
	require.Len(t, rec.events, 1)
	assert.Equal(t, 30*time.Second, rec.events[0].Delay)

	clock.Advance(30 * time.Second)

	assert.Equal(t, []EventType{EventUpdated, EventResolved}, rec.types())
	assert.Equal(t, StateDisarmed, w.State())
	assert.Equal(t, 0, clock.active())
	assert.Equal(t, models.OverallCompleted, w.Last().OverallStatus)

	// nothing else is scheduled
	clock.Advance(time.Hour)
	assert.Len(t, rec.events, 2)
}

func TestWatcherStartAtArmsFromSubmissionHint(t *testing.T) {
	ctrl := gomock.NewController(t)
	refresher := NewMockRefresher(ctrl)
	clock := newFakeClock(t0)
	rec := &recorder{}

	refresher.EXPECT().GetCommandDetail(gomock.Any(), testOrg, testCommand).
		Return(detailAt(nil, models.StatusFailed), nil)

	w := newTestWatcher(t, refresher, clock, rec)

	require.NoError(t, w.StartAt(context.Background(), timePtr(t0.Add(2*time.Second))))

	at, ok := w.Pending()
	require.True(t, ok)
	assert.Equal(t, t0.Add(5*time.Second), at, "hint earlier than the floor is clamped")

	clock.Advance(5 * time.Second)
	assert.Equal(t, []EventType{EventResolved}, rec.types())
}

func TestWatcherStalledWithoutHint(t *testing.T) {
	ctrl := gomock.NewController(t)
	refresher := NewMockRefresher(ctrl)
	clock := newFakeClock(t0)
	rec := &recorder{}

	refresher.EXPECT().GetCommandDetail(gomock.Any(), testOrg, testCommand).
		Return(detailAt(nil, models.StatusDelivered), nil)

	w := newTestWatcher(t, refresher, clock, rec)

	_, err := w.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []EventType{EventStalled}, rec.types())
	assert.Equal(t, StateDisarmed, w.State())
	assert.Equal(t, 0, clock.active())
}

func TestWatcherBacksOffOnTransientFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	refresher := NewMockRefresher(ctrl)
	clock := newFakeClock(t0)
	rec := &recorder{}

	transport := models.NewTransportError("GetCommand", errConnReset)
	unavailable := models.NewServerError("GetCommand", http.StatusServiceUnavailable, "")

	gomock.InOrder(
		refresher.EXPECT().GetCommandDetail(gomock.Any(), testOrg, testCommand).Return(nil, transport),
		refresher.EXPECT().GetCommandDetail(gomock.Any(), testOrg, testCommand).Return(nil, unavailable),
		refresher.EXPECT().GetCommandDetail(gomock.Any(), testOrg, testCommand).Return(nil, transport),
		refresher.EXPECT().GetCommandDetail(gomock.Any(), testOrg, testCommand).Return(nil, transport),
		refresher.EXPECT().GetCommandDetail(gomock.Any(), testOrg, testCommand).
			Return(detailAt(timePtr(t0.Add(2*time.Minute)), models.StatusExecuting), nil),
	)

	w := newTestWatcher(t, refresher, clock, rec)

	_, err := w.Start(context.Background())
	require.ErrorIs(t, err, errConnReset)

	expected := []time.Duration{10 * time.Second, 20 * time.Second, 20 * time.Second}

	at, ok := w.Pending()
	require.True(t, ok)
	assert.Equal(t, t0.Add(5*time.Second), at)

	for _, want := range expected {
		prev := at
		clock.Advance(at.Sub(clock.Now()))

		at, ok = w.Pending()
		require.True(t, ok)
		assert.Equal(t, want, at.Sub(prev))
	}

	clock.Advance(at.Sub(clock.Now()))

	assert.Equal(t, []EventType{EventRefreshFailed, EventUpdated}, rec.types())
	assert.Equal(t, StateWatching, w.State())
}

func TestWatcherBackoffResetsAfterSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	refresher := NewMockRefresher(ctrl)
	clock := newFakeClock(t0)
	rec := &recorder{}

	transport := models.NewTransportError("GetCommand", errConnReset)

	gomock.InOrder(
		refresher.EXPECT().GetCommandDetail(gomock.Any(), testOrg, testCommand).Return(nil, transport),
		refresher.EXPECT().GetCommandDetail(gomock.Any(), testOrg, testCommand).
			Return(detailAt(timePtr(t0.Add(10*time.Second)), models.StatusExecuting), nil),
		refresher.EXPECT().GetCommandDetail(gomock.Any(), testOrg, testCommand).Return(nil, transport),
	)

	w := newTestWatcher(t, refresher, clock, rec)

	_, _ = w.Start(context.Background())
	clock.Advance(5 * time.Second)
	clock.Advance(5 * time.Second)

	at, ok := w.Pending()
	require.True(t, ok)
	assert.Equal(t, clock.Now().Add(5*time.Second), at)
	assert.Equal(t, []EventType{EventRefreshFailed, EventUpdated, EventRefreshFailed}, rec.types())
}

func TestWatcherPermanentFailureStops(t *testing.T) {
	ctrl := gomock.NewController(t)
	refresher := NewMockRefresher(ctrl)
	clock := newFakeClock(t0)
	rec := &recorder{}

	previous := detailAt(timePtr(t0.Add(10*time.Second)), models.StatusExecuting)
	notFound := models.NewServerError("GetCommand", http.StatusNotFound, "command not found")

	gomock.InOrder(
		refresher.EXPECT().GetCommandDetail(gomock.Any(), testOrg, testCommand).Return(previous, nil),
		refresher.EXPECT().GetCommandDetail(gomock.Any(), testOrg, testCommand).Return(previous, notFound),
	)

	w := newTestWatcher(t, refresher, clock, rec)

	_, err := w.Start(context.Background())
	require.NoError(t, err)

	clock.Advance(10 * time.Second)

	assert.Equal(t, []EventType{EventUpdated, EventFailed}, rec.types())
	assert.Equal(t, StateDisarmed, w.State())
	assert.Equal(t, 0, clock.active())

	last := rec.events[1]
	require.ErrorIs(t, last.Err, notFound)
	assert.Same(t, previous, last.Detail)
}

func TestWatcherStopFromCallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	refresher := NewMockRefresher(ctrl)
	clock := newFakeClock(t0)

	refresher.EXPECT().GetCommandDetail(gomock.Any(), testOrg, testCommand).
		Return(detailAt(timePtr(t0.Add(10*time.Second)), models.StatusExecuting), nil)

	var w *Watcher

	w, err := NewWatcher(refresher, WatcherConfig{
		OrgID:     testOrg,
		CommandID: testCommand,
		Clock:     clock,
		OnEvent:   func(Event) { w.Stop() },
	}, nil)
	require.NoError(t, err)

	_, err = w.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDisarmed, w.State())
	assert.Equal(t, 0, clock.active())

	_, err = w.Refresh(context.Background())
	require.ErrorIs(t, err, errWatcherStopped)
	require.ErrorIs(t, w.StartAt(context.Background(), nil), errWatcherStopped)
}

func TestWatcherCanceledContextDisarms(t *testing.T) {
	ctrl := gomock.NewController(t)
	refresher := NewMockRefresher(ctrl)
	clock := newFakeClock(t0)
	rec := &recorder{}

	refresher.EXPECT().GetCommandDetail(gomock.Any(), testOrg, testCommand).
		Return(detailAt(timePtr(t0.Add(10*time.Second)), models.StatusExecuting), nil)

	w := newTestWatcher(t, refresher, clock, rec)

	ctx, cancel := context.WithCancel(context.Background())

	_, err := w.Start(ctx)
	require.NoError(t, err)

	cancel()
	clock.Advance(10 * time.Second)

	assert.Equal(t, StateDisarmed, w.State())
	assert.Equal(t, []EventType{EventUpdated}, rec.types())
}

func TestWatcherManualRefreshReplacesPendingCheck(t *testing.T) {
	ctrl := gomock.NewController(t)
	refresher := NewMockRefresher(ctrl)
	clock := newFakeClock(t0)
	rec := &recorder{}

	gomock.InOrder(
		refresher.EXPECT().GetCommandDetail(gomock.Any(), testOrg, testCommand).
			Return(detailAt(timePtr(t0.Add(time.Minute)), models.StatusQueued), nil),
		refresher.EXPECT().GetCommandDetail(gomock.Any(), testOrg, testCommand).
			Return(detailAt(timePtr(t0.Add(20*time.Second)), models.StatusExecuting), nil),
	)

	w := newTestWatcher(t, refresher, clock, rec)

	_, err := w.Start(context.Background())
	require.NoError(t, err)

	_, err = w.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, clock.active())

	at, ok := w.Pending()
	require.True(t, ok)
	assert.Equal(t, t0.Add(20*time.Second), at)
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "updated", EventUpdated.String())
	assert.Equal(t, "resolved", EventResolved.String())
	assert.Equal(t, "stalled", EventStalled.String())
	assert.Equal(t, "refresh_failed", EventRefreshFailed.String())
	assert.Equal(t, "failed", EventFailed.String())
}
