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

package core

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/fleetcmd/pkg/kv"
	"github.com/carverauto/fleetcmd/pkg/logger"
	"github.com/carverauto/fleetcmd/pkg/models"
	"github.com/carverauto/fleetcmd/pkg/poller"
	"github.com/carverauto/fleetcmd/pkg/status"
)

const testOrg = "org-1"

type manualTimer struct {
	clock *manualClock
	f     func()
	live  bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	was := t.live
	t.live = false

	return was
}

// manualClock records timers and fires them only from fire.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *manualClock) AfterFunc(_ time.Duration, f func()) poller.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &manualTimer{clock: c, f: f, live: true}
	c.timers = append(c.timers, t)

	return t
}

// fire runs every live timer once.
func (c *manualClock) fire() int {
	c.mu.Lock()

	var due []*manualTimer

	for _, t := range c.timers {
		if t.live {
			t.live = false
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}

	return len(due)
}

type submitted struct {
	OrgID           string   `json:"orgId"`
	CommandType     string   `json:"commandType"`
	TargetDeviceIDs []string `json:"targetDeviceIds"`
	Parameters      json.RawMessage
	rawTargets      string
}

// fakeFleetAPI serves the device and command endpoints from memory.
type fakeFleetAPI struct {
	mu          sync.Mutex
	submissions []submitted
	cancels     []string
	deviceCalls int
	status      string
}

func (f *fakeFleetAPI) handler(t *testing.T) http.Handler {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("GET /devices", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testOrg, r.URL.Query().Get("orgId"))
		assert.Equal(t, "targets", r.URL.Query().Get("view"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		f.mu.Lock()
		f.deviceCalls++
		f.mu.Unlock()

		writeJSON(w, `[
			{"id":"dev-1","name":"laptop-1","state":"Active","lastHeartbeat":"`+time.Now().UTC().Format(time.RFC3339)+`"},
			{"id":"dev-2","state":"Blocked"},
			{"id":"dev-3","name":"retired","isEnabled":false}
		]`)
	})

	mux.HandleFunc("POST /commands", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if !assert.NoError(t, err) {
			return
		}

		var req submitted
		if !assert.NoError(t, json.Unmarshal(body, &req)) {
			return
		}

		var raw map[string]json.RawMessage
		_ = json.Unmarshal(body, &raw)
		req.rawTargets = string(raw["targetDeviceIds"])

		f.mu.Lock()
		f.submissions = append(f.submissions, req)
		f.mu.Unlock()

		next := time.Now().Add(30 * time.Second).UTC().Format(time.RFC3339)
		writeJSON(w, `{"commandId":"C1","targetCount":`+jsonInt(len(req.TargetDeviceIDs))+`,"pollHint":{"nextCheckAt":"`+next+`"}}`)
	})

	mux.HandleFunc("GET /commands", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, `{"commands":[
			{"commandId":"C0","commandType":"TriggerScan","status":"Completed","queuedAt":"2025-06-01T10:00:00Z"},
			{"commandId":"C1","commandType":"CollectLogs","status":"Executing","queuedAt":"2025-06-01T11:00:00Z"}
		]}`)
	})

	mux.HandleFunc("GET /commands/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "C1" {
			w.WriteHeader(http.StatusNotFound)
			writeJSON(w, `{"error":"command not found"}`)

			return
		}

		f.mu.Lock()
		st := f.status
		f.mu.Unlock()

		next := ""
		if st != "Completed" {
			next = `,"nextCheckAt":"` + time.Now().Add(30*time.Second).UTC().Format(time.RFC3339) + `"`
		}

		writeJSON(w, `{"commandId":"C1","commandType":"CollectLogs","status":"`+st+`","totalDevices":1`+next+`,
			"devices":[{"deviceId":"dev-1","status":"`+st+`","artifactDownloadUrl":"https://files.example/logs.zip"}]}`)
	})

	mux.HandleFunc("POST /commands/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.cancels = append(f.cancels, r.PathValue("id"))
		f.mu.Unlock()

		w.WriteHeader(http.StatusAccepted)
	})

	return mux
}

func (f *fakeFleetAPI) setStatus(st string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.status = st
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func jsonInt(n int) string {
	b, _ := json.Marshal(n)

	return string(b)
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *fakeFleetAPI) {
	t.Helper()

	api := &fakeFleetAPI{status: "Executing"}
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)

	cfg := &Config{
		APIBaseURL:        srv.URL,
		APIToken:          "secret",
		OrgID:             testOrg,
		RequestsPerSecond: 1000,
	}

	opts = append([]Option{WithStore(kv.NewMemoryStore(0))}, opts...)

	e, err := NewEngine(context.Background(), cfg, logger.NewTestLogger(), opts...)
	require.NoError(t, err)

	t.Cleanup(func() { _ = e.Close() })

	return e, api
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	_, err := NewEngine(context.Background(), nil, nil)
	require.ErrorIs(t, err, errConfigRequired)

	_, err = NewEngine(context.Background(), &Config{}, nil)
	require.ErrorIs(t, err, errAPIBaseURLRequired)

	_, err = NewEngine(context.Background(), &Config{APIBaseURL: "ftp://x"}, nil)
	require.ErrorIs(t, err, errInvalidAPIBaseURL)

	_, err = NewEngine(context.Background(), &Config{APIBaseURL: "http://x", CatalogFile: "/nonexistent/catalog.yaml"}, nil)
	require.Error(t, err)
}

func TestEngineDevices(t *testing.T) {
	e, api := newTestEngine(t)

	res, err := e.Devices(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, res.Devices, 3)
	assert.Equal(t, "dev-2", res.Devices[1].Name, "empty names fall back to the id")
	assert.False(t, res.Devices[2].IsEnabled)

	_, err = e.Devices(context.Background(), false)
	require.NoError(t, err)

	_, err = e.Devices(context.Background(), true)
	require.NoError(t, err)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, 2, api.deviceCalls, "second lookup is served from cache")
}

func TestEngineDispatchFiltersTargets(t *testing.T) {
	e, api := newTestEngine(t)
	ctx := context.Background()

	res, err := e.Dispatch(ctx, DispatchRequest{
		ActionType:      "CollectLogs",
		TargetDeviceIDs: []string{"dev-1", "dev-3", "ghost"},
	})
	require.NoError(t, err)
	assert.Equal(t, "C1", res.CommandID)
	assert.Equal(t, 1, res.TargetCount)
	assert.False(t, res.Broadcast)
	require.NotNil(t, res.PollHint.NextCheckAt)

	_, err = e.Dispatch(ctx, DispatchRequest{ActionType: "CollectLogs", TargetDeviceIDs: []string{"ghost"}})
	require.ErrorIs(t, err, models.ErrEmptyTargetSelection)

	api.mu.Lock()
	calls := api.deviceCalls
	api.mu.Unlock()

	_, err = e.Dispatch(ctx, DispatchRequest{ActionType: "Isolate", TargetDeviceIDs: []string{"dev-1"}})
	require.ErrorIs(t, err, models.ErrActionDisabled)

	_, err = e.Dispatch(ctx, DispatchRequest{ActionType: "CollectLogs", Parameters: "{bad"})
	require.ErrorIs(t, err, models.ErrMalformedParameters)

	api.mu.Lock()
	assert.Equal(t, calls, api.deviceCalls, "rejected requests never reach the API")
	api.mu.Unlock()

	res, err = e.Dispatch(ctx, DispatchRequest{ActionType: "TriggerScan", Parameters: `{"depth":"full"}`})
	require.NoError(t, err)
	assert.True(t, res.Broadcast)

	api.mu.Lock()
	defer api.mu.Unlock()

	require.Len(t, api.submissions, 2)
	assert.Equal(t, []string{"dev-1"}, api.submissions[0].TargetDeviceIDs)
	assert.Equal(t, testOrg, api.submissions[0].OrgID)
	assert.Equal(t, "null", api.submissions[1].rawTargets)
	assert.Equal(t, "TriggerScan", api.submissions[1].CommandType)
}

func TestEngineWatchUntilResolved(t *testing.T) {
	clock := &manualClock{now: time.Now()}
	e, api := newTestEngine(t, WithClock(clock))
	ctx := context.Background()

	var (
		mu     sync.Mutex
		events []poller.EventType
	)

	hint := clock.Now().Add(30 * time.Second)

	w, err := e.Watch(ctx, "C1", &hint, func(ev poller.Event) {
		mu.Lock()
		events = append(events, ev.Type)
		mu.Unlock()
	})
	require.NoError(t, err)
	assert.Equal(t, 1, e.Watching())
	assert.Nil(t, w.Last(), "first check waits for the hint")

	require.Equal(t, 1, clock.fire())
	assert.Equal(t, 1, e.aggregator.Tracked())
	assert.Equal(t, models.OverallInProgress, w.Last().OverallStatus)
	assert.Equal(t, "laptop-1", w.Last().Devices[0].Name)

	api.setStatus("Completed")
	require.Equal(t, 1, clock.fire())

	mu.Lock()
	assert.Equal(t, []poller.EventType{poller.EventUpdated, poller.EventResolved}, events)
	mu.Unlock()

	assert.Equal(t, models.OverallCompleted, w.Last().OverallStatus)
	assert.Equal(t, 0, e.Watching())
	assert.Equal(t, 0, e.aggregator.Tracked(), "resolved commands leave no per-command state")
	assert.Nil(t, e.aggregator.Last(e.OrgID(), "C1"))
	assert.Equal(t, 0, clock.fire(), "nothing scheduled after resolution")

	_, err = e.Detail(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, 0, e.aggregator.Tracked(), "one-off lookups are not retained")
}

func TestEngineWatchUnknownCommandFails(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Watch(context.Background(), "missing", nil, nil)
	require.Error(t, err)
	assert.Equal(t, models.KindServer, models.KindOf(err))
	assert.Equal(t, 0, e.Watching())
}

func TestEngineCommandsAndCancel(t *testing.T) {
	e, api := newTestEngine(t)
	ctx := context.Background()

	all, err := e.Commands(ctx, status.Filter{}, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "C1", all[0].CommandID, "newest first")

	executing := models.StatusExecuting
	filtered, err := e.Commands(ctx, status.Filter{Status: &executing}, 10)
	require.NoError(t, err)
	require.Len(t, filtered, 1)

	detail, err := e.Detail(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, "https://files.example/logs.zip", detail.Devices[0].ArtifactDownloadURL)

	require.NoError(t, e.Cancel(ctx, "C1"))

	api.mu.Lock()
	assert.Equal(t, []string{"C1"}, api.cancels)
	api.mu.Unlock()
}

func TestEngineClose(t *testing.T) {
	clock := &manualClock{now: time.Now()}
	e, _ := newTestEngine(t, WithClock(clock))

	hint := clock.Now().Add(time.Minute)
	w, err := e.Watch(context.Background(), "C1", &hint, nil)
	require.NoError(t, err)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	assert.Equal(t, poller.StateDisarmed, w.State())
	assert.Equal(t, 0, clock.fire())

	_, err = e.Devices(context.Background(), false)
	require.ErrorIs(t, err, errEngineClosed)
}

func TestConfigValidateDefaults(t *testing.T) {
	cfg := &Config{APIBaseURL: " https://fleet.example/api ", OrgID: " org "}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://fleet.example/api", cfg.APIBaseURL)
	assert.Equal(t, "org", cfg.OrgID)
	assert.Equal(t, defaultRequestTimeout, cfg.RequestTimeout.Std())
	assert.Equal(t, defaultDeviceLimit, cfg.DeviceLimit)
	assert.Equal(t, defaultCommandLimit, cfg.CommandLimit)
	assert.Equal(t, 5*time.Minute, cfg.DirectoryTTL.Std())
	assert.Equal(t, poller.DefaultFloor, cfg.PollFloor.Std())
	assert.Equal(t, poller.DefaultMaxBackoff, cfg.PollMaxBackoff.Std())
	require.NotNil(t, cfg.Logging)

	partial := &Config{APIBaseURL: "http://x", Logging: &logger.Config{Level: "debug"}}
	require.NoError(t, partial.Validate())
	assert.Equal(t, "stderr", partial.Logging.Output)

	bad := &Config{APIBaseURL: "http://x", PollFloor: models.Duration(time.Minute), PollMaxBackoff: models.Duration(time.Second)}
	require.Error(t, bad.Validate())

	neg := &Config{APIBaseURL: "http://x", DeviceLimit: -1}
	require.ErrorIs(t, neg.Validate(), errNegativeLimit)

	kvCfg := (&Config{NATSURL: "nats://127.0.0.1:4222", KVBucket: "roster"}).kvConfig()
	assert.Equal(t, "roster", kvCfg.Bucket)
	assert.Zero(t, kvCfg.BucketTTL)
}
