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

// Package status reads command summaries and builds enriched per-device
// command detail.
package status

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/carverauto/fleetcmd/pkg/api"
	"github.com/carverauto/fleetcmd/pkg/directory"
	"github.com/carverauto/fleetcmd/pkg/logger"
	"github.com/carverauto/fleetcmd/pkg/models"
)

const defaultListLimit = 50

var errUnknownStatus = errors.New("unknown command status")

// RosterSource supplies roster data for enrichment. *directory.Cache
// satisfies it.
type RosterSource interface {
	GetDevices(ctx context.Context, orgID string, opts directory.Options) (*directory.Result, error)
}

// Filter narrows a command list. Zero values match everything.
type Filter struct {
	Status      *models.CommandStatus
	CommandType string
}

func (f Filter) match(c *models.Command) bool {
	if f.Status != nil && c.Status != *f.Status {
		return false
	}

	if f.CommandType != "" && !strings.EqualFold(f.CommandType, c.CommandType) {
		return false
	}

	return true
}

type commandState struct {
	mu   sync.Mutex
	last *models.CommandDetail
}

// Aggregator fetches command data and derives connectivity and overall
// status. Detail fetches for one command never overlap.
type Aggregator struct {
	querier api.CommandQuerier
	roster  RosterSource
	logger  logger.Logger
	nowFn   func() time.Time

	mu     sync.Mutex
	states map[string]*commandState
}

// New builds an Aggregator. roster may be nil; details are then built
// without roster names or states.
func New(querier api.CommandQuerier, roster RosterSource, log logger.Logger) *Aggregator {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Aggregator{
		querier: querier,
		roster:  roster,
		logger:  log,
		nowFn:   time.Now,
		states:  make(map[string]*commandState),
	}
}

// ListCommands returns recent commands for orgID, newest first, filtered
// client-side.
func (a *Aggregator) ListCommands(ctx context.Context, orgID string, filter Filter, limit int) ([]models.Command, error) {
	if orgID == "" {
		return nil, models.NewValidationError("ListCommands", models.ErrMissingOrg, "")
	}

	if limit <= 0 {
		limit = defaultListLimit
	}

	commands, err := a.querier.ListCommands(ctx, orgID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]models.Command, 0, len(commands))

	for i := range commands {
		if filter.match(&commands[i]) {
			out = append(out, commands[i])
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].QueuedAt.After(out[j].QueuedAt)
	})

	return out, nil
}

// GetCommandDetail fetches and enriches one command. On failure the last
// good detail for the command, if any, is returned together with the error.
func (a *Aggregator) GetCommandDetail(ctx context.Context, orgID, commandID string) (*models.CommandDetail, error) {
	if orgID == "" {
		return nil, models.NewValidationError("GetCommandDetail", models.ErrMissingOrg, "")
	}

	if commandID == "" {
		return nil, models.NewValidationError("GetCommandDetail", models.ErrMissingCommandID, "")
	}

	st := a.state(orgID, commandID)

	st.mu.Lock()
	defer st.mu.Unlock()

	rec, err := a.querier.GetCommand(ctx, orgID, commandID)
	if err != nil {
		a.logger.Warn().
			Err(err).
			Str("org_id", orgID).
			Str("command_id", commandID).
			Bool("have_previous", st.last != nil).
			Msg("Command detail fetch failed")

		return st.last, err
	}

	detail := Build(rec, a.rosterIndex(ctx, orgID), a.nowFn())
	st.last = detail

	return detail, nil
}

// Last returns the most recent successful detail without a network call.
func (a *Aggregator) Last(orgID, commandID string) *models.CommandDetail {
	a.mu.Lock()
	st, ok := a.states[orgID+"/"+commandID]
	a.mu.Unlock()

	if !ok {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	return st.last
}

// Forget drops the per-command state once a command is no longer watched.
func (a *Aggregator) Forget(orgID, commandID string) {
	a.mu.Lock()
	delete(a.states, orgID+"/"+commandID)
	a.mu.Unlock()
}

func (a *Aggregator) state(orgID, commandID string) *commandState {
	key := orgID + "/" + commandID

	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok := a.states[key]
	if !ok {
		st = &commandState{}
		a.states[key] = st
	}

	return st
}

// Tracked reports how many commands currently hold state.
func (a *Aggregator) Tracked() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.states)
}

// rosterIndex never fails the caller; roster data is display-only.
func (a *Aggregator) rosterIndex(ctx context.Context, orgID string) map[string]models.Device {
	if a.roster == nil {
		return nil
	}

	res, err := a.roster.GetDevices(ctx, orgID, directory.Options{})
	if err != nil {
		a.logger.Debug().Err(err).Str("org_id", orgID).Msg("Roster unavailable for detail enrichment")
	}

	if res == nil {
		return nil
	}

	return directory.Index(res.Devices)
}

// Build derives a CommandDetail from the raw record. roster may be nil.
func Build(rec *models.CommandRecord, roster map[string]models.Device, now time.Time) *models.CommandDetail {
	detail := &models.CommandDetail{
		CommandID:    rec.CommandID,
		CommandType:  rec.CommandType,
		QueuedAt:     rec.QueuedAt,
		ServerStatus: rec.Status,
		TotalDevices: rec.TotalDevices,
		Devices:      make([]models.DeviceDetail, 0, len(rec.Devices)),
		FetchedAt:    now,
	}

	if detail.TotalDevices < len(rec.Devices) {
		detail.TotalDevices = len(rec.Devices)
	}

	statuses := make([]models.CommandStatus, 0, len(rec.Devices))

	var earliest *time.Time

	for i := range rec.Devices {
		dd := enrich(rec.Devices[i], roster, now)

		if dd.Connectivity == models.ConnectivityOffline {
			detail.OfflineDevices++
		}

		if dd.Status == models.StatusQueued && dd.ExpiresAt != nil && dd.ExpiresAt.Before(now) {
			detail.ExpiredUndeliveredDevices++
		}

		if !dd.Status.Terminal() && dd.NextCheckAt != nil {
			if earliest == nil || dd.NextCheckAt.Before(*earliest) {
				earliest = dd.NextCheckAt
			}
		}

		statuses = append(statuses, dd.Status)
		detail.Devices = append(detail.Devices, dd)
	}

	// targets without a row yet count as queued
	overall := statuses
	for len(overall) < detail.TotalDevices {
		overall = append(overall, models.StatusQueued)
	}

	detail.OverallStatus = models.DeriveOverallStatus(overall)

	switch {
	case models.CommandResolved(detail.TotalDevices, statuses):
		detail.NextCheckAt = nil
	case rec.NextCheckAt != nil:
		detail.NextCheckAt = copyTime(rec.NextCheckAt)
	default:
		detail.NextCheckAt = copyTime(earliest)
	}

	return detail
}

func enrich(st models.DeviceCommandStatus, roster map[string]models.Device, now time.Time) models.DeviceDetail {
	dd := models.DeviceDetail{
		DeviceCommandStatus: st,
		Name:                st.DeviceID,
		State:               models.DeviceStateUnknown,
	}

	heartbeat := st.LastHeartbeat

	if dev, ok := roster[st.DeviceID]; ok {
		dd.Name = dev.Name
		dd.State = dev.State

		if heartbeat == nil {
			heartbeat = dev.LastHeartbeat
		}
	}

	dd.Connectivity = models.DeriveConnectivity(dd.State, heartbeat, now)

	return dd
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	v := *t

	return &v
}

// ParseFilterStatus accepts a status name for the CLI filter.
func ParseFilterStatus(s string) (*models.CommandStatus, error) {
	if s == "" {
		return nil, nil
	}

	st := models.ParseCommandStatus(s)
	if st == models.StatusUnknown && !strings.EqualFold(s, "unknown") {
		return nil, fmt.Errorf("%w: %q", errUnknownStatus, s)
	}

	return &st, nil
}
