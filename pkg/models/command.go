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

package models

import (
	"encoding/json"
	"strings"
	"time"
)

// CommandStatus is the lifecycle position of a command on one device.
type CommandStatus int

const (
	StatusUnknown CommandStatus = iota
	StatusQueued
	StatusDelivered
	StatusExecuting
	StatusCompleted
	StatusFailed
	StatusUnsupported
	StatusTimedOut
	StatusCancelled
)

// ParseCommandStatus maps a wire value onto CommandStatus. Values the client
// does not know decode to StatusUnknown, which is never terminal.
func ParseCommandStatus(s string) CommandStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "queued", "pending":
		return StatusQueued
	case "delivered", "sent":
		return StatusDelivered
	case "executing", "inprogress", "in_progress", "running":
		return StatusExecuting
	case "completed", "succeeded", "success":
		return StatusCompleted
	case "failed", "error":
		return StatusFailed
	case "unsupported":
		return StatusUnsupported
	case "timedout", "timed_out", "timeout", "expired":
		return StatusTimedOut
	case "cancelled", "canceled":
		return StatusCancelled
	default:
		return StatusUnknown
	}
}

func (s CommandStatus) String() string {
	switch s {
	case StatusQueued:
		return "Queued"
	case StatusDelivered:
		return "Delivered"
	case StatusExecuting:
		return "Executing"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusUnsupported:
		return "Unsupported"
	case StatusTimedOut:
		return "TimedOut"
	case StatusCancelled:
		return "Cancelled"
	case StatusUnknown:
		return "Unknown"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further transition is expected for the device.
func (s CommandStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusUnsupported, StatusTimedOut, StatusCancelled:
		return true
	case StatusUnknown, StatusQueued, StatusDelivered, StatusExecuting:
		return false
	default:
		return false
	}
}

func (s CommandStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *CommandStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*s = ParseCommandStatus(raw)

	return nil
}

// OverallStatus summarizes a command across all of its targets.
type OverallStatus int

const (
	OverallUnknown OverallStatus = iota
	OverallQueued
	OverallInProgress
	OverallCompleted
	OverallCompletedWithErrors
	OverallFailed
	OverallCancelled
)

func (s OverallStatus) String() string {
	switch s {
	case OverallQueued:
		return "Queued"
	case OverallInProgress:
		return "InProgress"
	case OverallCompleted:
		return "Completed"
	case OverallCompletedWithErrors:
		return "CompletedWithErrors"
	case OverallFailed:
		return "Failed"
	case OverallCancelled:
		return "Cancelled"
	case OverallUnknown:
		return "Unknown"
	default:
		return "Unknown"
	}
}

func (s OverallStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// PollHint carries the server's suggestion for when to check again.
type PollHint struct {
	NextCheckAt *time.Time `json:"nextCheckAt,omitempty"`
}

// Command is the fleet-level summary of one dispatched command.
type Command struct {
	CommandID        string        `json:"commandId"`
	CommandType      string        `json:"commandType"`
	Status           CommandStatus `json:"status"`
	QueuedAt         time.Time     `json:"queuedAt"`
	TotalDevices     int           `json:"totalDevices"`
	CompletedDevices int           `json:"completedDevices"`
	NextCheckAt      *time.Time    `json:"nextCheckAt,omitempty"`
}

// DeviceCommandStatus is the outcome of a command on a single device.
type DeviceCommandStatus struct {
	DeviceID              string        `json:"deviceId"`
	Status                CommandStatus `json:"status"`
	IsOffline             bool          `json:"isOffline"`
	LastHeartbeat         *time.Time    `json:"lastHeartbeat,omitempty"`
	ExpiresAt             *time.Time    `json:"expiresAt,omitempty"`
	NextCheckAt           *time.Time    `json:"nextCheckAt,omitempty"`
	Result                string        `json:"result,omitempty"`
	Diagnostic            string        `json:"diagnostic,omitempty"`
	ArtifactDownloadURL   string        `json:"artifactDownloadUrl,omitempty"`
	ArtifactRetentionDays int           `json:"artifactRetentionDays,omitempty"`
}

// CommandRecord is the raw command detail as returned by the command API.
type CommandRecord struct {
	Command
	Devices []DeviceCommandStatus `json:"devices"`
}

// DeviceDetail is a DeviceCommandStatus enriched with roster data and
// derived connectivity.
type DeviceDetail struct {
	DeviceCommandStatus
	Name         string       `json:"name"`
	State        DeviceState  `json:"state"`
	Connectivity Connectivity `json:"connectivity"`
}

// Outcome returns a human-readable sentence for the device's current status.
func (d DeviceDetail) Outcome() string {
	if d.Diagnostic != "" {
		return d.Diagnostic
	}

	if d.Result != "" {
		return d.Result
	}

	switch d.Status {
	case StatusCompleted:
		return "Action completed successfully."
	case StatusFailed:
		return "Action failed on the device; no diagnostic was reported."
	case StatusUnsupported:
		return "The device does not support this action."
	case StatusTimedOut:
		return "The device did not finish the action before it expired."
	case StatusCancelled:
		return "The action was cancelled before it finished."
	case StatusExecuting:
		return "The device is executing the action."
	case StatusDelivered:
		return "The action was delivered and is waiting to start."
	case StatusQueued:
		return "Waiting for the device to check in."
	case StatusUnknown:
		return "Status not recognized."
	default:
		return "Status not recognized."
	}
}

// CommandDetail is the client-side view of a command and all of its targets.
type CommandDetail struct {
	CommandID                 string         `json:"commandId"`
	CommandType               string         `json:"commandType"`
	QueuedAt                  time.Time      `json:"queuedAt"`
	ServerStatus              CommandStatus  `json:"serverStatus"`
	OverallStatus             OverallStatus  `json:"overallStatus"`
	TotalDevices              int            `json:"totalDevices"`
	OfflineDevices            int            `json:"offlineDevices"`
	ExpiredUndeliveredDevices int            `json:"expiredUndeliveredDevices"`
	NextCheckAt               *time.Time     `json:"nextCheckAt,omitempty"`
	Devices                   []DeviceDetail `json:"devices"`
	FetchedAt                 time.Time      `json:"fetchedAt"`
}

// Resolved reports whether every target has reached a terminal status.
func (d *CommandDetail) Resolved() bool {
	return CommandResolved(d.TotalDevices, statuses(d.Devices))
}

func statuses(devices []DeviceDetail) []CommandStatus {
	out := make([]CommandStatus, len(devices))
	for i := range devices {
		out[i] = devices[i].Status
	}

	return out
}

// CommandResolved reports whether a command needs no further polling. A
// command with fewer device rows than targets is still fanning out and is
// unresolved.
func CommandResolved(totalDevices int, statuses []CommandStatus) bool {
	if len(statuses) < totalDevices {
		return false
	}

	for _, s := range statuses {
		if !s.Terminal() {
			return false
		}
	}

	return true
}

// DeriveOverallStatus summarizes per-device statuses.
func DeriveOverallStatus(statuses []CommandStatus) OverallStatus {
	if len(statuses) == 0 {
		return OverallQueued
	}

	var queued, active, completed, cancelled, failed int

	for _, s := range statuses {
		switch s {
		case StatusQueued, StatusUnknown:
			queued++
		case StatusDelivered, StatusExecuting:
			active++
		case StatusCompleted:
			completed++
		case StatusCancelled:
			cancelled++
		case StatusFailed, StatusUnsupported, StatusTimedOut:
			failed++
		}
	}

	switch {
	case active > 0:
		return OverallInProgress
	case queued == len(statuses):
		return OverallQueued
	case queued > 0:
		return OverallInProgress
	case completed == len(statuses):
		return OverallCompleted
	case cancelled == len(statuses):
		return OverallCancelled
	case completed > 0:
		return OverallCompletedWithErrors
	default:
		return OverallFailed
	}
}
