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

// DeviceState is the fleet-roster state reported for a managed device.
type DeviceState int

const (
	DeviceStateUnknown DeviceState = iota
	DeviceStateActive
	DeviceStateBlocked
	DeviceStateDeleted
	DeviceStateError
)

// ParseDeviceState maps a wire value onto DeviceState. Unrecognized values
// map to DeviceStateUnknown.
func ParseDeviceState(s string) DeviceState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return DeviceStateActive
	case "blocked":
		return DeviceStateBlocked
	case "deleted":
		return DeviceStateDeleted
	case "error":
		return DeviceStateError
	default:
		return DeviceStateUnknown
	}
}

func (s DeviceState) String() string {
	switch s {
	case DeviceStateActive:
		return "Active"
	case DeviceStateBlocked:
		return "Blocked"
	case DeviceStateDeleted:
		return "Deleted"
	case DeviceStateError:
		return "Error"
	case DeviceStateUnknown:
		return "Unknown"
	default:
		return "Unknown"
	}
}

// Faulted reports whether the roster state alone marks the device as unusable.
func (s DeviceState) Faulted() bool {
	switch s {
	case DeviceStateBlocked, DeviceStateDeleted, DeviceStateError:
		return true
	case DeviceStateActive, DeviceStateUnknown:
		return false
	default:
		return false
	}
}

func (s DeviceState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *DeviceState) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*s = ParseDeviceState(raw)

	return nil
}

// Device is a normalized fleet roster entry.
type Device struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	State         DeviceState `json:"state"`
	IsEnabled     bool        `json:"isEnabled"`
	LastHeartbeat *time.Time  `json:"lastHeartbeat,omitempty"`
}

// Connectivity is the derived reachability of a device.
type Connectivity int

const (
	ConnectivityOnline Connectivity = iota
	ConnectivityOffline
	ConnectivityError
)

// HeartbeatWindow is how recent a heartbeat must be for a device to count as online.
const HeartbeatWindow = 24 * time.Hour

func (c Connectivity) String() string {
	switch c {
	case ConnectivityOnline:
		return "online"
	case ConnectivityOffline:
		return "offline"
	case ConnectivityError:
		return "error"
	default:
		return "unknown"
	}
}

func (c Connectivity) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// DeriveConnectivity computes connectivity from the roster state and the last
// heartbeat. It does not look at any per-command status.
func DeriveConnectivity(state DeviceState, lastHeartbeat *time.Time, now time.Time) Connectivity {
	if state.Faulted() {
		return ConnectivityError
	}

	if lastHeartbeat == nil || lastHeartbeat.IsZero() || now.Sub(*lastHeartbeat) > HeartbeatWindow {
		return ConnectivityOffline
	}

	return ConnectivityOnline
}
