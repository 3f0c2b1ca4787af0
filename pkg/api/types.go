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

package api

import (
	"encoding/json"
	"time"

	"github.com/carverauto/fleetcmd/pkg/models"
)

// DeviceRecord is a roster entry as the device API returns it. Optional
// fields are pointers so normalization can tell "absent" from "false".
type DeviceRecord struct {
	ID            string     `json:"id"`
	Name          string     `json:"name,omitempty"`
	State         string     `json:"state,omitempty"`
	IsEnabled     *bool      `json:"isEnabled,omitempty"`
	LastHeartbeat *time.Time `json:"lastHeartbeat,omitempty"`
}

// SubmitRequest is the body of POST /commands. A nil TargetDeviceIDs is
// serialized as null, which the server treats as an org-wide broadcast.
type SubmitRequest struct {
	OrgID           string          `json:"orgId"`
	CommandType     string          `json:"commandType"`
	TargetDeviceIDs []string        `json:"targetDeviceIds"`
	Parameters      json.RawMessage `json:"parameters,omitempty"`
}

type SubmitResponse struct {
	CommandID   string          `json:"commandId"`
	TargetCount int             `json:"targetCount"`
	PollHint    models.PollHint `json:"pollHint"`
}

type deviceEnvelope struct {
	Devices []DeviceRecord `json:"devices"`
}

type commandEnvelope struct {
	Commands []models.Command `json:"commands"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
