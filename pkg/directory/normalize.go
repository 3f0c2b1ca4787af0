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

package directory

import (
	"strings"

	"github.com/carverauto/fleetcmd/pkg/api"
	"github.com/carverauto/fleetcmd/pkg/models"
)

// Normalize converts raw roster records into selectable devices. Records
// without an id or explicitly disabled are dropped; duplicates keep the first
// occurrence.
func Normalize(records []api.DeviceRecord) []models.Device {
	out := make([]models.Device, 0, len(records))
	seen := make(map[string]struct{}, len(records))

	for i := range records {
		rec := &records[i]

		id := strings.TrimSpace(rec.ID)
		if id == "" {
			continue
		}

		if rec.IsEnabled != nil && !*rec.IsEnabled {
			continue
		}

		if _, dup := seen[id]; dup {
			continue
		}

		seen[id] = struct{}{}

		name := strings.TrimSpace(rec.Name)
		if name == "" {
			name = id
		}

		dev := models.Device{
			ID:        id,
			Name:      name,
			State:     models.ParseDeviceState(rec.State),
			IsEnabled: true,
		}

		if rec.LastHeartbeat != nil && !rec.LastHeartbeat.IsZero() {
			hb := *rec.LastHeartbeat
			dev.LastHeartbeat = &hb
		}

		out = append(out, dev)
	}

	return out
}

// FilterTargets keeps the requested identifiers that name an enabled device in
// roster, in request order and without duplicates. Unknown identifiers are
// dropped silently.
func FilterTargets(requested []string, roster []models.Device) []string {
	known := make(map[string]struct{}, len(roster))

	for i := range roster {
		if roster[i].IsEnabled {
			known[roster[i].ID] = struct{}{}
		}
	}

	out := make([]string, 0, len(requested))
	seen := make(map[string]struct{}, len(requested))

	for _, id := range requested {
		id = strings.TrimSpace(id)

		if _, ok := known[id]; !ok {
			continue
		}

		if _, dup := seen[id]; dup {
			continue
		}

		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}

// Index maps device id to device for display enrichment.
func Index(roster []models.Device) map[string]models.Device {
	out := make(map[string]models.Device, len(roster))
	for i := range roster {
		out[roster[i].ID] = roster[i]
	}

	return out
}
