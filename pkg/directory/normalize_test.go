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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/fleetcmd/pkg/api"
	"github.com/carverauto/fleetcmd/pkg/models"
)

func TestNormalize(t *testing.T) {
	hb := time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC)

	devices := Normalize([]api.DeviceRecord{
		{ID: "D1", Name: "host-1", State: "active", LastHeartbeat: &hb},
		{ID: ""},
		{ID: "  "},
		{ID: "D2", IsEnabled: boolPtr(false)},
		{ID: "D3", State: "quarantined", IsEnabled: boolPtr(true)},
		{ID: "D1", Name: "duplicate"},
		{ID: "D4", LastHeartbeat: &time.Time{}},
	})

	require.Len(t, devices, 3)

	assert.Equal(t, models.Device{ID: "D1", Name: "host-1", State: models.DeviceStateActive, IsEnabled: true, LastHeartbeat: &hb}, devices[0])
	assert.Equal(t, "D3", devices[1].Name)
	assert.Equal(t, models.DeviceStateUnknown, devices[1].State)
	assert.True(t, devices[1].IsEnabled)
	assert.Nil(t, devices[2].LastHeartbeat)
}

func TestFilterTargets(t *testing.T) {
	roster := []models.Device{
		{ID: "D1", IsEnabled: true},
		{ID: "D2", IsEnabled: true},
		{ID: "D3", IsEnabled: false},
	}

	assert.Equal(t, []string{"D2", "D1"}, FilterTargets([]string{"D2", "ghost", "D1", "D2", "D3"}, roster))
	assert.Empty(t, FilterTargets([]string{"ghost"}, roster))
	assert.Empty(t, FilterTargets(nil, roster))
}

func TestIndex(t *testing.T) {
	idx := Index([]models.Device{{ID: "D1", Name: "a"}, {ID: "D2", Name: "b"}})
	assert.Equal(t, "b", idx["D2"].Name)
}
