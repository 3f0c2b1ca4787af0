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

//go:generate mockgen -destination=mock_api.go -package=api github.com/carverauto/fleetcmd/pkg/api DeviceLister,CommandSubmitter,CommandQuerier

package api

import (
	"context"

	"github.com/carverauto/fleetcmd/pkg/models"
)

// DeviceLister fetches the targetable device roster for an organization.
type DeviceLister interface {
	ListDevices(ctx context.Context, orgID string, limit int) ([]DeviceRecord, error)
}

// CommandSubmitter submits and cancels commands.
type CommandSubmitter interface {
	SubmitCommand(ctx context.Context, req *SubmitRequest) (*SubmitResponse, error)
	CancelCommand(ctx context.Context, orgID, commandID string) error
}

// CommandQuerier reads command summaries and per-device detail.
type CommandQuerier interface {
	ListCommands(ctx context.Context, orgID string, limit int) ([]models.Command, error)
	GetCommand(ctx context.Context, orgID, commandID string) (*models.CommandRecord, error)
}
