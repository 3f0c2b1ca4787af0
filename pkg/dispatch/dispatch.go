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

// Package dispatch validates and submits fleet commands.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/carverauto/fleetcmd/pkg/api"
	"github.com/carverauto/fleetcmd/pkg/catalog"
	"github.com/carverauto/fleetcmd/pkg/directory"
	"github.com/carverauto/fleetcmd/pkg/logger"
	"github.com/carverauto/fleetcmd/pkg/models"
)

// Request asks for one action on a set of devices. Nil or empty
// TargetDeviceIDs is an org-wide broadcast.
type Request struct {
	OrgID           string   `json:"orgId" validate:"required"`
	ActionType      string   `json:"actionType" validate:"required"`
	TargetDeviceIDs []string `json:"targetDeviceIds" validate:"omitempty,dive,required"`
	// Parameters is an optional JSON document passed through to the agent.
	Parameters string `json:"parameters,omitempty" validate:"omitempty,json"`
}

// Result describes an accepted command.
type Result struct {
	CommandID   string                  `json:"commandId"`
	TargetCount int                     `json:"targetCount"`
	PollHint    models.PollHint         `json:"pollHint"`
	Broadcast   bool                    `json:"broadcast"`
	Action      models.ActionDescriptor `json:"action"`
	RequestID   string                  `json:"requestId"`
	SubmittedAt time.Time               `json:"submittedAt"`
}

// Dispatcher has no state beyond its collaborators; dispatching never touches
// the device directory or any local command list.
type Dispatcher struct {
	actions   catalog.ActionResolver
	submitter api.CommandSubmitter
	validate  *validator.Validate
	logger    logger.Logger
	newID     func() string
	nowFn     func() time.Time
}

func New(actions catalog.ActionResolver, submitter api.CommandSubmitter, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Dispatcher{
		actions:   actions,
		submitter: submitter,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    log,
		newID:     uuid.NewString,
		nowFn:     time.Now,
	}
}

// Dispatch validates req locally and submits it. Validation failures are
// returned before any network call.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Result, error) {
	req = normalize(req)

	action, err := d.check(&req)
	if err != nil {
		d.logger.Info().
			Err(err).
			Str("org_id", req.OrgID).
			Str("action", req.ActionType).
			Msg("Rejected command before submission")

		return nil, err
	}

	broadcast := len(req.TargetDeviceIDs) == 0
	requestID := d.newID()

	submit := &api.SubmitRequest{
		OrgID:       req.OrgID,
		CommandType: action.Type,
	}

	if !broadcast {
		submit.TargetDeviceIDs = req.TargetDeviceIDs
	}

	if req.Parameters != "" {
		submit.Parameters = json.RawMessage(req.Parameters)
	}

	resp, err := d.submitter.SubmitCommand(api.WithRequestID(ctx, requestID), submit)
	if err != nil {
		d.logger.Warn().
			Err(err).
			Str("org_id", req.OrgID).
			Str("action", action.Type).
			Str("request_id", requestID).
			Str("kind", models.KindOf(err).String()).
			Msg("Command submission failed")

		return nil, classify(err)
	}

	targetCount := resp.TargetCount
	if targetCount == 0 && !broadcast {
		targetCount = len(req.TargetDeviceIDs)
	}

	event := d.logger.Info().
		Str("org_id", req.OrgID).
		Str("action", action.Type).
		Str("command_id", resp.CommandID).
		Str("request_id", requestID).
		Bool("broadcast", broadcast).
		Int("target_count", targetCount)

	if resp.PollHint.NextCheckAt != nil {
		event = event.Time("next_check_at", *resp.PollHint.NextCheckAt)
	}

	if broadcast {
		event.Msg("Dispatched org-wide broadcast command")
	} else {
		event.Msg("Dispatched command")
	}

	return &Result{
		CommandID:   resp.CommandID,
		TargetCount: targetCount,
		PollHint:    resp.PollHint,
		Broadcast:   broadcast,
		Action:      action,
		RequestID:   requestID,
		SubmittedAt: d.nowFn(),
	}, nil
}

// Validate runs the same local checks as Dispatch without submitting.
func (d *Dispatcher) Validate(req Request) (models.ActionDescriptor, error) {
	req = normalize(req)

	return d.check(&req)
}

// Cancel asks the server to cancel a command. Local state is not changed; the
// next detail fetch reports the outcome.
func (d *Dispatcher) Cancel(ctx context.Context, orgID, commandID string) error {
	orgID = strings.TrimSpace(orgID)
	commandID = strings.TrimSpace(commandID)

	if orgID == "" {
		return models.NewValidationError("Cancel", models.ErrMissingOrg, "")
	}

	if commandID == "" {
		return models.NewValidationError("Cancel", models.ErrMissingCommandID, "")
	}

	requestID := d.newID()

	if err := d.submitter.CancelCommand(api.WithRequestID(ctx, requestID), orgID, commandID); err != nil {
		return classify(err)
	}

	d.logger.Info().
		Str("org_id", orgID).
		Str("command_id", commandID).
		Str("request_id", requestID).
		Msg("Requested command cancellation")

	return nil
}

// SelectTargets applies deep-link preselection. Requesting nothing yields a
// broadcast (nil). Requesting identifiers of which none are in the roster is
// an error, so a bad link never widens into a broadcast.
func SelectTargets(requested []string, roster []models.Device) ([]string, error) {
	if len(requested) == 0 {
		return nil, nil
	}

	selected := directory.FilterTargets(requested, roster)
	if len(selected) == 0 {
		return nil, models.NewValidationError("SelectTargets", models.ErrEmptyTargetSelection,
			fmt.Sprintf("none of %d requested devices are targetable", len(requested)))
	}

	return selected, nil
}

func normalize(req Request) Request {
	out := Request{
		OrgID:      strings.TrimSpace(req.OrgID),
		ActionType: strings.TrimSpace(req.ActionType),
		Parameters: strings.TrimSpace(req.Parameters),
	}

	if len(req.TargetDeviceIDs) == 0 {
		return out
	}

	seen := make(map[string]struct{}, len(req.TargetDeviceIDs))
	out.TargetDeviceIDs = make([]string, 0, len(req.TargetDeviceIDs))

	for _, id := range req.TargetDeviceIDs {
		id = strings.TrimSpace(id)

		if id != "" {
			if _, dup := seen[id]; dup {
				continue
			}

			seen[id] = struct{}{}
		}

		out.TargetDeviceIDs = append(out.TargetDeviceIDs, id)
	}

	return out
}

// check runs the struct validation and the catalog lookup. The first failure
// in priority order wins: org, action, catalog state, parameters, targets.
func (d *Dispatcher) check(req *Request) (models.ActionDescriptor, error) {
	failed := map[string]bool{}

	if err := d.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return models.ActionDescriptor{}, models.NewValidationError("Dispatch", err, "")
		}

		for _, fe := range verrs {
			failed[fe.StructField()] = true
		}
	}

	if failed["OrgID"] {
		return models.ActionDescriptor{}, models.NewValidationError("Dispatch", models.ErrMissingOrg, "")
	}

	if failed["ActionType"] {
		return models.ActionDescriptor{}, models.NewValidationError("Dispatch", models.ErrNoActionSelected, "")
	}

	action, ok := d.actions.Resolve(req.ActionType)
	if !ok {
		return action, models.NewValidationError("Dispatch", models.ErrUnknownAction,
			fmt.Sprintf("unknown action %q", req.ActionType))
	}

	if !action.Enabled {
		return action, models.NewValidationError("Dispatch", models.ErrActionDisabled,
			fmt.Sprintf("%s is not available", action.DisplayName()))
	}

	if failed["Parameters"] {
		return action, models.NewValidationError("Dispatch", models.ErrMalformedParameters,
			"parameters must be a well-formed JSON document")
	}

	if failed["TargetDeviceIDs"] {
		return action, models.NewValidationError("Dispatch", models.ErrInvalidTarget, "target device ids must not be blank")
	}

	return action, nil
}

// classify makes sure every submission error carries a kind.
func classify(err error) error {
	if models.KindOf(err) != models.KindUnknown {
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return models.NewTransportError("Dispatch", err)
	}

	return &models.Error{Kind: models.KindServer, Op: "Dispatch", Err: err}
}
