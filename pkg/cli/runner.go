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

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/carverauto/fleetcmd/pkg/core"
	"github.com/carverauto/fleetcmd/pkg/directory"
	"github.com/carverauto/fleetcmd/pkg/dispatch"
	"github.com/carverauto/fleetcmd/pkg/models"
	"github.com/carverauto/fleetcmd/pkg/poller"
	"github.com/carverauto/fleetcmd/pkg/status"
)

//go:generate mockgen -destination=mock_cli.go -package=cli github.com/carverauto/fleetcmd/pkg/cli Backend

// Backend is the engine surface the CLI drives. *core.Engine satisfies it.
type Backend interface {
	Actions() []models.ActionDescriptor
	Devices(ctx context.Context, refresh bool) (*directory.Result, error)
	Dispatch(ctx context.Context, req core.DispatchRequest) (*dispatch.Result, error)
	Commands(ctx context.Context, filter status.Filter, limit int) ([]models.Command, error)
	Detail(ctx context.Context, commandID string) (*models.CommandDetail, error)
	Cancel(ctx context.Context, commandID string) error
	Watch(ctx context.Context, commandID string, nextCheckAt *time.Time, onEvent func(poller.Event)) (*poller.Watcher, error)
}

// Runner executes one parsed subcommand against a Backend.
type Runner struct {
	backend Backend
	out     io.Writer
	format  string
	styles  styles
	nowFn   func() time.Time

	// watch events print from timer goroutines
	mu sync.Mutex
}

// NewRunner writes results to out in the given format.
func NewRunner(backend Backend, out io.Writer, format string) *Runner {
	if format == "" {
		format = outputTable
	}

	return &Runner{
		backend: backend,
		out:     out,
		format:  format,
		styles:  newStyles(out),
		nowFn:   time.Now,
	}
}

// Run dispatches cfg.SubCmd.
func (r *Runner) Run(ctx context.Context, cfg *CmdConfig) error {
	if r.backend == nil {
		return errNoBackend
	}

	switch cfg.SubCmd {
	case "actions":
		return r.runActions()
	case "devices":
		return r.runDevices(ctx, cfg.Refresh)
	case "dispatch":
		return r.runDispatch(ctx, cfg)
	case "commands":
		return r.runCommands(ctx, cfg)
	case "detail":
		return r.runDetail(ctx, cfg.CommandID)
	case "watch":
		return r.runWatch(ctx, cfg.CommandID, nil)
	case "cancel":
		return r.runCancel(ctx, cfg.CommandID)
	default:
		return fmt.Errorf("%w: %s", errUnknownSubcommand, cfg.SubCmd)
	}
}

func (r *Runner) runActions() error {
	actions := r.backend.Actions()

	return r.emit(actions, func() string {
		rows := make([][]string, 0, len(actions))

		for _, a := range actions {
			enabled := r.styles.success.Render("yes")
			if !a.Enabled {
				enabled = r.styles.muted.Render("no")
			}

			rows = append(rows, []string{a.Type, a.DisplayName(), enabled, a.Tooltip})
		}

		return r.table([]string{"TYPE", "LABEL", "ENABLED", "DESCRIPTION"}, rows)
	})
}

func (r *Runner) runDevices(ctx context.Context, refresh bool) error {
	res, err := r.backend.Devices(ctx, refresh)
	if err != nil {
		return err
	}

	now := r.nowFn()

	return r.emit(res, func() string {
		rows := make([][]string, 0, len(res.Devices))

		for _, d := range res.Devices {
			conn := models.DeriveConnectivity(d.State, d.LastHeartbeat, now)

			rows = append(rows, []string{
				d.ID,
				d.Name,
				d.State.String(),
				strconv.FormatBool(d.IsEnabled),
				r.styles.forConnectivity(conn).Render(conn.String()),
				formatAgo(d.LastHeartbeat, now),
			})
		}

		var b strings.Builder

		b.WriteString(r.table([]string{"ID", "NAME", "STATE", "ENABLED", "CONNECTIVITY", "LAST HEARTBEAT"}, rows))
		b.WriteString("\n")

		footer := fmt.Sprintf("%d devices, fetched %s", len(res.Devices), formatAgo(&res.FetchedAt, now))
		if res.Stale {
			footer += " (stale, refreshing in background)"
		}

		b.WriteString(r.styles.muted.Render(footer))

		return b.String()
	})
}

func (r *Runner) runDispatch(ctx context.Context, cfg *CmdConfig) error {
	res, err := r.backend.Dispatch(ctx, core.DispatchRequest{
		ActionType:      cfg.Action,
		TargetDeviceIDs: cfg.Targets,
		Parameters:      cfg.Params,
	})
	if err != nil {
		return err
	}

	if err := r.emit(res, func() string {
		return r.styles.success.Render(res.Summary(r.nowFn()))
	}); err != nil {
		return err
	}

	if !cfg.Watch {
		return nil
	}

	return r.runWatch(ctx, res.CommandID, res.PollHint.NextCheckAt)
}

func (r *Runner) runCommands(ctx context.Context, cfg *CmdConfig) error {
	filter := status.Filter{CommandType: cfg.Type}

	if cfg.Status != "" {
		st, err := status.ParseFilterStatus(cfg.Status)
		if err != nil {
			return err
		}

		filter.Status = st
	}

	commands, err := r.backend.Commands(ctx, filter, cfg.Limit)
	if err != nil {
		return err
	}

	return r.emit(commands, func() string {
		if len(commands) == 0 {
			return r.styles.muted.Render("No commands found.")
		}

		rows := make([][]string, 0, len(commands))

		for i := range commands {
			c := &commands[i]
			rows = append(rows, []string{
				c.CommandID,
				c.CommandType,
				r.styles.forStatus(c.Status).Render(c.Status.String()),
				c.QueuedAt.Local().Format(time.DateTime),
				fmt.Sprintf("%d/%d", c.CompletedDevices, c.TotalDevices),
			})
		}

		return r.table([]string{"COMMAND", "TYPE", "STATUS", "QUEUED", "DONE"}, rows)
	})
}

func (r *Runner) runDetail(ctx context.Context, commandID string) error {
	detail, err := r.backend.Detail(ctx, commandID)
	if err != nil {
		return err
	}

	return r.emit(detail, func() string { return r.renderDetail(detail) })
}

func (r *Runner) runCancel(ctx context.Context, commandID string) error {
	if err := r.backend.Cancel(ctx, commandID); err != nil {
		return err
	}

	ack := struct {
		CommandID string `json:"commandId"`
		Requested bool   `json:"cancelRequested"`
	}{CommandID: commandID, Requested: true}

	return r.emit(ack, func() string {
		return r.styles.success.Render(fmt.Sprintf(
			"Cancellation requested for command %s; devices that already finished keep their outcome.", commandID))
	})
}

// runWatch blocks until the command resolves, polling fails permanently,
// the server stops supplying hints, or ctx ends.
func (r *Runner) runWatch(ctx context.Context, commandID string, nextCheckAt *time.Time) error {
	done := make(chan error, 1)

	finish := func(err error) {
		select {
		case done <- err:
		default:
		}
	}

	w, err := r.backend.Watch(ctx, commandID, nextCheckAt, func(ev poller.Event) {
		r.printEvent(ev)

		switch ev.Type {
		case poller.EventResolved, poller.EventStalled:
			finish(nil)
		case poller.EventFailed:
			finish(ev.Err)
		case poller.EventUpdated, poller.EventRefreshFailed:
		}
	})
	if err != nil {
		return err
	}

	if w != nil {
		defer w.Stop()
	}

	if nextCheckAt != nil && r.format == outputTable {
		r.println(r.styles.muted.Render("Watching " + commandID + "; first check " + formatUntil(*nextCheckAt, r.nowFn())))
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}

		return ctx.Err()
	}
}

func (r *Runner) printEvent(ev poller.Event) {
	if r.format != outputTable {
		if ev.Detail != nil && ev.Type != poller.EventRefreshFailed {
			_ = r.emit(ev.Detail, nil)
		}

		return
	}

	switch ev.Type {
	case poller.EventUpdated:
		r.println(r.renderDetail(ev.Detail))
		r.println(r.styles.muted.Render("Next check in " + ev.Delay.Round(time.Second).String()))
	case poller.EventResolved:
		r.println(r.renderDetail(ev.Detail))
		r.println(r.styles.success.Render("All devices reached a final status."))
	case poller.EventStalled:
		r.println(r.renderDetail(ev.Detail))
		r.println(r.styles.warning.Render("The server gave no time for the next check; run `fleetcmd watch " +
			ev.CommandID + "` later to continue."))
	case poller.EventRefreshFailed:
		r.println(r.styles.warning.Render(fmt.Sprintf("Status refresh failed (%v); retrying in %s.",
			ev.Err, ev.Delay.Round(time.Second))))
	case poller.EventFailed:
		r.println(r.styles.error.Render(fmt.Sprintf("Status refresh failed: %v", ev.Err)))
	}
}

func (r *Runner) renderDetail(d *models.CommandDetail) string {
	if d == nil {
		return ""
	}

	now := r.nowFn()

	var b strings.Builder

	b.WriteString(r.styles.title.Render(fmt.Sprintf("%s  %s", d.CommandType, d.CommandID)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Status: %s   Devices: %d   Offline: %d   Expired undelivered: %d\n",
		r.styles.forOverall(d.OverallStatus).Render(d.OverallStatus.String()),
		d.TotalDevices, d.OfflineDevices, d.ExpiredUndeliveredDevices))

	if !d.QueuedAt.IsZero() {
		b.WriteString("Queued: " + d.QueuedAt.Local().Format(time.DateTime) + "\n")
	}

	if d.NextCheckAt != nil {
		b.WriteString("Next check: " + formatUntil(*d.NextCheckAt, now) + "\n")
	}

	rows := make([][]string, 0, len(d.Devices))

	for i := range d.Devices {
		dev := &d.Devices[i]

		artifact := dev.ArtifactDownloadURL
		if artifact != "" && dev.ArtifactRetentionDays > 0 {
			artifact += fmt.Sprintf(" (%dd)", dev.ArtifactRetentionDays)
		}

		rows = append(rows, []string{
			dev.DeviceID,
			dev.Name,
			r.styles.forStatus(dev.Status).Render(dev.Status.String()),
			r.styles.forConnectivity(dev.Connectivity).Render(dev.Connectivity.String()),
			dev.Outcome(),
			artifact,
		})
	}

	b.WriteString(r.table([]string{"DEVICE", "NAME", "STATUS", "CONNECTIVITY", "OUTCOME", "ARTIFACT"}, rows))

	return b.String()
}

func (r *Runner) table(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.styles.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.styles.header
			}

			return r.styles.cell
		}).
		Render()
}

// emit writes data as JSON or YAML, or calls render for table output.
func (r *Runner) emit(data any, render func() string) error {
	switch r.format {
	case outputJSON:
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("formatting JSON: %w", err)
		}

		r.println(string(b))
	case outputYAML:
		b, err := toYAML(data)
		if err != nil {
			return err
		}

		r.write("---\n" + string(b))
	default:
		if render != nil {
			r.println(render())
		}
	}

	return nil
}

// toYAML goes through JSON so field names and enum strings match -o json.
func toYAML(data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("formatting YAML: %w", err)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("formatting YAML: %w", err)
	}

	out, err := yaml.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("formatting YAML: %w", err)
	}

	return out, nil
}

func (r *Runner) println(s string) {
	r.write(s + "\n")
}

func (r *Runner) write(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = io.WriteString(r.out, s)
}

func formatAgo(t *time.Time, now time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}

	d := now.Sub(*t)
	if d < time.Second {
		return "just now"
	}

	return d.Round(time.Second).String() + " ago"
}

func formatUntil(t, now time.Time) string {
	d := t.Sub(now)
	if d <= 0 {
		return "now"
	}

	return "in " + d.Round(time.Second).String()
}
