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
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/carverauto/fleetcmd/pkg/models"
)

// Dracula theme colors.
const (
	draculaForeground = "#F8F8F2"
	draculaCyan       = "#8BE9FD"
	draculaGreen      = "#50FA7B"
	draculaOrange     = "#FFB86C"
	draculaPurple     = "#BD93F9"
	draculaRed        = "#FF5555"
	draculaYellow     = "#F1FA8C"
	draculaComment    = "#6272A4"
)

type styles struct {
	title, header, cell, border, muted, success, warning, error, info lipgloss.Style
}

// newStyles binds styles to out so colors are dropped when out is not a
// terminal.
func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)

	return styles{
		title:   r.NewStyle().Foreground(lipgloss.Color(draculaPurple)).Bold(true),
		header:  r.NewStyle().Foreground(lipgloss.Color(draculaCyan)).Bold(true).Padding(0, 1),
		cell:    r.NewStyle().Foreground(lipgloss.Color(draculaForeground)).Padding(0, 1),
		border:  r.NewStyle().Foreground(lipgloss.Color(draculaComment)),
		muted:   r.NewStyle().Foreground(lipgloss.Color(draculaComment)),
		success: r.NewStyle().Foreground(lipgloss.Color(draculaGreen)),
		warning: r.NewStyle().Foreground(lipgloss.Color(draculaYellow)),
		error:   r.NewStyle().Foreground(lipgloss.Color(draculaRed)).Bold(true),
		info:    r.NewStyle().Foreground(lipgloss.Color(draculaOrange)),
	}
}

func (s styles) forStatus(st models.CommandStatus) lipgloss.Style {
	switch st {
	case models.StatusCompleted:
		return s.success
	case models.StatusFailed, models.StatusTimedOut, models.StatusUnsupported:
		return s.error
	case models.StatusDelivered, models.StatusExecuting:
		return s.warning
	case models.StatusCancelled, models.StatusQueued, models.StatusUnknown:
		return s.muted
	default:
		return s.muted
	}
}

func (s styles) forOverall(st models.OverallStatus) lipgloss.Style {
	switch st {
	case models.OverallCompleted:
		return s.success
	case models.OverallCompletedWithErrors:
		return s.warning
	case models.OverallFailed:
		return s.error
	case models.OverallInProgress:
		return s.info
	case models.OverallQueued, models.OverallCancelled, models.OverallUnknown:
		return s.muted
	default:
		return s.muted
	}
}

func (s styles) forConnectivity(c models.Connectivity) lipgloss.Style {
	switch c {
	case models.ConnectivityOnline:
		return s.success
	case models.ConnectivityError:
		return s.error
	case models.ConnectivityOffline:
		return s.muted
	default:
		return s.muted
	}
}
