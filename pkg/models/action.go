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

// ActionDescriptor describes one remote administrative action that can be
// dispatched to managed devices.
type ActionDescriptor struct {
	Type    string `json:"type" yaml:"type"`
	Label   string `json:"label" yaml:"label"`
	Tooltip string `json:"tooltip,omitempty" yaml:"tooltip,omitempty"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

// DisplayName returns the label, falling back to the type identifier.
func (a ActionDescriptor) DisplayName() string {
	if a.Label != "" {
		return a.Label
	}

	return a.Type
}
