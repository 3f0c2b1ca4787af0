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

// Package catalog holds the versioned table of remote actions that can be
// dispatched to managed devices.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/carverauto/fleetcmd/pkg/models"
)

var (
	errDuplicateType = errors.New("duplicate action type")
	errEmptyType     = errors.New("action type is required")
)

// DefaultVersion identifies the built-in table.
const DefaultVersion = "2025.1"

// Catalog is an immutable, ordered set of action descriptors.
type Catalog struct {
	version string
	actions []models.ActionDescriptor
	index   map[string]int
}

// ActionResolver is the read side of a catalog used by the dispatcher.
type ActionResolver interface {
	Resolve(actionType string) (models.ActionDescriptor, bool)
}

// New builds a catalog, rejecting empty or duplicate action types.
func New(version string, actions []models.ActionDescriptor) (*Catalog, error) {
	c := &Catalog{
		version: version,
		actions: make([]models.ActionDescriptor, 0, len(actions)),
		index:   make(map[string]int, len(actions)),
	}

	for _, a := range actions {
		a.Type = strings.TrimSpace(a.Type)
		if a.Type == "" {
			return nil, errEmptyType
		}

		if _, ok := c.index[a.Type]; ok {
			return nil, fmt.Errorf("%w: %s", errDuplicateType, a.Type)
		}

		c.index[a.Type] = len(c.actions)
		c.actions = append(c.actions, a)
	}

	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(DefaultVersion, []models.ActionDescriptor{
		{Type: "TriggerScan", Label: "Run scan", Tooltip: "Start an on-demand malware scan", Enabled: true},
		{Type: "RefreshInventory", Label: "Refresh inventory", Tooltip: "Re-collect hardware and software inventory", Enabled: true},
		{Type: "CollectLogs", Label: "Collect logs", Tooltip: "Upload agent and system logs as a downloadable artifact", Enabled: true},
		{Type: "UpdateDefinitions", Label: "Update definitions", Tooltip: "Pull the latest threat definitions", Enabled: true},
		{Type: "RestartAgent", Label: "Restart agent", Tooltip: "Restart the endpoint agent service", Enabled: true},
		{Type: "Isolate", Label: "Isolate device", Tooltip: "Cut the device off from the network (not yet available)", Enabled: false},
		{Type: "ReleaseIsolation", Label: "Release isolation", Tooltip: "Restore network access (not yet available)", Enabled: false},
		{Type: "RunScript", Label: "Run script", Tooltip: "Execute an approved script (not yet available)", Enabled: false},
	})
	if err != nil {
		panic(err) // static table
	}

	return c
}

type fileFormat struct {
	Version string                    `yaml:"version"`
	Actions []models.ActionDescriptor `yaml:"actions"`
}

// LoadFile reads a catalog document. YAML is a superset of JSON, so either works.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file '%s': %w", path, err)
	}

	var doc fileFormat

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file '%s': %w", path, err)
	}

	return New(doc.Version, doc.Actions)
}

// Version returns the catalog version string.
func (c *Catalog) Version() string {
	return c.version
}

// List returns every action in declaration order, disabled ones included.
func (c *Catalog) List() []models.ActionDescriptor {
	out := make([]models.ActionDescriptor, len(c.actions))
	copy(out, c.actions)

	return out
}

// Resolve looks up an action type. Unknown types fail closed: the result is a
// disabled descriptor carrying the requested type, and false.
func (c *Catalog) Resolve(actionType string) (models.ActionDescriptor, bool) {
	if c != nil {
		if i, ok := c.index[actionType]; ok {
			return c.actions[i], true
		}
	}

	return models.ActionDescriptor{Type: actionType, Label: actionType}, false
}
