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

package poller

import (
	"time"

	"github.com/carverauto/fleetcmd/pkg/models"
)

const (
	DefaultFloor      = 5 * time.Second
	DefaultMaxBackoff = 5 * time.Minute
)

// Config bounds how often a watched command is polled.
type Config struct {
	// Floor is the minimum delay between checks, whatever the server hints.
	Floor models.Duration `json:"floor"`
	// MaxBackoff caps the retry delay after transient refresh failures.
	MaxBackoff models.Duration `json:"max_backoff"`
}

// Validate fills in defaults.
func (c *Config) Validate() error {
	if c.Floor <= 0 {
		c.Floor = models.Duration(DefaultFloor)
	}

	if c.MaxBackoff <= 0 {
		c.MaxBackoff = models.Duration(DefaultMaxBackoff)
	}

	if c.MaxBackoff < c.Floor {
		return errBackoffBelowFloor
	}

	return nil
}
