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

package core

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/carverauto/fleetcmd/pkg/directory"
	"github.com/carverauto/fleetcmd/pkg/kv"
	"github.com/carverauto/fleetcmd/pkg/logger"
	"github.com/carverauto/fleetcmd/pkg/models"
	"github.com/carverauto/fleetcmd/pkg/poller"
)

const (
	defaultRequestTimeout    = 30 * time.Second
	defaultRequestsPerSecond = 10
	defaultDeviceLimit       = 1000
	defaultCommandLimit      = 50
)

var (
	errAPIBaseURLRequired = errors.New("api_base_url is required")
	errInvalidAPIBaseURL  = errors.New("api_base_url must be an absolute http(s) URL")
	errNegativeLimit      = errors.New("limits must not be negative")
)

// Config is the engine configuration, loaded by pkg/config.
type Config struct {
	APIBaseURL        string          `json:"api_base_url" yaml:"api_base_url"`
	APIToken          string          `json:"api_token" yaml:"api_token"`
	OrgID             string          `json:"org_id" yaml:"org_id"`
	RequestTimeout    models.Duration `json:"request_timeout" yaml:"request_timeout"`
	RequestsPerSecond float64         `json:"requests_per_second" yaml:"requests_per_second"`
	DeviceLimit       int             `json:"device_limit" yaml:"device_limit"`
	CommandLimit      int             `json:"command_limit" yaml:"command_limit"`
	DirectoryTTL      models.Duration `json:"directory_ttl" yaml:"directory_ttl"`
	PollFloor         models.Duration `json:"poll_floor" yaml:"poll_floor"`
	PollMaxBackoff    models.Duration `json:"poll_max_backoff" yaml:"poll_max_backoff"`
	// CatalogFile replaces the built-in action catalog when set.
	CatalogFile string `json:"catalog_file" yaml:"catalog_file"`
	// NATSURL enables the JetStream KV roster cache; empty keeps it in memory.
	NATSURL  string         `json:"nats_url" yaml:"nats_url"`
	KVBucket string         `json:"kv_bucket" yaml:"kv_bucket"`
	KVDomain string         `json:"kv_domain" yaml:"kv_domain"`
	Logging  *logger.Config `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// Validate checks required fields and fills in defaults.
func (c *Config) Validate() error {
	c.APIBaseURL = strings.TrimSpace(c.APIBaseURL)
	c.OrgID = strings.TrimSpace(c.OrgID)

	if c.APIBaseURL == "" {
		return errAPIBaseURLRequired
	}

	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errInvalidAPIBaseURL
	}

	if c.DeviceLimit < 0 || c.CommandLimit < 0 || c.RequestsPerSecond < 0 {
		return errNegativeLimit
	}

	if c.RequestTimeout <= 0 {
		c.RequestTimeout = models.Duration(defaultRequestTimeout)
	}

	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = defaultRequestsPerSecond
	}

	if c.DeviceLimit == 0 {
		c.DeviceLimit = defaultDeviceLimit
	}

	if c.CommandLimit == 0 {
		c.CommandLimit = defaultCommandLimit
	}

	if c.DirectoryTTL <= 0 {
		c.DirectoryTTL = models.Duration(directory.DefaultTTL)
	}

	pc := c.pollConfig()
	if err := pc.Validate(); err != nil {
		return err
	}

	c.PollFloor = pc.Floor
	c.PollMaxBackoff = pc.MaxBackoff

	if c.Logging == nil {
		c.Logging = logger.DefaultConfig()
	}

	// stdout carries command output
	if c.Logging.Output == "" {
		c.Logging.Output = "stderr"
	}

	return nil
}

func (c *Config) pollConfig() poller.Config {
	return poller.Config{Floor: c.PollFloor, MaxBackoff: c.PollMaxBackoff}
}

// kvConfig sets no bucket TTL: entries carry their own fetch time and stay
// readable as stale data past DirectoryTTL.
func (c *Config) kvConfig() *kv.Config {
	return &kv.Config{
		NATSURL: c.NATSURL,
		Bucket:  c.KVBucket,
		Domain:  c.KVDomain,
	}
}
