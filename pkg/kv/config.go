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

package kv

import (
	"time"

	"github.com/carverauto/fleetcmd/pkg/models"
)

const (
	defaultBucket         = "fleetcmd-directory"
	defaultConnectTimeout = 5 * time.Second
)

// Config describes the JetStream bucket backing the roster cache.
type Config struct {
	NATSURL        string          `json:"nats_url"`
	Bucket         string          `json:"bucket,omitempty"`
	Domain         string          `json:"domain,omitempty"`           // optional JetStream domain
	BucketMaxBytes int64           `json:"bucket_max_bytes,omitempty"` // 0 = unlimited
	BucketTTL      models.Duration `json:"bucket_ttl,omitempty"`       // 0 = no expiry
	BucketHistory  uint8           `json:"bucket_history,omitempty"`
	ConnectTimeout models.Duration `json:"connect_timeout,omitempty"`
}

// Validate checks required fields and fills in defaults.
func (c *Config) Validate() error {
	if c.NATSURL == "" {
		return errNatsURLRequired
	}

	if c.BucketMaxBytes < 0 {
		return errBucketMaxBytesNegative
	}

	if c.Bucket == "" {
		c.Bucket = defaultBucket
	}

	if !validBucketName(c.Bucket) {
		return errInvalidBucketName
	}

	if c.BucketHistory == 0 {
		c.BucketHistory = 1
	}

	if c.BucketTTL < 0 {
		c.BucketTTL = 0
	}

	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = models.Duration(defaultConnectTimeout)
	}

	return nil
}

func validBucketName(name string) bool {
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}

	return true
}
