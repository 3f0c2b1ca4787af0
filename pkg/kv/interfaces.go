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

//go:generate mockgen -destination=mock_kv.go -package=kv github.com/carverauto/fleetcmd/pkg/kv KVStore

// Package kv persists small values (the device roster cache) in a key-value
// bucket, either NATS JetStream or process memory.
package kv

import (
	"context"
	"time"
)

// KVStore is the storage contract used by the device directory cache.
type KVStore interface {
	// Get returns the value, whether the key was found, and any backend error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores value under key. A zero ttl falls back to the store default.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}
