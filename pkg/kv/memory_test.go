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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	store := NewMemoryStore(time.Minute)
	store.nowFn = func() time.Time { return now }

	value := []byte("roster")
	require.NoError(t, store.Put(ctx, "k", value, 0))

	value[0] = 'X'

	got, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "roster", string(got), "stored value must not alias the caller's slice")

	now = now.Add(time.Minute)

	_, found, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found, "entry should expire at its ttl")

	require.NoError(t, store.Put(ctx, "k", []byte("v"), time.Hour))
	require.NoError(t, store.Delete(ctx, "k"))

	_, found, _ = store.Get(ctx, "k")
	assert.False(t, found)

	require.NoError(t, store.Close())

	_, _, err = store.Get(ctx, "k")
	require.ErrorIs(t, err, errStoreClosed)
	require.ErrorIs(t, store.Put(ctx, "k", nil, 0), errStoreClosed)
}

func TestMemoryStoreNoTTL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	require.NoError(t, store.Put(ctx, "k", []byte("v"), 0))

	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
}
