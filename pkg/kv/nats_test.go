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

	"github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/fleetcmd/pkg/logger"
	"github.com/carverauto/fleetcmd/pkg/models"
)

func runJetStreamServer(t *testing.T) *server.Server {
	t.Helper()

	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	srv, err := server.NewServer(opts)
	require.NoError(t, err)

	go srv.Start()

	if !srv.ReadyForConnections(10 * time.Second) {
		srv.Shutdown()
		t.Fatalf("embedded NATS server not ready for connections")
	}

	require.Eventually(t, func() bool {
		return srv.JetStreamEnabled()
	}, 5*time.Second, 50*time.Millisecond, "embedded NATS server not ready for JetStream")

	t.Cleanup(srv.Shutdown)

	return srv
}

func TestNatsStoreRoundTrip(t *testing.T) {
	srv := runJetStreamServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := NewNatsStore(ctx, &Config{NATSURL: srv.ClientURL(), Bucket: "roster-test"}, logger.NewTestLogger())
	require.NoError(t, err)

	defer func() { _ = store.Close() }()

	_, found, err := store.Get(ctx, "devices.org-1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Put(ctx, "devices.org-1", []byte(`{"devices":[]}`), 0))

	value, found, err := store.Get(ctx, "devices.org-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"devices":[]}`, string(value))

	require.NoError(t, store.Delete(ctx, "devices.org-1"))
	require.NoError(t, store.Delete(ctx, "devices.org-1"))

	_, found, err = store.Get(ctx, "devices.org-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNatsStoreReopensExistingBucket(t *testing.T) {
	srv := runJetStreamServer(t)
	ctx := context.Background()
	cfg := Config{NATSURL: srv.ClientURL(), Bucket: "roster-reopen"}

	first, err := NewNatsStore(ctx, &cfg, nil)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, "devices.org-2", []byte("v1"), 0))
	require.NoError(t, first.Close())

	second, err := NewNatsStore(ctx, &cfg, nil)
	require.NoError(t, err)

	defer func() { _ = second.Close() }()

	value, found, err := second.Get(ctx, "devices.org-2")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v1", string(value))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "missing url", cfg: Config{}, wantErr: errNatsURLRequired},
		{name: "negative max bytes", cfg: Config{NATSURL: "nats://x", BucketMaxBytes: -1}, wantErr: errBucketMaxBytesNegative},
		{name: "bad bucket", cfg: Config{NATSURL: "nats://x", Bucket: "a.b"}, wantErr: errInvalidBucketName},
		{name: "defaults", cfg: Config{NATSURL: "nats://x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, defaultBucket, tt.cfg.Bucket)
			assert.Equal(t, uint8(1), tt.cfg.BucketHistory)
			assert.Equal(t, models.Duration(defaultConnectTimeout), tt.cfg.ConnectTimeout)
		})
	}
}
