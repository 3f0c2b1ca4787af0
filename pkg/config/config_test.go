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

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/fleetcmd/pkg/kv"
	"github.com/carverauto/fleetcmd/pkg/logger"
	"github.com/carverauto/fleetcmd/pkg/models"
)

var errNameRequired = errors.New("name is required")

type tlsSample struct {
	CertFile string `json:"cert_file"`
}

type nestedSample struct {
	Level string `json:"level"`
}

type sampleConfig struct {
	Name     string            `json:"name" yaml:"name"`
	Timeout  models.Duration   `json:"timeout" yaml:"timeout"`
	Raw      time.Duration     `json:"raw" yaml:"raw"`
	Limit    int               `json:"limit" yaml:"limit"`
	Tags     []string          `json:"tags" yaml:"tags"`
	Enabled  *bool             `json:"enabled" yaml:"enabled"`
	Nested   nestedSample      `json:"nested" yaml:"nested"`
	TLS      *tlsSample        `json:"tls,omitempty" yaml:"tls,omitempty"`
	Headers  map[string]string `json:"headers" yaml:"headers"`
	Internal string            `json:"-"`
}

func (c *sampleConfig) Validate() error {
	if c.Name == "" {
		return errNameRequired
	}

	if c.Limit == 0 {
		c.Limit = 100
	}

	return nil
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestFileLoaderJSONAndYAML(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	cfg := NewConfig(logger.NewTestLogger())

	var fromJSON sampleConfig

	path := writeFile(t, "fleetcmd.json", `{"name":"json","timeout":"30s","tags":["a","b"]}`)
	require.NoError(t, cfg.LoadAndValidate(context.Background(), path, &fromJSON))
	assert.Equal(t, "json", fromJSON.Name)
	assert.Equal(t, 30*time.Second, fromJSON.Timeout.Std())
	assert.Equal(t, []string{"a", "b"}, fromJSON.Tags)
	assert.Equal(t, 100, fromJSON.Limit, "Validate fills defaults")

	var fromYAML sampleConfig

	path = writeFile(t, "fleetcmd.yaml", "name: yaml\nlimit: 7\nnested:\n  level: debug\n")
	require.NoError(t, cfg.LoadAndValidate(context.Background(), path, &fromYAML))
	assert.Equal(t, "yaml", fromYAML.Name)
	assert.Equal(t, 7, fromYAML.Limit)
	assert.Equal(t, "debug", fromYAML.Nested.Level)
}

func TestFileLoaderErrors(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "file")

	cfg := NewConfig(nil)

	var dst sampleConfig

	err := cfg.LoadAndValidate(context.Background(), filepath.Join(t.TempDir(), "missing.json"), &dst)
	require.ErrorIs(t, err, os.ErrNotExist)

	path := writeFile(t, "bad.json", `{"name":`)
	require.Error(t, cfg.LoadAndValidate(context.Background(), path, &dst))

	path = writeFile(t, "empty.json", `{}`)
	require.ErrorIs(t, cfg.LoadAndValidate(context.Background(), path, &dst), errNameRequired)
}

func TestNoPathUsesDefaults(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	dst := sampleConfig{Name: "preset"}
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), "", &dst))
	assert.Equal(t, "preset", dst.Name)
	assert.Equal(t, 100, dst.Limit)
}

func TestInvalidConfigSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "consul")

	var dst sampleConfig
	require.ErrorIs(t, NewConfig(nil).LoadAndValidate(context.Background(), "x.json", &dst), errInvalidConfigSource)
}

func TestEnvLoaderFields(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("FLEETCMD_NAME", "from-env")
	t.Setenv("FLEETCMD_TIMEOUT", "45s")
	t.Setenv("FLEETCMD_RAW", "2m")
	t.Setenv("FLEETCMD_LIMIT", "25")
	t.Setenv("FLEETCMD_TAGS", "x, y,,z")
	t.Setenv("FLEETCMD_ENABLED", "true")
	t.Setenv("FLEETCMD_NESTED_LEVEL", "warn")
	t.Setenv("FLEETCMD_HEADERS", `{"authorization":"Bearer t"}`)
	t.Setenv("FLEETCMD_INTERNAL", "ignored")

	var dst sampleConfig
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), "", &dst))

	assert.Equal(t, "from-env", dst.Name)
	assert.Equal(t, 45*time.Second, dst.Timeout.Std())
	assert.Equal(t, 2*time.Minute, dst.Raw)
	assert.Equal(t, 25, dst.Limit)
	assert.Equal(t, []string{"x", "y", "z"}, dst.Tags)
	require.NotNil(t, dst.Enabled)
	assert.True(t, *dst.Enabled)
	assert.Equal(t, "warn", dst.Nested.Level)
	assert.Equal(t, map[string]string{"authorization": "Bearer t"}, dst.Headers)
	assert.Empty(t, dst.Internal)
	assert.Nil(t, dst.TLS, "untouched struct pointers stay nil")
}

func TestEnvLoaderAllocatesNestedPointer(t *testing.T) {
	t.Setenv("APP_TLS_CERT_FILE", "/etc/fleetcmd/cert.pem")

	var dst sampleConfig
	require.NoError(t, NewEnvConfigLoader(nil, "APP_").Load(context.Background(), "", &dst))

	require.NotNil(t, dst.TLS)
	assert.Equal(t, "/etc/fleetcmd/cert.pem", dst.TLS.CertFile)
}

func TestEnvLoaderConfigJSON(t *testing.T) {
	t.Setenv("FLEETCMD_CONFIG_JSON", `{"name":"blob","limit":3}`)
	t.Setenv("FLEETCMD_NAME", "ignored")

	var dst sampleConfig
	require.NoError(t, NewEnvConfigLoader(nil, DefaultEnvPrefix).Load(context.Background(), "", &dst))

	assert.Equal(t, "blob", dst.Name)
	assert.Equal(t, 3, dst.Limit)
}

func TestEnvLoaderErrors(t *testing.T) {
	loader := NewEnvConfigLoader(nil, "T_")

	var dst sampleConfig
	require.ErrorIs(t, loader.Load(context.Background(), "", dst), ErrDstMustBeNonNilPointer)

	name := "x"
	require.ErrorIs(t, loader.Load(context.Background(), "", &name), ErrDstMustBePointerToStruct)

	t.Setenv("T_LIMIT", "lots")
	require.Error(t, loader.Load(context.Background(), "", &dst))
}

func TestKVLoader(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "kv")

	store := kv.NewMemoryStore(0)
	require.NoError(t, store.Put(context.Background(), "config/fleetcmd.json", []byte(`{"name":"kv"}`), 0))

	cfg := NewConfig(nil)

	var dst sampleConfig
	require.ErrorIs(t, cfg.LoadAndValidate(context.Background(), "/etc/fleetcmd/fleetcmd.json", &dst), errKVStoreNotSet)

	cfg.SetKVStore(store)
	require.NoError(t, cfg.LoadAndValidate(context.Background(), "/etc/fleetcmd/fleetcmd.json", &dst))
	assert.Equal(t, "kv", dst.Name)
}

func TestKVLoaderFallsBackToFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "kv")

	path := writeFile(t, "other.json", `{"name":"file"}`)

	cfg := NewConfig(nil)
	cfg.SetKVStore(kv.NewMemoryStore(0))

	var dst sampleConfig
	require.NoError(t, cfg.LoadAndValidate(context.Background(), path, &dst))
	assert.Equal(t, "file", dst.Name)

	err := cfg.LoadAndValidate(context.Background(), filepath.Join(t.TempDir(), "gone.json"), &dst)
	require.ErrorIs(t, err, errLoadConfigFailed)
	require.ErrorIs(t, err, errKVKeyNotFound)
}

func TestKeyFor(t *testing.T) {
	assert.Equal(t, "config/fleetcmd.json", KeyFor(""))
	assert.Equal(t, "config/core.json", KeyFor("/etc/fleetcmd/core.json"))
	assert.Equal(t, "config/core.json", KeyFor("core.json"))
}
