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

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
)

func TestNewRespectsLevel(t *testing.T) {
	lg, err := New(context.Background(), &Config{Level: "warn", Output: "discard"})
	require.NoError(t, err)

	assert.Nil(t, lg.Info(), "info events should be disabled at warn level")
	assert.NotNil(t, lg.Warn())

	lg.SetDebug(true)
	assert.NotNil(t, lg.Debug())
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(context.Background(), &Config{Level: "loud", Output: "discard"})
	require.Error(t, err)
}

func TestNewOTelRequiresEndpoint(t *testing.T) {
	_, err := New(context.Background(), &Config{Output: "discard", OTel: OTelConfig{Enabled: true}})
	require.ErrorIs(t, err, ErrOTelEndpointRequired)
}

func TestComponentTagsRecords(t *testing.T) {
	var buf bytes.Buffer

	base := NewWithWriter(&buf, zerolog.DebugLevel)
	Component(base, "directory").Info().Str("org_id", "org-1").Msg("roster refreshed")

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "directory", rec["component"])
	assert.Equal(t, "org-1", rec["org_id"])
	assert.Equal(t, "roster refreshed", rec["message"])
}

func TestComponentWithNilParent(t *testing.T) {
	assert.NotNil(t, Component(nil, "x"))
}

func TestDefaultConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-api-key=abc, team = ops")
	t.Setenv("OTEL_EXPORTER_OTLP_TIMEOUT", "7s")

	cfg := DefaultConfig()
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "abc", cfg.OTel.Headers["x-api-key"])
	assert.Equal(t, "ops", cfg.OTel.Headers["team"])
	assert.Equal(t, "7s", cfg.OTel.BatchTimeout.Std().String())
	assert.Equal(t, defaultServiceName, cfg.OTel.ServiceName)
}

func TestAttributeStringTruncates(t *testing.T) {
	long := strings.Repeat("a", maxAttributeValueLength+10)

	out := attributeString(long)
	assert.Len(t, out, maxAttributeValueLength)
	assert.True(t, strings.HasSuffix(out, "..."))

	assert.Equal(t, "null", attributeString(nil))
	assert.Equal(t, `{"a":1}`, attributeString(map[string]interface{}{"a": 1}))
}

func TestSeverityFor(t *testing.T) {
	assert.Equal(t, otellog.SeverityWarn, severityFor("warn"))
	assert.Equal(t, otellog.SeverityFatal, severityFor("panic"))
	assert.Equal(t, otellog.SeverityInfo, severityFor("anything"))
}

func TestMultiWriter(t *testing.T) {
	var a, b bytes.Buffer

	n, err := NewMultiWriter(&a, &b).Write([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "x", a.String())
	assert.Equal(t, "x", b.String())
}

func TestInitializeMetricsDisabled(t *testing.T) {
	_, err := InitializeMetrics(context.Background(), MetricsConfig{})
	require.ErrorIs(t, err, ErrOTelMetricsDisabled)
}

func TestInitializeTracingWithoutExporter(t *testing.T) {
	tp, err := InitializeTracing(context.Background(), TracingConfig{ServiceName: "fleetcmd-test", Logger: NewTestLogger()})
	require.NoError(t, err)

	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := GetTracer("test").Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
}

func TestTestLoggerStaysSilent(t *testing.T) {
	lg := NewTestLogger()

	lg.SetLevel(zerolog.TraceLevel)
	lg.SetDebug(true)

	assert.Nil(t, lg.Debug(), "raising the level never enables output")
	assert.Nil(t, Component(lg, "poller").Error())
}
