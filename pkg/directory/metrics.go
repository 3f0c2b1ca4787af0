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

package directory

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName            = "github.com/carverauto/fleetcmd/pkg/directory"
	metricLookupTotal    = "fleetcmd_directory_lookup_total"
	metricRefreshTotal   = "fleetcmd_directory_refresh_total"
	metricRefreshLatency = "fleetcmd_directory_refresh_latency_seconds"
)

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	lookupCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	refreshCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	refreshHistogram metric.Float64Histogram
)

func initMeter() {
	meter := otel.Meter(meterName)

	lookups, err := meter.Int64Counter(
		metricLookupTotal,
		metric.WithDescription("Roster lookups by cache result (fresh, stale, miss, forced)"),
	)
	if err != nil {
		otel.Handle(err)
	}
	lookupCounter = lookups

	refreshes, err := meter.Int64Counter(
		metricRefreshTotal,
		metric.WithDescription("Roster fetches from the device API by mode and outcome"),
	)
	if err != nil {
		otel.Handle(err)
	}
	refreshCounter = refreshes

	hist, err := meter.Float64Histogram(
		metricRefreshLatency,
		metric.WithDescription("Latency of roster fetches from the device API"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
	}
	refreshHistogram = hist
}

func recordLookup(ctx context.Context, result string) {
	meterOnce.Do(initMeter)
	if lookupCounter == nil {
		return
	}

	lookupCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func recordRefresh(ctx context.Context, mode string, elapsed time.Duration, err error) {
	meterOnce.Do(initMeter)

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}

	if refreshCounter != nil {
		refreshCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("mode", mode),
			attribute.String("outcome", outcome),
		))
	}

	if refreshHistogram != nil {
		refreshHistogram.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}
