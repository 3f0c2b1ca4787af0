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
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName          = "github.com/carverauto/fleetcmd/pkg/poller"
	metricRefreshTotal = "fleetcmd_poller_refresh_total"
	metricArmTotal     = "fleetcmd_poller_arm_total"
	metricArmDelay     = "fleetcmd_poller_arm_delay_seconds"
)

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	refreshCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	armCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	armHistogram metric.Float64Histogram
)

func initMeter() {
	meter := otel.Meter(meterName)

	refreshes, err := meter.Int64Counter(
		metricRefreshTotal,
		metric.WithDescription("Command status refreshes by outcome"),
	)
	if err != nil {
		otel.Handle(err)
	}
	refreshCounter = refreshes

	arms, err := meter.Int64Counter(
		metricArmTotal,
		metric.WithDescription("Poll timers armed"),
	)
	if err != nil {
		otel.Handle(err)
	}
	armCounter = arms

	hist, err := meter.Float64Histogram(
		metricArmDelay,
		metric.WithDescription("Delay until the next status check"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
	}
	armHistogram = hist
}

func recordRefresh(ctx context.Context, outcome EventType) {
	meterOnce.Do(initMeter)
	if refreshCounter == nil {
		return
	}

	refreshCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome.String())))
}

func recordArm(delay time.Duration) {
	meterOnce.Do(initMeter)

	ctx := context.Background()

	if armCounter != nil {
		armCounter.Add(ctx, 1)
	}

	if armHistogram != nil {
		armHistogram.Record(ctx, delay.Seconds())
	}
}
