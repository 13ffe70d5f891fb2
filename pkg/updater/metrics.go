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

package updater

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "faros/updater"

type updaterMetrics struct {
	devices       metric.Int64Counter
	phaseDuration metric.Float64Histogram
}

func newUpdaterMetrics() *updaterMetrics {
	meter := otel.Meter(meterName)

	devices, err := meter.Int64Counter("faros.update.devices",
		metric.WithDescription("Device update pipelines by terminal state"),
		metric.WithUnit("{device}"))
	if err != nil {
		otel.Handle(err)
	}

	phaseDuration, err := meter.Float64Histogram("faros.update.phase.duration",
		metric.WithDescription("Time spent in each update phase"),
		metric.WithUnit("s"))
	if err != nil {
		otel.Handle(err)
	}

	return &updaterMetrics{devices: devices, phaseDuration: phaseDuration}
}

func (m *updaterMetrics) device(ctx context.Context, variant, outcome string) {
	if m == nil || m.devices == nil {
		return
	}

	m.devices.Add(ctx, 1, metric.WithAttributes(
		attribute.String("variant", variant),
		attribute.String("outcome", outcome),
	))
}

func (m *updaterMetrics) phase(ctx context.Context, phase string, d time.Duration, failed bool) {
	if m == nil || m.phaseDuration == nil {
		return
	}

	m.phaseDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("phase", phase),
		attribute.Bool("failed", failed),
	))
}
