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

package discovery

import (
	"context"

	"github.com/carverauto/faros/pkg/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "faros/discovery"

type discoveryMetrics struct {
	devices metric.Int64Gauge
	chains  metric.Int64Gauge
}

func newDiscoveryMetrics() *discoveryMetrics {
	meter := otel.Meter(meterName)

	devices, err := meter.Int64Gauge("faros.discovery.devices",
		metric.WithDescription("Devices found by the last discovery run"),
		metric.WithUnit("{device}"))
	if err != nil {
		otel.Handle(err)
	}

	chains, err := meter.Int64Gauge("faros.discovery.chains",
		metric.WithDescription("Chains found by the last discovery run"),
		metric.WithUnit("{chain}"))
	if err != nil {
		otel.Handle(err)
	}

	return &discoveryMetrics{devices: devices, chains: chains}
}

func (m *discoveryMetrics) record(ctx context.Context, topo *models.Topology) {
	if m == nil || m.devices == nil {
		return
	}

	counts := map[models.Kind]int{
		models.KindHub:  len(topo.Hubs),
		models.KindIris: len(topo.Irises),
		models.KindCPE:  len(topo.CPEs),
		models.KindVGER: len(topo.VGERs),
	}

	for kind, n := range counts {
		m.devices.Record(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind.String())))
	}

	if m.chains == nil {
		return
	}

	var rrh, degraded int64

	for _, c := range topo.Chains() {
		if c.RRH {
			rrh++
		} else {
			degraded++
		}
	}

	m.chains.Record(ctx, rrh, metric.WithAttributes(attribute.Bool("rrh", true)))
	m.chains.Record(ctx, degraded, metric.WithAttributes(attribute.Bool("rrh", false)))
}
