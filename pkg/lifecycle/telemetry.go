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

package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/carverauto/faros/pkg/logger"
	"github.com/carverauto/faros/pkg/version"
	"go.opentelemetry.io/otel/sdk/trace"
)

const telemetryShutdownTimeout = 10 * time.Second

// Telemetry owns the process-wide tracing, metrics and log export pipelines.
type Telemetry struct {
	tracer *trace.TracerProvider
	log    logger.Logger
}

// StartTelemetry installs tracing and, when an endpoint is configured, metrics
// export. It never fails the caller because of a missing collector.
func StartTelemetry(ctx context.Context, cfg *logger.Config, log logger.Logger) (*Telemetry, error) {
	if cfg == nil {
		cfg = logger.DefaultConfig()
	}

	tp, err := logger.InitializeTracing(ctx, logger.TracingConfig{
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: version.GetVersion(),
		Logger:         log,
		OTel:           &cfg.OTel,
	})
	if err != nil {
		return nil, err
	}

	_, err = logger.InitializeMetrics(ctx, logger.MetricsConfig{
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: version.GetVersion(),
		OTel:           &cfg.OTel,
	})
	if err != nil && !errors.Is(err, logger.ErrOTelMetricsDisabled) {
		log.Warn().Err(err).Msg("Metrics export unavailable")
	}

	return &Telemetry{tracer: tp, log: log}, nil
}

// Shutdown flushes every pipeline, bounded by a fixed timeout.
func (t *Telemetry) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
	defer cancel()

	var errs []error

	if t.tracer != nil {
		if err := t.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := logger.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
