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
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/carverauto/faros/pkg/events"
	"github.com/carverauto/faros/pkg/logger"
	"github.com/carverauto/faros/pkg/models"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Discoverer runs enumeration, classification, metadata fetch and topology
// construction for one deployment.
type Discoverer struct {
	cfg        Config
	enumerator Enumerator
	fetcher    *Fetcher
	builder    *Builder
	publisher  events.Publisher
	logger     logger.Logger
	tracer     trace.Tracer
	metrics    *discoveryMetrics
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// Option customizes a Discoverer.
type Option func(*Discoverer)

// WithPublisher emits a discovery.completed event after each run.
func WithPublisher(p events.Publisher) Option {
	return func(d *Discoverer) {
		if p != nil {
			d.publisher = p
		}
	}
}

// WithHTTPClient replaces the metadata fetch client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Discoverer) {
		d.fetcher = NewFetcher(c, d.cfg.FetchTimeout.Std(), d.cfg.FetchConcurrency, d.logger)
	}
}

// WithClock replaces the time source used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Discoverer) {
		d.now = now
	}
}

// NewDiscoverer wires a discoverer around an enumerator.
func NewDiscoverer(cfg Config, enumerator Enumerator, log logger.Logger, opts ...Option) (*Discoverer, error) {
	if enumerator == nil {
		return nil, ErrNoEnumerator
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	if cfg.Iterations < 1 {
		cfg.Iterations = 1
	}

	d := &Discoverer{
		cfg:        cfg,
		enumerator: enumerator,
		builder:    NewBuilder(log),
		publisher:  events.NewNopPublisher(),
		logger:     log,
		tracer:     logger.GetTracer("faros/discovery"),
		metrics:    newDiscoveryMetrics(),
		now:        time.Now,
		sleep:      sleepContext,
	}
	d.fetcher = NewFetcher(nil, cfg.FetchTimeout.Std(), cfg.FetchConcurrency, log)

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run performs a full discovery and returns the resulting topology.
func (d *Discoverer) Run(ctx context.Context) (*models.Topology, error) {
	runID := uuid.New().String()
	started := d.now()

	ctx, span := d.tracer.Start(ctx, "discovery.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("iterations", d.cfg.Iterations),
	))
	defer span.End()

	records, err := d.Collect(ctx, d.cfg.Iterations)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	devices := d.classify(records)

	results, err := d.fetcher.FetchAll(ctx, devices)
	if err != nil {
		return nil, err
	}

	topo, err := d.builder.Build(devices, started)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	topo.RunID = runID

	d.metrics.record(ctx, topo)
	d.publish(ctx, topo, results)

	d.logger.Info().
		Str("run_id", runID).
		Int("records", len(records)).
		Int("hubs", len(topo.Hubs)).
		Int("irises", len(topo.Irises)).
		Int("cpes", len(topo.CPEs)).
		Int("vgers", len(topo.VGERs)).
		Dur("elapsed", d.now().Sub(started)).
		Msg("Discovery complete")

	return topo, nil
}

// Collect runs iterations enumeration passes, spaced by the configured
// interval, and deduplicates records by serial. The first record seen for a
// serial wins; records without a serial are dropped. A failing pass is logged
// and skipped unless every pass fails.
func (d *Discoverer) Collect(ctx context.Context, iterations int) ([]models.Record, error) {
	if iterations < 1 {
		iterations = 1
	}

	var (
		seen    = make(map[string]struct{})
		records []models.Record
		lastErr error
		okPass  bool
	)

	for i := 0; i < iterations; i++ {
		if i > 0 {
			if err := d.sleep(ctx, d.cfg.IterationInterval.Std()); err != nil {
				return nil, err
			}
		}

		found, err := d.enumerator.Enumerate(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}

			d.logger.Warn().Err(err).Int("pass", i+1).Msg("Enumeration pass failed")
			lastErr = err
		} else {
			okPass = true

			for _, rec := range found {
				serial := rec.Serial()
				if serial == "" {
					continue
				}

				if _, dup := seen[serial]; dup {
					continue
				}

				seen[serial] = struct{}{}
				records = append(records, rec)
			}
		}
	}

	if !okPass {
		return nil, fmt.Errorf("%w: %w", ErrEnumerationFailed, lastErr)
	}

	return records, nil
}

// Serials runs a single enumeration pass and returns the serials seen.
func (d *Discoverer) Serials(ctx context.Context) (map[string]struct{}, error) {
	found, err := d.enumerator.Enumerate(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]struct{}, len(found))

	for _, rec := range found {
		if s := rec.Serial(); s != "" {
			out[s] = struct{}{}
		}
	}

	return out, nil
}

func (d *Discoverer) classify(records []models.Record) []models.Device {
	devices := make([]models.Device, 0, len(records))

	for _, rec := range records {
		dev, err := Classify(rec)
		if err != nil {
			if errors.Is(err, models.ErrNotClassifiable) {
				d.logger.Debug().Str("serial", rec.Serial()).Msg("Skipping unclassifiable record")
			} else {
				d.logger.Warn().Err(err).Str("serial", rec.Serial()).Msg("Skipping record")
			}

			continue
		}

		devices = append(devices, dev)
	}

	return devices
}

func (d *Discoverer) publish(ctx context.Context, topo *models.Topology, results []FetchResult) {
	summary := events.DiscoveryCompleted{
		RunID:        topo.RunID,
		Time:         topo.Time,
		Hubs:         len(topo.Hubs),
		Irises:       len(topo.Irises),
		CPEs:         len(topo.CPEs),
		VGERs:        len(topo.VGERs),
		RRHs:         len(topo.RRHs()),
		Standalone:   len(topo.Standalone),
		PartialChain: len(topo.PartialChain),
	}

	for _, c := range topo.Chains() {
		if c.Errored() {
			summary.ErrorChains++
		}
	}

	for _, r := range results {
		if r.Err != nil {
			summary.FetchFailed = append(summary.FetchFailed, r.Serial)
		}
	}

	if err := d.publisher.Publish(ctx, events.TypeDiscoveryCompleted, topo.RunID, summary); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to publish discovery event")
	}
}
