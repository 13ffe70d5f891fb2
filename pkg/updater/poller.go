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
	"sort"
	"time"

	"github.com/carverauto/faros/pkg/events"
	"github.com/carverauto/faros/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// quietPeriod is how long missing devices are expected after a reboot.
const quietPeriod = time.Minute

// Poller waits for rebooted devices to show up in enumeration again.
type Poller struct {
	deps

	source   SerialSource
	interval time.Duration
	timeout  time.Duration
	logger   logger.Logger
	tracer   trace.Tracer
}

func NewPoller(source SerialSource, interval, timeout time.Duration, log logger.Logger, opts ...Option) *Poller {
	if log == nil {
		log = logger.NewTestLogger()
	}

	if interval <= 0 {
		interval = defaultPollInterval
	}

	return &Poller{
		deps:     newDeps(opts),
		source:   source,
		interval: interval,
		timeout:  timeout,
		logger:   log,
		tracer:   logger.GetTracer("faros/updater"),
	}
}

// WaitAfterReboot gives devices one poll interval to go down before
// polling for them.
func (p *Poller) WaitAfterReboot(ctx context.Context, runID string, serials []string) (bool, error) {
	ticker := p.clock.Ticker(p.interval)

	select {
	case <-ctx.Done():
		ticker.Stop()

		return false, ctx.Err()
	case <-ticker.Chan():
	}

	ticker.Stop()

	p.logger.Info().Msg("Devices updated. Waiting for them to reappear on the network...")

	return p.Wait(ctx, runID, serials)
}

// Wait enumerates every interval until all serials are seen or the timeout
// elapses. The deadline interrupts the wait between polls, and one last poll
// is made when it fires. A timeout is reported as false, not as an error;
// only context cancellation returns an error.
func (p *Poller) Wait(ctx context.Context, runID string, serials []string) (bool, error) {
	ctx, span := p.tracer.Start(ctx, "updater.wait", trace.WithAttributes(
		attribute.Int("devices", len(serials)),
		attribute.String("timeout", p.timeout.String()),
	))
	defer span.End()

	start := p.clock.Now()

	ticker := p.clock.Ticker(p.interval)
	defer ticker.Stop()

	deadline := p.clock.Timer(p.timeout)
	defer deadline.Stop()

	expired := false

	for {
		missing := p.poll(ctx, serials)
		if len(missing) == 0 {
			p.logger.Info().Msg("Found all devices after the update!")
			p.report(ctx, runID, serials, nil, p.clock.Now().Sub(start))
			span.SetAttributes(attribute.Bool("found", true))

			return true, nil
		}

		if expired || p.clock.Now().Sub(start) > p.timeout {
			p.report(ctx, runID, serials, missing, p.clock.Now().Sub(start))
			span.SetAttributes(attribute.Bool("found", false))

			return false, nil
		}

		ev := p.logger.Info()
		if p.clock.Now().Sub(start) >= quietPeriod {
			ev = p.logger.Warn()
		}

		ev.Strs("missing", missing).Msgf("Unable to find all devices, retrying after %s...", p.interval)

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.Chan():
			expired = true
		case <-ticker.Chan():
		}
	}
}

// poll runs one enumeration and returns the serials not seen, sorted. A
// failed enumeration counts as seeing nothing.
func (p *Poller) poll(ctx context.Context, serials []string) []string {
	found, err := p.source.Serials(ctx)
	if err != nil {
		p.logger.Debug().Err(err).Msg("Enumeration failed while waiting for devices")
	}

	var missing []string

	for _, s := range serials {
		if _, ok := found[s]; ok {
			p.logger.Debug().Str("serial", s).Msg("Found device")

			continue
		}

		missing = append(missing, s)
	}

	sort.Strings(missing)

	return missing
}

func (p *Poller) report(ctx context.Context, runID string, serials, missing []string, waited time.Duration) {
	ev := events.ReachabilityResult{
		RunID:   runID,
		Serials: serials,
		Missing: missing,
		Found:   len(missing) == 0,
		Waited:  waited,
	}

	if err := p.publisher.Publish(context.WithoutCancel(ctx), events.TypeReachabilityResult, runID, ev); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to publish reachability event")
	}
}
