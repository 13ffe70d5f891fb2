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
	"errors"
	"path"
	"strconv"
	"time"

	"github.com/carverauto/faros/pkg/artifacts"
	"github.com/carverauto/faros/pkg/events"
	"github.com/carverauto/faros/pkg/logger"
	"github.com/carverauto/faros/pkg/models"
	"github.com/carverauto/faros/pkg/session"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// deps are the collaborators shared by Updater and Poller.
type deps struct {
	clock     Clock
	publisher events.Publisher
}

// Option customizes an Updater or a Poller.
type Option func(*deps)

func WithClock(c Clock) Option {
	return func(d *deps) {
		if c != nil {
			d.clock = c
		}
	}
}

// WithPublisher emits update and reachability events.
func WithPublisher(p events.Publisher) Option {
	return func(d *deps) {
		if p != nil {
			d.publisher = p
		}
	}
}

func newDeps(opts []Option) deps {
	d := deps{clock: realClock{}, publisher: events.NewNopPublisher()}

	for _, opt := range opts {
		opt(&d)
	}

	return d
}

// Updater runs firmware updates across a device set.
type Updater struct {
	deps

	cfg      Config
	sessions *session.Manager
	source   ArtifactSource
	logger   logger.Logger
	tracer   trace.Tracer
	metrics  *updaterMetrics
}

func NewUpdater(cfg Config, sessions *session.Manager, source ArtifactSource, log logger.Logger, opts ...Option) *Updater {
	if log == nil {
		log = logger.NewTestLogger()
	}

	if cfg.StagingRoot == "" {
		cfg.StagingRoot = defaultStagingRoot
	}

	return &Updater{
		deps:     newDeps(opts),
		cfg:      cfg,
		sessions: sessions,
		source:   source,
		logger:   log,
		tracer:   logger.GetTracer("faros/updater"),
		metrics:  newUpdaterMetrics(),
	}
}

// PlanEntry is what one device will receive.
type PlanEntry struct {
	Device    models.Device
	Artifacts []*artifacts.Artifact
}

// Plan resolves every device's artifacts. Any device without artifacts
// fails the whole plan, before anything is touched.
func (u *Updater) Plan(devices []models.Device) ([]PlanEntry, error) {
	if len(devices) == 0 {
		return nil, ErrNoTargets
	}

	if u.source == nil {
		return nil, ErrNoArtifacts
	}

	plan := make([]PlanEntry, 0, len(devices))

	for _, d := range devices {
		arts, err := u.source.ArtifactsFor(d)
		if err != nil {
			return nil, err
		}

		plan = append(plan, PlanEntry{Device: d, Artifacts: arts})
	}

	return plan, nil
}

// Outcome is one device's terminal state.
type Outcome struct {
	Serial  string
	Variant models.Variant
	State   string
	Err     error
	Elapsed time.Duration
}

// Report describes a finished update run. Outcomes keep the input order.
type Report struct {
	RunID      string
	StagingDir string
	Outcomes   []Outcome
}

// Succeeded lists devices whose reboot was issued.
func (r *Report) Succeeded() []string {
	var out []string

	for _, o := range r.Outcomes {
		if o.Err == nil {
			out = append(out, o.Serial)
		}
	}

	return out
}

// Update runs every device's pipeline concurrently. Failures never cancel
// other devices and succeeded devices are not rolled back. The error is an
// *UpdateError listing each failed device, or a setup error returned before
// any device was touched.
func (u *Updater) Update(ctx context.Context, devices []models.Device) (*Report, error) {
	plan, err := u.Plan(devices)
	if err != nil {
		return nil, err
	}

	stamp := strconv.FormatInt(u.clock.Now().Unix(), 10)

	report := &Report{
		RunID:      uuid.New().String(),
		StagingDir: path.Join(u.cfg.StagingRoot, "updater_"+stamp),
		Outcomes:   make([]Outcome, len(plan)),
	}

	u.logger.Info().
		Str("run_id", report.RunID).
		Int("devices", len(plan)).
		Str("staging", report.StagingDir).
		Msg("Starting update")

	var g errgroup.Group

	if u.cfg.Concurrency > 0 {
		g.SetLimit(u.cfg.Concurrency)
	}

	for i, entry := range plan {
		g.Go(func() error {
			out := u.newPipeline(entry.Device, entry.Artifacts, report).run(ctx)

			report.Outcomes[i] = out

			outcome := "succeeded"
			if out.Err != nil {
				outcome = "failed"
			}

			u.metrics.device(ctx, out.Variant.String(), outcome)
			u.publish(ctx, events.TypeUpdateDevice, out.Serial, out.event(report.RunID))

			return nil
		})
	}

	_ = g.Wait()

	var failures []*DeviceError

	completed := events.UpdateCompleted{RunID: report.RunID}

	for _, o := range report.Outcomes {
		var de *DeviceError
		if errors.As(o.Err, &de) {
			failures = append(failures, de)
			completed.Failed = append(completed.Failed, o.Serial)

			continue
		}

		completed.Succeeded = append(completed.Succeeded, o.Serial)
	}

	u.publish(ctx, events.TypeUpdateCompleted, report.RunID, completed)

	if len(failures) > 0 {
		return report, &UpdateError{Failures: failures}
	}

	u.logger.Info().Str("run_id", report.RunID).Int("devices", len(plan)).Msg("Update finished")

	return report, nil
}

func (u *Updater) publish(ctx context.Context, eventType, subject string, data interface{}) {
	if err := u.publisher.Publish(context.WithoutCancel(ctx), eventType, subject, data); err != nil {
		u.logger.Warn().Err(err).Str("event", eventType).Msg("Failed to publish update event")
	}
}
