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
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/carverauto/faros/pkg/artifacts"
	"github.com/carverauto/faros/pkg/events"
	"github.com/carverauto/faros/pkg/hashutil"
	"github.com/carverauto/faros/pkg/logger"
	"github.com/carverauto/faros/pkg/models"
	"github.com/carverauto/faros/pkg/session"
	"github.com/looplab/fsm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	bootMount     = "/boot"
	procMounts    = "cat /proc/mounts"
	umountBoot    = "sudo -n /bin/umount /boot"
	mountBootRW   = "sudo -n /bin/mount /boot -o rw"
	syncFS        = "sudo -n /bin/sync"
	rebootCommand = "sudo -n systemctl reboot"
)

type step func(ctx context.Context, s *session.Session) error

// pipeline drives one device through the update phases.
type pipeline struct {
	u         *Updater
	device    models.Device
	artifacts []*artifacts.Artifact
	stageDir  string
	runID     string
	fsm       *fsm.FSM
	logger    logger.Logger
	started   time.Time
}

func (u *Updater) newPipeline(d models.Device, arts []*artifacts.Artifact, run *Report) *pipeline {
	p := &pipeline{
		u:         u,
		device:    d,
		artifacts: arts,
		stageDir:  run.StagingDir,
		runID:     run.RunID,
		logger: logger.New(u.logger.With().
			Str("serial", d.Serial()).
			Str("address", d.Address()).
			Str("variant", d.Variant().String()).
			Str("run_id", run.RunID).
			Logger()),
	}

	p.fsm = newPipelineFSM(func(_ context.Context, from, to string) {
		p.logger.Debug().Str("from", from).Str("phase", to).Msg("Phase transition")
	})

	return p
}

func (p *pipeline) steps() []step {
	return []step{p.stage, p.transfer, p.verify, p.mount, p.replace, p.unmountSync, p.reboot}
}

// run executes every phase and returns the device's outcome. It never
// returns early on another device's account.
func (p *pipeline) run(ctx context.Context) Outcome {
	p.started = p.u.clock.Now()

	ctx, span := p.u.tracer.Start(ctx, "updater.device", trace.WithAttributes(
		attribute.String("serial", p.device.Serial()),
		attribute.String("variant", p.device.Variant().String()),
		attribute.String("run_id", p.runID),
	))
	defer span.End()

	err := p.execute(ctx)

	out := Outcome{
		Serial:  p.device.Serial(),
		Variant: p.device.Variant(),
		Elapsed: p.u.clock.Now().Sub(p.started),
	}

	if err != nil {
		phase := p.fsm.Current()
		out.Err = &DeviceError{Serial: p.device.Serial(), Phase: phase, Err: err}

		p.event(ctx, EventFail)

		span.SetAttributes(attribute.String("phase", phase))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		p.logger.Error().Err(err).Str("phase", phase).Msg("Device update failed")
	} else {
		p.event(ctx, EventAdvance)
		p.logger.Info().Dur("elapsed", out.Elapsed).Msg("Device updated, reboot issued")
	}

	out.State = p.fsm.Current()

	return out
}

func (p *pipeline) execute(ctx context.Context) error {
	p.event(ctx, EventAdvance)

	s, err := p.u.sessions.Open(ctx, p.device)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := s.Close(); cerr != nil {
			p.logger.Debug().Err(cerr).Msg("Session close after update")
		}
	}()

	for i, fn := range p.steps() {
		if i > 0 {
			p.event(ctx, EventAdvance)
		}

		phase := p.fsm.Current()
		start := p.u.clock.Now()

		err := fn(ctx, s)

		p.u.metrics.phase(ctx, phase, p.u.clock.Now().Sub(start), err != nil)

		if err != nil {
			return err
		}
	}

	return nil
}

// event fires a transition. Transitions are fixed by construction, so a
// rejected one is a programming error worth logging loudly.
func (p *pipeline) event(ctx context.Context, name string) {
	if err := p.fsm.Event(context.WithoutCancel(ctx), name); err != nil {
		p.logger.Error().Err(err).Str("event", name).Str("state", p.fsm.Current()).Msg("Invalid pipeline transition")
	}
}

func (p *pipeline) staged(a *artifacts.Artifact) string {
	return path.Join(p.stageDir, a.LocalName())
}

func (p *pipeline) stage(ctx context.Context, s *session.Session) error {
	_, err := s.Run(ctx, "mkdir -p "+session.ShellQuote(p.stageDir))

	return err
}

func (p *pipeline) transfer(ctx context.Context, s *session.Session) error {
	for _, a := range p.artifacts {
		if err := s.Upload(ctx, a.Path, p.stageDir); err != nil {
			return err
		}
	}

	return nil
}

func (p *pipeline) verify(ctx context.Context, s *session.Session) error {
	for _, a := range p.artifacts {
		res, err := s.Run(ctx, "sha256sum "+session.ShellQuote(p.staged(a)))
		if err != nil {
			return err
		}

		remote, _, err := hashutil.ParseSumLine(firstLine(res.Stdout))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrChecksumOutput, err)
		}

		if !hashutil.Equal(a.SHA256, remote) {
			return fmt.Errorf("%w: %s remote %s != local %s", ErrChecksumMismatch, a.LocalName(), remote, a.SHA256)
		}

		p.logger.Debug().Str("file", a.LocalName()).Str("sha256", remote).Msg("Checksum verified")
	}

	return nil
}

func (p *pipeline) mount(ctx context.Context, s *session.Session) error {
	res, err := s.Run(ctx, procMounts)
	if err != nil {
		return err
	}

	if bootMounted(res.Stdout) {
		if _, err := s.Run(ctx, umountBoot); err != nil {
			return err
		}
	}

	_, err = s.Run(ctx, mountBootRW)

	return err
}

// replace leaves /boot mounted on failure; recovery is manual.
func (p *pipeline) replace(ctx context.Context, s *session.Session) error {
	for _, a := range p.artifacts {
		cmd := fmt.Sprintf("sudo -n cp %s %s",
			session.ShellQuote(p.staged(a)),
			session.ShellQuote(path.Join(bootMount, a.RemoteName())))

		if _, err := s.Run(ctx, cmd); err != nil {
			return fmt.Errorf("copy %s -> %s: %w", a.LocalName(), a.RemoteName(), err)
		}
	}

	return nil
}

func (p *pipeline) unmountSync(ctx context.Context, s *session.Session) error {
	if _, err := s.Run(ctx, syncFS); err != nil {
		return err
	}

	_, err := s.Run(ctx, umountBoot)

	return err
}

func (p *pipeline) reboot(ctx context.Context, s *session.Session) error {
	return issueReboot(ctx, s, p.logger)
}

// issueReboot does not wait for the device to go down. A channel dropped
// before the exit status arrives counts as success.
func issueReboot(ctx context.Context, s *session.Session, log logger.Logger) error {
	_, err := s.Run(ctx, rebootCommand)
	if errors.Is(err, session.ErrNoExitStatus) {
		log.Debug().Msg("Connection dropped during reboot")

		return nil
	}

	return err
}

func bootMounted(mounts string) bool {
	for _, line := range strings.Split(mounts, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == bootMount {
			return true
		}
	}

	return false
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")

	return line
}

func (o Outcome) event(runID string) events.DeviceUpdate {
	ev := events.DeviceUpdate{
		RunID:   runID,
		Serial:  o.Serial,
		Variant: o.Variant.String(),
		State:   o.State,
		Elapsed: o.Elapsed,
	}

	var de *DeviceError
	if errors.As(o.Err, &de) {
		ev.Phase = de.Phase
		ev.Error = de.Err.Error()
	}

	return ev
}
