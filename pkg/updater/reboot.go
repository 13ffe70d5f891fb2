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

	"github.com/carverauto/faros/pkg/discovery"
	"github.com/carverauto/faros/pkg/logger"
	"github.com/carverauto/faros/pkg/models"
	"github.com/carverauto/faros/pkg/session"
)

// Reboot opens sessions to all devices at once, then reboots them one at a
// time in power-dependency order so chain tails go before heads and hubs
// go last. Unreachable devices are reported, not fatal to the others.
func (u *Updater) Reboot(ctx context.Context, devices []models.Device) error {
	if len(devices) == 0 {
		return ErrNoTargets
	}

	ordered := discovery.SortPowerDependency(devices)

	targets := make([]session.Target, 0, len(ordered))
	for _, d := range ordered {
		targets = append(targets, d)
	}

	batch := u.sessions.OpenBatch(ctx, targets)

	defer func() {
		if err := batch.Close(); err != nil {
			u.logger.Debug().Err(err).Msg("Closing reboot sessions")
		}
	}()

	var failures []*DeviceError

	for _, f := range batch.Failures {
		failures = append(failures, &DeviceError{Serial: f.Serial, Phase: StateReboot, Err: f})
	}

	for _, s := range batch.Sessions {
		log := logger.New(u.logger.With().Str("serial", s.Serial()).Logger())

		if err := issueReboot(ctx, s, log); err != nil {
			log.Error().Err(err).Msg("Reboot failed")

			failures = append(failures, &DeviceError{Serial: s.Serial(), Phase: StateReboot, Err: err})

			continue
		}

		log.Info().Msg("Reboot issued")
	}

	if len(failures) > 0 {
		return &UpdateError{Failures: failures}
	}

	return nil
}
