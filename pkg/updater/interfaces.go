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

//go:generate mockgen -destination=mock_updater.go -package=updater github.com/carverauto/faros/pkg/updater Clock,Ticker

// Package updater pushes firmware to devices over remote sessions, one
// independent pipeline per device, and waits for them to come back.
package updater

import (
	"context"
	"time"

	"github.com/carverauto/faros/pkg/artifacts"
	"github.com/carverauto/faros/pkg/models"
)

// Clock abstracts time-related operations.
type Clock interface {
	Now() time.Time
	Ticker(d time.Duration) Ticker
	// Timer fires once after d.
	Timer(d time.Duration) Ticker
}

// Ticker abstracts the ticker behavior. Timers share it.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

// ArtifactSource resolves the files to push to a device.
type ArtifactSource interface {
	ArtifactsFor(d models.Device) ([]*artifacts.Artifact, error)
}

// SerialSource runs one enumeration pass and reports the serials seen.
type SerialSource interface {
	Serials(ctx context.Context) (map[string]struct{}, error)
}
