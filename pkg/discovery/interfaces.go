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

//go:generate mockgen -destination=mock_discovery.go -package=discovery github.com/carverauto/faros/pkg/discovery Enumerator

// Package discovery reconstructs the hub, chain and node topology of a faros
// deployment from raw enumeration records.
package discovery

import (
	"context"

	"github.com/carverauto/faros/pkg/models"
)

// Enumerator performs one hardware discovery broadcast.
type Enumerator interface {
	Enumerate(ctx context.Context) ([]models.Record, error)
}

// Filter selects devices from a topology listing.
type Filter func(models.Device) bool
