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

package artifacts

import (
	"fmt"

	"github.com/carverauto/faros/pkg/models"
)

// Remap points devices running From at the artifacts built for To.
type Remap struct {
	From models.Variant
	To   models.Variant
}

// Flag is the update command's flag name for the remap.
func (r Remap) Flag() string {
	return fmt.Sprintf("treat-%s-as-%s", r.From, r.To)
}

// Usage is the flag's help text.
func (r Remap) Usage() string {
	msg := fmt.Sprintf("For %s devices currently on a %s image, apply a %s image.", r.From.Kind(), r.From, r.To)
	if r.From.Kind() == models.KindHub {
		msg += " WARNING: choosing the wrong type leaves the hub unbootable until its SD card is re-imaged."
	}

	return msg
}

// Validate rejects remaps across families or onto unknown variants.
func (r Remap) Validate() error {
	if _, ok := models.ParseVariant(string(r.From)); !ok {
		return fmt.Errorf("%w: %w %q", ErrInvalidRemap, ErrUnknownVariant, r.From)
	}

	if _, ok := models.ParseVariant(string(r.To)); !ok {
		return fmt.Errorf("%w: %w %q", ErrInvalidRemap, ErrUnknownVariant, r.To)
	}

	if r.From == r.To || r.From.Kind() != r.To.Kind() {
		return fmt.Errorf("%w: %s", ErrInvalidRemap, r.Flag())
	}

	return nil
}

// RemapTable lists every allowed remap: each ordered pair of distinct
// variants within one family.
func RemapTable() []Remap {
	variants := models.AllVariants()

	var out []Remap

	for _, from := range variants {
		for _, to := range variants {
			if from != to && from.Kind() == to.Kind() {
				out = append(out, Remap{From: from, To: to})
			}
		}
	}

	return out
}
