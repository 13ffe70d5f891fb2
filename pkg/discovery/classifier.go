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
	"fmt"
	"strings"

	"github.com/carverauto/faros/pkg/models"
)

// Classify turns a raw record into a device. Rules are evaluated in order and
// the first match wins; records matching none return ErrNotClassifiable.
func Classify(rec models.Record) (models.Device, error) {
	remoteType, hasType := rec[models.KeyRemoteType]
	serial := rec.Serial()

	switch {
	case hasType && strings.Contains(remoteType, "iris") && !strings.Contains(serial, "CP"):
		return device(models.NewIris(rec))
	case hasType && strings.Contains(remoteType, "cpe") && strings.Contains(serial, "CP"):
		return device(models.NewCPE(rec))
	case hasType && strings.Contains(remoteType, "cpe") && strings.Contains(serial, "VG"):
		return device(models.NewVGER(rec))
	case hasType && strings.Contains(remoteType, "faros"):
		return device(models.NewHub(rec))
	default:
		return nil, fmt.Errorf("%w: serial=%q remote:type=%q", models.ErrNotClassifiable, serial, remoteType)
	}
}

// device keeps a failed constructor from leaking a typed nil into the interface.
func device[D models.Device](d D, err error) (models.Device, error) {
	if err != nil {
		return nil, err
	}

	return d, nil
}
