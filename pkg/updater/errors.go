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
	"errors"
	"fmt"
	"strings"
)

var (
	ErrChecksumMismatch = errors.New("remote checksum didn't match after copy")
	ErrChecksumOutput   = errors.New("unexpected sha256sum output")
	ErrNoTargets        = errors.New("no devices to update")
	ErrNoArtifacts      = errors.New("no artifact source configured")
)

// DeviceError is one device's pipeline failure.
type DeviceError struct {
	Serial string
	Phase  string
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Serial, e.Phase, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// UpdateError aggregates every failed device of a run. Devices that
// succeeded are not listed.
type UpdateError struct {
	Failures []*DeviceError
}

func (e *UpdateError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Error())
	}

	return fmt.Sprintf("%d device(s) failed: %s", len(e.Failures), strings.Join(msgs, "; "))
}

func (e *UpdateError) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f)
	}

	return out
}

// Serials lists the failed devices in failure order.
func (e *UpdateError) Serials() []string {
	out := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f.Serial)
	}

	return out
}
