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
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoEnumerator         = errors.New("no enumerator configured")
	ErrUnknownEnumerator    = errors.New("unknown enumerator")
	ErrEnumerationFailed    = errors.New("every enumeration pass failed")
	ErrSoapyOutput          = errors.New("malformed SoapySDRUtil output")
	ErrUnknownFilter        = errors.New("unknown filter")
	ErrUnknownOutputField   = errors.New("unknown output field")
	ErrMetadataStatus       = errors.New("unexpected metadata response status")
	ErrInvalidIterations    = errors.New("iterations must be at least 1")
	ErrStaticRecordsMissing = errors.New("static enumerator requires static_records")
)

// MultiHubError reports a node whose gateway MAC is claimed by more than one
// hub. It aborts topology construction.
type MultiHubError struct {
	Serial string
	Hubs   []string
}

func (e *MultiHubError) Error() string {
	return fmt.Sprintf("iris %s maps to more than one hub: %s", e.Serial, strings.Join(e.Hubs, ", "))
}
