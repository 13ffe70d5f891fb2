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

// Package models holds the faros device model shared by discovery, update
// and reporting.
package models

import "strings"

// Well-known DeviceRecord keys.
const (
	KeySerial       = "serial"
	KeyDriver       = "driver"
	KeyFirmware     = "firmware"
	KeyFPGA         = "fpga"
	KeyLabel        = "label"
	KeyRemote       = "remote"
	KeyRemoteType   = "remote:type"
	KeyRemoteDriver = "remote:driver"
	KeyRevision     = "revision"
	KeyCPLD         = "cpld"
	KeySFPSerial    = "sfpSerial"
	KeySFPVersion   = "sfpVersion"
	KeyFESerial     = "feSerial"
	KeyFEVersion    = "feVersion"
	KeyFrontend     = "frontend"
)

// Record is one raw attribute map returned by a device enumeration pass.
type Record map[string]string

// Get returns the value for key, or "" when absent.
func (r Record) Get(key string) string {
	return r[key]
}

// Has reports whether key is present.
func (r Record) Has(key string) bool {
	_, ok := r[key]

	return ok
}

// Serial returns the record's serial.
func (r Record) Serial() string {
	return r[KeySerial]
}

// Contains reports whether key is present and its value contains substr.
func (r Record) Contains(key, substr string) bool {
	v, ok := r[key]

	return ok && strings.Contains(v, substr)
}

// Clone returns a copy safe to retain after the enumeration buffer is reused.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}

	return out
}
