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

package models

import (
	"fmt"
	"strings"
)

// Device is the capability set shared by every discovered device. The set of
// implementations is closed: *Hub, *Iris and *Gateway.
type Device interface {
	Serial() string
	Kind() Kind
	Variant() Variant
	// Address is the host as it appears in URLs (IPv6 bracketed).
	Address() string
	// DialAddress is the host suitable for net.Dial (no brackets, zone kept).
	DialAddress() string
	MetadataURL() string
	Firmware() string
	FPGA() string
	Record() Record
	Status() Status
	Fetched() bool
	// ApplyStatus decodes a fetched status document into the device. The
	// document is kept even when decoding fails, but derived fields are only
	// updated when every required key parsed.
	ApplyStatus(Status) error

	remote() *Remote
}

// Remote carries the attributes every device family shares.
type Remote struct {
	record      Record
	serial      string
	address     string
	dialAddress string
	metadataURL string
	variant     Variant
	status      Status
	fetched     bool
}

func newRemote(rec Record, hubPath bool) (Remote, error) {
	r := Remote{
		record: rec.Clone(),
		serial: rec.Serial(),
	}

	raw := rec.Get(KeyRemote)
	if raw == "" {
		return r, fmt.Errorf("%w: %s", ErrNoRemoteURL, r.serial)
	}

	u, err := splitRemote(raw)
	if err != nil {
		return r, fmt.Errorf("%s: %w", r.serial, err)
	}

	r.address = u.address()
	r.dialAddress = u.host

	if hubPath {
		r.metadataURL = "http://" + u.urlHost() + "/status.json"
	} else {
		r.metadataURL = "http://" + u.urlHost() + u.rest
	}

	return r, nil
}

func (r *Remote) Serial() string      { return r.serial }
func (r *Remote) Variant() Variant    { return r.variant }
func (r *Remote) Address() string     { return r.address }
func (r *Remote) DialAddress() string { return r.dialAddress }
func (r *Remote) MetadataURL() string { return r.metadataURL }
func (r *Remote) Firmware() string    { return r.record.Get(KeyFirmware) }
func (r *Remote) FPGA() string        { return r.record.Get(KeyFPGA) }
func (r *Remote) Record() Record      { return r.record }
func (r *Remote) Status() Status      { return r.status }
func (r *Remote) Fetched() bool       { return r.fetched }

// Attr returns a raw record attribute.
func (r *Remote) Attr(key string) string {
	return r.record.Get(key)
}

func (r *Remote) remote() *Remote { return r }

func (r *Remote) String() string {
	return r.serial
}

// Details is the one-line description used in listings.
func Details(d Device) string {
	switch d.Kind() {
	case KindVGER:
		return fmt.Sprintf("%-10s - %-29s - FPGA: %s", d.Serial(), d.Address(), d.FPGA())
	default:
		return fmt.Sprintf("%-10s - %-29s - FW: %s FPGA: %s", d.Serial(), d.Address(), d.Firmware(), d.FPGA())
	}
}

// remoteURL is the decomposed advertised remote URL. url.Parse rejects the
// unescaped IPv6 zones devices advertise (fe80::1%eth0), so the authority is
// split by hand.
type remoteURL struct {
	host string
	rest string
}

func splitRemote(raw string) (remoteURL, error) {
	var u remoteURL

	rest := raw
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}

	authority := rest
	u.rest = ""

	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		authority = rest[:i]
		u.rest = rest[i:]
	}

	if i := strings.LastIndex(authority, "@"); i >= 0 {
		authority = authority[i+1:]
	}

	switch {
	case strings.HasPrefix(authority, "["):
		end := strings.Index(authority, "]")
		if end < 0 {
			return u, fmt.Errorf("%w: unterminated IPv6 literal in %q", ErrNoRemoteURL, raw)
		}

		u.host = authority[1:end]
	case strings.Count(authority, ":") > 1:
		u.host = authority
	default:
		host, _, _ := strings.Cut(authority, ":")
		u.host = host
	}

	u.host = strings.ReplaceAll(u.host, "%25", "%")
	if u.host == "" {
		return u, fmt.Errorf("%w: no host in %q", ErrNoRemoteURL, raw)
	}

	return u, nil
}

func (u remoteURL) ipv6() bool {
	return strings.Contains(u.host, ":")
}

func (u remoteURL) address() string {
	if u.ipv6() {
		return "[" + u.host + "]"
	}

	return u.host
}

func (u remoteURL) urlHost() string {
	if u.ipv6() {
		return "[" + strings.ReplaceAll(u.host, "%", "%25") + "]"
	}

	return u.host
}
