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

import "time"

// Topology is the result of one discovery run. It is read-only once built.
type Topology struct {
	Time  time.Time
	RunID string

	Hubs []*Hub
	// Irises holds every classified radio node in discovery order.
	Irises []*Iris
	CPEs   []*Gateway
	VGERs  []*Gateway

	Standalone   []*Iris
	PartialChain []*Iris
	RRHMembers   []*Iris

	bySerial map[string]Device
}

// Index rebuilds the serial lookup table. Builders call it after filling the
// device lists.
func (t *Topology) Index() {
	t.bySerial = make(map[string]Device)

	for _, h := range t.Hubs {
		t.bySerial[h.Serial()] = h
	}

	for _, i := range t.Irises {
		t.bySerial[i.Serial()] = i
	}

	for _, g := range t.CPEs {
		t.bySerial[g.Serial()] = g
	}

	for _, g := range t.VGERs {
		t.bySerial[g.Serial()] = g
	}
}

// Device looks a device up by serial.
func (t *Topology) Device(serial string) (Device, bool) {
	if t.bySerial == nil {
		t.Index()
	}

	d, ok := t.bySerial[serial]

	return d, ok
}

// Hub looks a hub up by serial.
func (t *Topology) Hub(serial string) (*Hub, bool) {
	for _, h := range t.Hubs {
		if h.Serial() == serial {
			return h, true
		}
	}

	return nil, false
}

// Devices lists every device: each hub followed by its chains' nodes in
// chain then position order, then standalone irises, CPEs and VGERs.
func (t *Topology) Devices() []Device {
	out := make([]Device, 0, len(t.Hubs)+len(t.Irises)+len(t.CPEs)+len(t.VGERs))

	for _, h := range t.Hubs {
		out = append(out, h)

		for _, c := range h.Chains() {
			for _, n := range c.Nodes {
				out = append(out, n)
			}
		}
	}

	for _, i := range t.Standalone {
		out = append(out, i)
	}

	for _, g := range t.CPEs {
		out = append(out, g)
	}

	for _, g := range t.VGERs {
		out = append(out, g)
	}

	return out
}

// Chains returns every chain of every hub.
func (t *Topology) Chains() []*Chain {
	var out []*Chain

	for _, h := range t.Hubs {
		out = append(out, h.Chains()...)
	}

	return out
}

// RRHs returns the validated chains.
func (t *Topology) RRHs() []*Chain {
	var out []*Chain

	for _, c := range t.Chains() {
		if c.RRH {
			out = append(out, c)
		}
	}

	return out
}

// ChainOf returns the chain an Iris was placed in.
func (t *Topology) ChainOf(i *Iris) (*Chain, bool) {
	if !i.InChain() {
		return nil, false
	}

	h, ok := t.Hub(i.HubSerial)
	if !ok {
		return nil, false
	}

	return h.Chain(i.ChainKey)
}
