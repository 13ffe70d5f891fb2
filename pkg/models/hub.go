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
	"sort"
)

// Hub coordinates up to seven chains of Iris nodes.
type Hub struct {
	Remote

	// MACMatches holds the node gateway values that identify this hub, see
	// HubMACMatch.
	MACMatches []uint64

	chains map[int]*Chain
}

var _ Device = (*Hub)(nil)

// NewHub builds a hub from its enumeration record.
func NewHub(rec Record) (*Hub, error) {
	r, err := newRemote(rec, true)
	if err != nil {
		return nil, err
	}

	r.variant = hubVariant(rec.Get(KeyRevision))

	return &Hub{Remote: r, chains: make(map[int]*Chain)}, nil
}

func (*Hub) Kind() Kind { return KindHub }

// CPLD is the advertised CPLD revision.
func (h *Hub) CPLD() string { return h.Attr(KeyCPLD) }

// ApplyStatus decodes jtagblob.network into MACMatches.
func (h *Hub) ApplyStatus(s Status) error {
	h.status = s
	h.fetched = false

	network, err := s.Object("jtagblob", "network")
	if err != nil {
		return err
	}

	names := make([]string, 0, len(network))
	for name := range network {
		names = append(names, name)
	}

	sort.Strings(names)

	matches := make([]uint64, 0, len(names))

	for _, name := range names {
		mac, ok := network[name].(string)
		if !ok {
			return fmt.Errorf("%w: jtagblob.network.%s is %T", ErrStatusKeyType, name, network[name])
		}

		v, err := HubMACMatch(mac)
		if err != nil {
			return err
		}

		matches = append(matches, v)
	}

	h.MACMatches = matches
	h.fetched = true

	return nil
}

// MatchesMAC reports whether a node gateway value belongs to this hub.
func (h *Hub) MatchesMAC(mac uint64) bool {
	for _, m := range h.MACMatches {
		if m == mac {
			return true
		}
	}

	return false
}

// SetChain stores c under its observed chain index.
func (h *Hub) SetChain(c *Chain) {
	if h.chains == nil {
		h.chains = make(map[int]*Chain)
	}

	h.chains[c.Index] = c
}

// Chain returns the chain at index.
func (h *Hub) Chain(index int) (*Chain, bool) {
	c, ok := h.chains[index]

	return c, ok
}

// ChainBySerial finds a valid RRH by its configured serial.
func (h *Hub) ChainBySerial(serial string) (*Chain, bool) {
	for _, c := range h.Chains() {
		if c.RRH && c.Serial == serial {
			return c, true
		}
	}

	return nil, false
}

// Chains returns the hub's chains in ascending chain index.
func (h *Hub) Chains() []*Chain {
	keys := make([]int, 0, len(h.chains))
	for k := range h.chains {
		keys = append(keys, k)
	}

	sort.Ints(keys)

	out := make([]*Chain, 0, len(keys))
	for _, k := range keys {
		out = append(out, h.chains[k])
	}

	return out
}

// ResetChains drops all chain assignments.
func (h *Hub) ResetChains() {
	h.chains = make(map[int]*Chain)
}
