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

import "fmt"

// NoIndex marks an rrh_index or chain_index that is not known.
const NoIndex = -1

// ChainConfig is the authoritative chain membership a head node publishes
// under sfp.config.rrh.
type ChainConfig struct {
	Serial  string
	Members []string
}

// Iris is a radio node. Hub and chain relations are held by serial and chain
// key and are filled in by the topology builder.
type Iris struct {
	Remote

	LastMAC    uint64
	HasMAC     bool
	UAAID      uint64
	RRHIndex   int
	ChainIndex int
	// RRHHead is set when the node carries a chain configuration.
	RRHHead bool
	Config  *ChainConfig

	HubSerial string
	RRHMember bool
	// RRHSerial is the configured serial of the valid RRH this node belongs to.
	RRHSerial string
	// ChainKey is the hub chain map key the node was placed under, NoIndex when
	// it is not in any chain.
	ChainKey int
}

var _ Device = (*Iris)(nil)

// NewIris builds a radio node from its enumeration record.
func NewIris(rec Record) (*Iris, error) {
	r, err := newRemote(rec, false)
	if err != nil {
		return nil, err
	}

	r.variant = irisVariant(rec.Get(KeyFPGA))

	return &Iris{
		Remote:     r,
		RRHIndex:   NoIndex,
		ChainIndex: NoIndex,
		ChainKey:   NoIndex,
	}, nil
}

func (*Iris) Kind() Kind { return KindIris }

func (i *Iris) SFPSerial() string  { return i.Attr(KeySFPSerial) }
func (i *Iris) SFPVersion() string { return i.Attr(KeySFPVersion) }
func (i *Iris) FESerial() string   { return i.Attr(KeyFESerial) }
func (i *Iris) FEVersion() string  { return i.Attr(KeyFEVersion) }
func (i *Iris) Frontend() string   { return i.Attr(KeyFrontend) }

// InChain reports whether the builder placed the node under a hub chain.
func (i *Iris) InChain() bool {
	return i.HubSerial != "" && i.ChainKey != NoIndex
}

// ApplyStatus decodes the gateway MAC, chain position and head configuration.
// A node with a known position is forced to the RRH variant.
func (i *Iris) ApplyStatus(s Status) error {
	i.status = s
	i.fetched = false

	gw, err := s.String("extra", "gateway_addr")
	if err != nil {
		return err
	}

	mac, err := ParseMAC(gw)
	if err != nil {
		return err
	}

	msgIndex, err := s.Int("global", "message_index")
	if err != nil {
		return err
	}

	chainIndex, err := s.Int("global", "chain_index")
	if err != nil {
		return err
	}

	i.LastMAC = mac
	i.HasMAC = true
	i.UAAID = UAAID(mac)
	i.RRHIndex = msgIndex - 1
	i.ChainIndex = chainIndex
	i.RRHHead = s.Present("sfp", "config", "rrh", "serial")
	i.Config = parseChainConfig(s)

	if i.RRHIndex >= 0 {
		i.variant = VariantIrisRRH
	}

	i.fetched = true

	return nil
}

func (i *Iris) String() string {
	if i.RRHIndex >= 0 {
		return fmt.Sprintf("%d:%s", i.RRHIndex+1, Details(i))
	}

	return ":" + Details(i)
}

// parseChainConfig reads sfp.config.rrh. Firmware reports a missing SFP as
// the string "None"; anything that is not a well formed config yields nil.
func parseChainConfig(s Status) *ChainConfig {
	if !s.Present("sfp", "config", "rrh") {
		return nil
	}

	serial, err := s.String("sfp", "config", "rrh", "serial")
	if err != nil {
		return nil
	}

	members, err := s.StringSlice("sfp", "config", "rrh", "chain")
	if err != nil {
		members = nil
	}

	return &ChainConfig{Serial: serial, Members: members}
}
