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

// Gateway is a standalone CPE or VGER device. Gateways never join chains.
type Gateway struct {
	Remote

	kind Kind

	LastMAC uint64
	HasMAC  bool
	UAAID   uint64
	RRHHead bool
}

var _ Device = (*Gateway)(nil)

// NewCPE builds a CPE gateway from its enumeration record.
func NewCPE(rec Record) (*Gateway, error) {
	r, err := newRemote(rec, false)
	if err != nil {
		return nil, err
	}

	r.variant = cpeVariant(rec.Get(KeyFPGA))

	return &Gateway{Remote: r, kind: KindCPE}, nil
}

// NewVGER builds a VGER device from its enumeration record.
func NewVGER(rec Record) (*Gateway, error) {
	r, err := newRemote(rec, false)
	if err != nil {
		return nil, err
	}

	r.variant = VariantVGER

	return &Gateway{Remote: r, kind: KindVGER}, nil
}

func (g *Gateway) Kind() Kind { return g.kind }

func (g *Gateway) ApplyStatus(s Status) error {
	g.status = s
	g.fetched = false

	gw, err := s.String("extra", "gateway_addr")
	if err != nil {
		return err
	}

	mac, err := ParseMAC(gw)
	if err != nil {
		return err
	}

	g.LastMAC = mac
	g.HasMAC = true
	g.UAAID = UAAID(mac)
	g.RRHHead = s.Present("sfp", "config", "rrh", "serial")
	g.fetched = true

	return nil
}

func (g *Gateway) String() string {
	return Details(g)
}
