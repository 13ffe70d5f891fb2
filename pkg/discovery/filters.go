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
	"sort"
	"strings"

	"github.com/carverauto/faros/pkg/models"
)

// Named filters accepted on the command line.
const (
	FilterHub              = "hub"
	FilterRRH              = "rrh"
	FilterIris             = "iris"
	FilterIrisStandalone   = "iris-standalone"
	FilterIrisRRHMember    = "iris-rrhmember"
	FilterIrisPartialChain = "iris-partialchain"
)

// FilterNames lists the named filters in help order.
func FilterNames() []string {
	return []string{
		FilterHub, FilterRRH, FilterIris,
		FilterIrisStandalone, FilterIrisRRHMember, FilterIrisPartialChain,
	}
}

// NamedFilter resolves a filter by name.
func NamedFilter(name string) (Filter, error) {
	switch strings.ToLower(name) {
	case FilterHub:
		return IsHub, nil
	case FilterRRH:
		return IsRRHHead, nil
	case FilterIris:
		return IsIris, nil
	case FilterIrisStandalone:
		return IsStandaloneIris, nil
	case FilterIrisRRHMember:
		return IsRRHMemberIris, nil
	case FilterIrisPartialChain:
		return IsPartialChainIris, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, name)
	}
}

func IsHub(d models.Device) bool {
	_, ok := d.(*models.Hub)

	return ok
}

func IsIris(d models.Device) bool {
	_, ok := d.(*models.Iris)

	return ok
}

// IsRRHHead selects the node that represents a validated RRH: its head.
func IsRRHHead(d models.Device) bool {
	iris, ok := d.(*models.Iris)

	return ok && iris.RRHMember && (iris.RRHIndex == 0 || iris.RRHHead)
}

func IsStandaloneIris(d models.Device) bool {
	iris, ok := d.(*models.Iris)

	return ok && !iris.RRHMember && iris.HubSerial == ""
}

func IsRRHMemberIris(d models.Device) bool {
	iris, ok := d.(*models.Iris)

	return ok && iris.RRHMember && iris.HubSerial != ""
}

func IsPartialChainIris(d models.Device) bool {
	iris, ok := d.(*models.Iris)

	return ok && !iris.RRHMember && iris.HubSerial != ""
}

// SameChain selects irises placed in the same hub chain as ref.
func SameChain(ref models.Device) Filter {
	return func(d models.Device) bool {
		a, ok := ref.(*models.Iris)
		if !ok || !a.InChain() {
			return false
		}

		b, ok := d.(*models.Iris)
		if !ok || !b.InChain() {
			return false
		}

		return a.HubSerial == b.HubSerial && a.ChainKey == b.ChainKey
	}
}

// RelatedTo selects ref itself, the members of its chain and, for a hub, the
// irises attached to it (or, for an iris, its hub).
func RelatedTo(ref models.Device) Filter {
	same := SameChain(ref)

	return func(d models.Device) bool {
		if d.Serial() == ref.Serial() {
			return true
		}

		if same(d) {
			return true
		}

		return attachedTo(ref, d) || attachedTo(d, ref)
	}
}

func attachedTo(hub, node models.Device) bool {
	h, ok := hub.(*models.Hub)
	if !ok {
		return false
	}

	iris, ok := node.(*models.Iris)

	return ok && iris.HubSerial == h.Serial()
}

// Select returns the devices accepted by every filter.
func Select(devices []models.Device, filters ...Filter) []models.Device {
	out := make([]models.Device, 0, len(devices))

outer:
	for _, d := range devices {
		for _, f := range filters {
			if f != nil && !f(d) {
				continue outer
			}
		}

		out = append(out, d)
	}

	return out
}

// PowerDependencyKey orders devices so no device is handled before one that
// draws power through it: chain tails first, heads next, hubs last among
// chain devices, then everything else.
func PowerDependencyKey(d models.Device) int {
	switch v := d.(type) {
	case *models.Iris:
		if v.RRHIndex >= 0 {
			return -v.RRHIndex
		}

		return 0
	case *models.Hub:
		return 1
	default:
		return 2
	}
}

// SortPowerDependency stable-sorts devices by PowerDependencyKey.
func SortPowerDependency(devices []models.Device) []models.Device {
	out := append([]models.Device(nil), devices...)
	sort.SliceStable(out, func(i, j int) bool {
		return PowerDependencyKey(out[i]) < PowerDependencyKey(out[j])
	})

	return out
}

// CommonValue summarizes one attribute across devices: "no device" for an
// empty set, "unknown" when nobody reports it, the value when all agree and
// "mismatch" otherwise.
func CommonValue[D models.Device](devices []D, value func(models.Device) string) string {
	if len(devices) == 0 {
		return "no device"
	}

	first := value(devices[0])

	for _, d := range devices[1:] {
		if value(d) != first {
			return "mismatch"
		}
	}

	if first == "" {
		return "unknown"
	}

	return first
}

// Firmware and FPGA are CommonValue accessors.
func Firmware(d models.Device) string { return d.Firmware() }
func FPGA(d models.Device) string     { return d.FPGA() }
