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

import "strings"

// Kind is the device family.
type Kind string

const (
	KindHub  Kind = "hub"
	KindIris Kind = "iris"
	KindCPE  Kind = "cpe"
	KindVGER Kind = "vger"
)

func (k Kind) String() string {
	return string(k)
}

// Variant selects the firmware image set a device runs.
type Variant string

const (
	VariantIris    Variant = "iris030"
	VariantIrisUE  Variant = "iris030_ue"
	VariantIrisRRH Variant = "iris030_rrh"
	VariantHubA    Variant = "faroshub04"
	VariantHubB    Variant = "faroshub04b"
	VariantCPE     Variant = "cpe"
	VariantCPERRH  Variant = "cpe_rrh"
	VariantVGER    Variant = "vger"
)

//nolint:gochecknoglobals // fixed lookup table
var variantKinds = map[Variant]Kind{
	VariantIris:    KindIris,
	VariantIrisUE:  KindIris,
	VariantIrisRRH: KindIris,
	VariantHubA:    KindHub,
	VariantHubB:    KindHub,
	VariantCPE:     KindCPE,
	VariantCPERRH:  KindCPE,
	VariantVGER:    KindVGER,
}

// AllVariants lists every known variant grouped by family.
func AllVariants() []Variant {
	return []Variant{
		VariantIris, VariantIrisUE, VariantIrisRRH,
		VariantHubA, VariantHubB,
		VariantCPE, VariantCPERRH,
		VariantVGER,
	}
}

// ParseVariant maps a variant name such as "iris030_rrh" to its Variant.
func ParseVariant(s string) (Variant, bool) {
	v := Variant(strings.ToLower(strings.TrimSpace(s)))
	_, ok := variantKinds[v]

	return v, ok
}

// Kind returns the family the variant belongs to, or "" for unknown variants.
func (v Variant) Kind() Kind {
	return variantKinds[v]
}

func (v Variant) String() string {
	return string(v)
}

func irisVariant(fpga string) Variant {
	switch {
	case strings.Contains(fpga, "rrh"):
		return VariantIrisRRH
	case strings.Contains(fpga, "ue"):
		return VariantIrisUE
	default:
		return VariantIris
	}
}

func hubVariant(revision string) Variant {
	if strings.HasSuffix(revision, "B") {
		return VariantHubB
	}

	return VariantHubA
}

func cpeVariant(fpga string) Variant {
	if strings.Contains(fpga, "rrh") {
		return VariantCPERRH
	}

	return VariantCPE
}
