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

package artifacts

import (
	"fmt"
	"path/filepath"

	"github.com/carverauto/faros/pkg/models"
)

// Kind is the role a file plays on a device's boot partition.
type Kind string

const (
	KindBootBin Kind = "bootbin"
	KindImageUB Kind = "imageub"
	KindBootBit Kind = "bootbit"
	KindPS7Init Kind = "ps7_init"
)

func (k Kind) String() string {
	return string(k)
}

// ParseKind accepts the kind names used by the --*-only flags.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindBootBin, KindImageUB, KindBootBit, KindPS7Init:
		return k, nil
	default:
		return "", fmt.Errorf("unknown artifact kind %q", s)
	}
}

// DestinationName is the fixed file name a kind is installed under in /boot,
// independent of the source file name.
func DestinationName(kind Kind, family models.Kind) string {
	switch kind {
	case KindBootBin:
		return "BOOT.BIN"
	case KindImageUB:
		if family == models.KindCPE {
			return "sklk_cpe_image.ub"
		}

		return "image.ub"
	case KindBootBit:
		return "sklk_cpe_top.bin"
	case KindPS7Init:
		return "ps7_init.tcl"
	default:
		return ""
	}
}

// KindsFor lists the kinds installed on a device family, in install order.
func KindsFor(family models.Kind) []Kind {
	switch family {
	case models.KindIris, models.KindHub:
		return []Kind{KindBootBin, KindImageUB}
	case models.KindCPE, models.KindVGER:
		return []Kind{KindBootBit, KindImageUB}
	default:
		return nil
	}
}

// Artifact is one firmware file ready to be pushed.
type Artifact struct {
	Kind    Kind
	Path    string
	Variant models.Variant
	SHA256  string
	// ManifestMatch is true when a manifest vouched for SHA256.
	ManifestMatch bool
}

// LocalName is the staged file name, which is the source base name.
func (a *Artifact) LocalName() string {
	return filepath.Base(a.Path)
}

// RemoteName is the name the artifact is installed under in /boot.
func (a *Artifact) RemoteName() string {
	return DestinationName(a.Kind, a.Variant.Kind())
}

func (a *Artifact) String() string {
	if a == nil {
		return "none"
	}

	return fmt.Sprintf("%s -(%s from %s) %s - ManifestMatch? %t",
		a.Path, a.RemoteName(), a.LocalName(), a.SHA256, a.ManifestMatch)
}

// Set holds the artifacts resolved for one variant.
type Set struct {
	Variant   models.Variant
	Manifest  *Manifest
	BootBin   *Artifact
	ImageUB   *Artifact
	BootBit   *Artifact
	PS7Init   *Artifact
	UnpackDir string
}

// Get returns the artifact of the given kind, or nil.
func (s *Set) Get(kind Kind) *Artifact {
	if s == nil {
		return nil
	}

	switch kind {
	case KindBootBin:
		return s.BootBin
	case KindImageUB:
		return s.ImageUB
	case KindBootBit:
		return s.BootBit
	case KindPS7Init:
		return s.PS7Init
	default:
		return nil
	}
}

func (s *Set) set(a *Artifact) {
	switch a.Kind {
	case KindBootBin:
		s.BootBin = a
	case KindImageUB:
		s.ImageUB = a
	case KindBootBit:
		s.BootBit = a
	case KindPS7Init:
		s.PS7Init = a
	}
}

// Empty reports whether the set holds nothing installable.
func (s *Set) Empty() bool {
	return s == nil || (s.BootBin == nil && s.ImageUB == nil && s.BootBit == nil)
}
