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
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/carverauto/faros/pkg/models"
)

// Inspector classifies artifact files by the device family and variant they
// were built for.
type Inspector interface {
	// TarballVariant derives a variant from a per-variant tarball.
	TarballVariant(path string) (models.Variant, bool)
	// Family reports the family an image was built for, or "" when the
	// file carries no recognizable marker.
	Family(path string, kind Kind) (models.Kind, error)
}

const minPrintableRun = 4

// StringsInspector reads tarball names and the printable strings embedded in
// boot images.
type StringsInspector struct{}

var _ Inspector = StringsInspector{}

func (StringsInspector) TarballVariant(path string) (models.Variant, bool) {
	base := strings.ToLower(filepath.Base(path))
	tokens := strings.FieldsFunc(base, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})

	has := func(tok string) bool {
		for _, t := range tokens {
			if t == tok {
				return true
			}
		}

		return false
	}

	switch {
	case strings.Contains(base, "iris030"):
		switch {
		case has("ue"):
			return models.VariantIrisUE, true
		case has("rrh"):
			return models.VariantIrisRRH, true
		default:
			return models.VariantIris, true
		}
	case strings.Contains(base, "faroshub04b"):
		return models.VariantHubB, true
	case strings.Contains(base, "faroshub04"):
		return models.VariantHubA, true
	case strings.Contains(base, "cpe_rrh"):
		return models.VariantCPERRH, true
	case strings.Contains(base, "cpe"):
		return models.VariantCPE, true
	case strings.Contains(base, "vger"):
		return models.VariantVGER, true
	default:
		return "", false
	}
}

// Family looks for the PetaLinux build path in image.ub and the preboot
// banner in BOOT.BIN. Other kinds carry no marker.
func (StringsInspector) Family(path string, kind Kind) (models.Kind, error) {
	var marker string

	switch kind {
	case KindImageUB:
		marker = "petalinux"
	case KindBootBin:
		marker = "preboot"
	default:
		return "", nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	var family models.Kind

	err = printableStrings(bufio.NewReader(f), func(s string) bool {
		lower := strings.ToLower(s)
		if !strings.Contains(lower, marker) {
			return true
		}

		family = familyOf(lower)

		return family == ""
	})

	return family, err
}

func familyOf(s string) models.Kind {
	switch {
	case strings.Contains(s, "iris030"):
		return models.KindIris
	case strings.Contains(s, "faroshub04"):
		return models.KindHub
	case strings.Contains(s, "vger"):
		return models.KindVGER
	case strings.Contains(s, "cpe"):
		return models.KindCPE
	default:
		return ""
	}
}

// printableStrings calls fn with every run of at least four printable ASCII
// bytes, stopping early when fn returns false.
func printableStrings(r *bufio.Reader, fn func(string) bool) error {
	var run []byte

	flush := func() bool {
		defer func() { run = run[:0] }()

		if len(run) < minPrintableRun {
			return true
		}

		return fn(string(run))
	}

	for {
		b, err := r.ReadByte()
		if err != nil {
			flush()

			if errors.Is(err, io.EOF) {
				return nil
			}

			return err
		}

		if b == '\t' || (b >= 0x20 && b < 0x7f) {
			run = append(run, b)

			continue
		}

		if !flush() {
			return nil
		}
	}
}
