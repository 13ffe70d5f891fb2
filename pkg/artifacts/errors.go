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
	"errors"
	"fmt"
)

var (
	ErrNoMode               = errors.New("no update source given: need a universal tarball, tarballs, or files with a variant")
	ErrConflictingModes     = errors.New("conflicting update sources")
	ErrVariantRequired      = errors.New("a variant is required when passing files directly")
	ErrUnknownVariant       = errors.New("unknown variant")
	ErrUnknownTarball       = errors.New("couldn't get variant for tarball")
	ErrDuplicateVariant     = errors.New("more than one tarball for variant")
	ErrVariantMismatch      = errors.New("artifact built for a different device family")
	ErrManifestMissingFile  = errors.New("manifest does not list file")
	ErrManifestMismatch     = errors.New("manifest sha256sum does not match file")
	ErrUnsupportedArchive   = errors.New("unsupported archive format")
	ErrUnsafeArchivePath    = errors.New("archive entry escapes destination")
	ErrInvalidRemap         = errors.New("invalid variant remap")
	ErrNoArtifactsForDevice = errors.New("no artifacts for device variant")
)

// ManifestError reports an artifact that a manifest does not vouch for.
type ManifestError struct {
	Manifest string
	File     string
	Expected string
	Actual   string
}

func (e *ManifestError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("%s: %s does not list %s", ErrManifestMissingFile, e.Manifest, e.File)
	}

	return fmt.Sprintf("%s: %s(%s) != %s(%s)", ErrManifestMismatch, e.Manifest, e.Expected, e.File, e.Actual)
}

func (e *ManifestError) Unwrap() error {
	if e.Expected == "" {
		return ErrManifestMissingFile
	}

	return ErrManifestMismatch
}
