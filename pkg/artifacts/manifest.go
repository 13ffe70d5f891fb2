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
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/carverauto/faros/pkg/hashutil"
)

// ManifestFileName is the manifest's name inside a tarball.
const ManifestFileName = "manifest.txt"

// Manifest maps file base names to their expected SHA-256 digests.
type Manifest struct {
	Path    string
	entries map[string]string
}

// ParseManifest reads "<sha256> <path>" lines; blank lines are skipped.
func ParseManifest(name string, r io.Reader) (*Manifest, error) {
	m := &Manifest{Path: name, entries: make(map[string]string)}

	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		digest, file, err := hashutil.ParseSumLine(text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, line, err)
		}

		m.entries[file] = digest
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	return m, nil
}

// LoadManifest parses the manifest file at path.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return ParseManifest(path, f)
}

// TrackedFiles lists the file names in the manifest, sorted.
func (m *Manifest) TrackedFiles() []string {
	out := make([]string, 0, len(m.entries))
	for name := range m.entries {
		out = append(out, name)
	}

	sort.Strings(out)

	return out
}

// Digest returns the expected digest for a base name.
func (m *Manifest) Digest(name string) (string, bool) {
	d, ok := m.entries[name]

	return d, ok
}

// Check verifies a file's digest against the manifest. Failures are
// *ManifestError.
func (m *Manifest) Check(name, digest string) error {
	expected, ok := m.entries[name]
	if !ok {
		return &ManifestError{Manifest: m.Path, File: name}
	}

	if !hashutil.Equal(expected, digest) {
		return &ManifestError{Manifest: m.Path, File: name, Expected: expected, Actual: digest}
	}

	return nil
}

func (m *Manifest) String() string {
	return m.Path
}
