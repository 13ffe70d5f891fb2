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

// Package hashutil computes and compares SHA-256 digests of firmware files,
// locally and as reported by a device's sha256sum.
package hashutil

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

var (
	ErrEmptyChecksum       = errors.New("empty checksum string")
	ErrUnsupportedEncoding = errors.New("unsupported checksum encoding")
	ErrMalformedSumLine    = errors.New("malformed checksum line")
)

// DecodeSHA256String decodes a hex or base64 digest into its 32 raw bytes.
func DecodeSHA256String(s string) ([]byte, error) {
	clean := strings.TrimSpace(s)
	if clean == "" {
		return nil, ErrEmptyChecksum
	}

	if decoded, err := hex.DecodeString(clean); err == nil && len(decoded) == sha256.Size {
		return decoded, nil
	}

	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if decoded, err := enc.DecodeString(clean); err == nil && len(decoded) == sha256.Size {
			return decoded, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, clean)
}

// Sum returns the lowercase hex digest of everything read from r.
func Sum(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// SumFile returns the lowercase hex digest of the file at p.
func SumFile(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	return Sum(f)
}

// ParseSumLine splits a "<digest> <path>" line as written by sha256sum and
// manifest files. The path is everything after the first whitespace run, so
// names may contain spaces. A leading "*" binary marker is dropped, and a
// line starting with a backslash has its escaped path decoded. The returned name is
// the path's base name.
func ParseSumLine(line string) (digest, name string, err error) {
	line = strings.TrimRight(strings.TrimLeft(line, " \t"), "\r\n")

	escaped := strings.HasPrefix(line, "\\")
	if escaped {
		line = line[1:]
	}

	idx := strings.IndexAny(line, " \t")
	if idx < 0 {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedSumLine, line)
	}

	digest = line[:idx]
	file := strings.TrimPrefix(strings.TrimLeft(line[idx:], " \t"), "*")

	if file == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedSumLine, line)
	}

	if _, err := DecodeSHA256String(digest); err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrMalformedSumLine, err)
	}

	if escaped {
		file = unescapeSumPath(file)
	}

	return strings.ToLower(digest), path.Base(file), nil
}

var sumPathReplacer = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\r`, "\r")

func unescapeSumPath(p string) string {
	return sumPathReplacer.Replace(p)
}

// Equal reports whether two digests, each hex or base64, name the same bytes.
func Equal(a, b string) bool {
	da, err := DecodeSHA256String(a)
	if err != nil {
		return false
	}

	db, err := DecodeSHA256String(b)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(da, db) == 1
}
