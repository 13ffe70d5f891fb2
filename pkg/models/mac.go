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
	"strconv"
	"strings"
)

// ParseMAC parses a hex MAC such as "0x0023ab01cdef" or "0023ab01cdef".
// Colon or dash separators are accepted.
func ParseMAC(s string) (uint64, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(strings.TrimPrefix(clean, "0x"), "0X")
	clean = strings.NewReplacer(":", "", "-", "").Replace(clean)

	v, err := strconv.ParseUint(clean, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMAC, s)
	}

	return v, nil
}

// HubMACMatch turns a hub interface MAC "aa:bb:cc:dd:ee:ff" into the integer
// a node reports as its gateway: the bytes after the OUI, reversed
// (dd:ee:ff -> 0xffeedd).
func HubMACMatch(mac string) (uint64, error) {
	parts := strings.Split(strings.TrimSpace(mac), ":")
	if len(parts) < 4 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMAC, mac)
	}

	tail := parts[3:]

	var b strings.Builder

	for i := len(tail) - 1; i >= 0; i-- {
		b.WriteString(tail[i])
	}

	v, err := strconv.ParseUint(b.String(), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMAC, mac)
	}

	return v, nil
}

// UAAID reverses the byte order of the low three bytes of mac.
func UAAID(mac uint64) uint64 {
	var id uint64

	for i := 0; i < 3; i++ {
		id += ((mac >> (i * 8)) & 0xff) << ((2 - i) * 8)
	}

	return id
}
