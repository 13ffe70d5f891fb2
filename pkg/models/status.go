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
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Status is a device's decoded status JSON document.
type Status map[string]interface{}

// Lookup walks nested objects along path. A non-object on the way, or a
// missing key, yields ok=false.
func (s Status) Lookup(path ...string) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(s)

	for _, key := range path {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}

		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}

	return cur, true
}

// Present reports whether path resolves to a non-null value.
func (s Status) Present(path ...string) bool {
	v, ok := s.Lookup(path...)

	return ok && v != nil
}

// String returns the string at path.
func (s Status) String(path ...string) (string, error) {
	v, ok := s.Lookup(path...)
	if !ok || v == nil {
		return "", fmt.Errorf("%w: %s", ErrStatusKeyMissing, strings.Join(path, "."))
	}

	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T", ErrStatusKeyType, strings.Join(path, "."), v)
	}

	return str, nil
}

// Int returns the integer at path. Numeric strings are accepted since
// firmware revisions disagree on the encoding.
func (s Status) Int(path ...string) (int, error) {
	v, ok := s.Lookup(path...)
	if !ok || v == nil {
		return 0, fmt.Errorf("%w: %s", ErrStatusKeyMissing, strings.Join(path, "."))
	}

	switch n := v.(type) {
	case float64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrStatusKeyType, strings.Join(path, "."), err)
		}

		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrStatusKeyType, strings.Join(path, "."), err)
		}

		return i, nil
	default:
		return 0, fmt.Errorf("%w: %s is %T", ErrStatusKeyType, strings.Join(path, "."), v)
	}
}

// Object returns the object at path.
func (s Status) Object(path ...string) (map[string]interface{}, error) {
	v, ok := s.Lookup(path...)
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: %s", ErrStatusKeyMissing, strings.Join(path, "."))
	}

	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T", ErrStatusKeyType, strings.Join(path, "."), v)
	}

	return obj, nil
}

// StringSlice returns the list of strings at path.
func (s Status) StringSlice(path ...string) ([]string, error) {
	v, ok := s.Lookup(path...)
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: %s", ErrStatusKeyMissing, strings.Join(path, "."))
	}

	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T", ErrStatusKeyType, strings.Join(path, "."), v)
	}

	out := make([]string, 0, len(items))

	for _, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s contains %T", ErrStatusKeyType, strings.Join(path, "."), item)
		}

		out = append(out, str)
	}

	return out, nil
}

// Pretty renders the document as indented JSON.
func (s Status) Pretty(indent string) string {
	if s == nil {
		return "null"
	}

	out, err := json.MarshalIndent(map[string]interface{}(s), "", indent)
	if err != nil {
		return fmt.Sprintf("%v", map[string]interface{}(s))
	}

	return string(out)
}
