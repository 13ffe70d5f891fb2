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
	"errors"
	"sort"
)

// Chain is one group of Iris nodes sharing a chain index under a hub. When
// RRH is set the group was validated against its head's configuration;
// otherwise it is a degraded group and ByIndex maps rrh_index to node.
type Chain struct {
	// Index is the chain index the members reported. It is never renumbered,
	// even for errored groups.
	Index     int
	HubSerial string

	RRH           bool
	Serial        string
	Head          *Iris
	Config        *ChainConfig
	ConfigCorrect bool

	// Nodes holds every member sorted by rrh_index.
	Nodes   []*Iris
	ByIndex map[int]*Iris

	Errors []error
}

// Tail returns the last node of the chain.
func (c *Chain) Tail() *Iris {
	if len(c.Nodes) == 0 {
		return nil
	}

	return c.Nodes[len(c.Nodes)-1]
}

// Address is the head node's address, or "" without a head.
func (c *Chain) Address() string {
	if c.Head == nil {
		return ""
	}

	return c.Head.Address()
}

// Members returns the chain's nodes in position order. For degraded groups
// only the node kept for each index is returned.
func (c *Chain) Members() []*Iris {
	if c.RRH || c.ByIndex == nil {
		return c.Nodes
	}

	keys := make([]int, 0, len(c.ByIndex))
	for k := range c.ByIndex {
		keys = append(keys, k)
	}

	sort.Ints(keys)

	out := make([]*Iris, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.ByIndex[k])
	}

	return out
}

// Contains reports whether serial is one of the chain's nodes.
func (c *Chain) Contains(serial string) bool {
	for _, n := range c.Nodes {
		if n.Serial() == serial {
			return true
		}
	}

	return false
}

// Errored reports whether a structural problem was recorded.
func (c *Chain) Errored() bool {
	return len(c.Errors) > 0
}

// Err joins the recorded structural problems.
func (c *Chain) Err() error {
	return errors.Join(c.Errors...)
}
