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
	"time"

	"github.com/carverauto/faros/pkg/logger"
	"github.com/carverauto/faros/pkg/models"
)

// Builder assembles a Topology from classified, fetched devices.
type Builder struct {
	logger logger.Logger
}

func NewBuilder(log logger.Logger) *Builder {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Builder{logger: log}
}

// Build runs hub association, chain grouping, RRH validation and iris
// partitioning. It only fails when a node maps to more than one hub.
func (b *Builder) Build(devices []models.Device, at time.Time) (*models.Topology, error) {
	topo := &models.Topology{Time: at}

	for _, d := range devices {
		switch v := d.(type) {
		case *models.Hub:
			v.ResetChains()
			topo.Hubs = append(topo.Hubs, v)
		case *models.Iris:
			v.HubSerial = ""
			v.RRHMember = false
			v.RRHSerial = ""
			v.ChainKey = models.NoIndex
			topo.Irises = append(topo.Irises, v)
		case *models.Gateway:
			if v.Kind() == models.KindVGER {
				topo.VGERs = append(topo.VGERs, v)
			} else {
				topo.CPEs = append(topo.CPEs, v)
			}
		}
	}

	members, err := associate(topo.Hubs, topo.Irises)
	if err != nil {
		return nil, err
	}

	for _, hub := range topo.Hubs {
		for _, chain := range b.groupChains(hub, members[hub.Serial()]) {
			hub.SetChain(chain)
		}
	}

	for _, iris := range topo.Irises {
		switch {
		case iris.HubSerial == "":
			topo.Standalone = append(topo.Standalone, iris)
		case iris.RRHMember:
			topo.RRHMembers = append(topo.RRHMembers, iris)
		default:
			topo.PartialChain = append(topo.PartialChain, iris)
		}
	}

	topo.Index()

	return topo, nil
}

// associate maps each positioned node to the single hub claiming its MAC.
func associate(hubs []*models.Hub, irises []*models.Iris) (map[string][]*models.Iris, error) {
	out := make(map[string][]*models.Iris, len(hubs))

	for _, iris := range irises {
		if !iris.Fetched() || !iris.HasMAC || iris.RRHIndex < 0 {
			continue
		}

		var claims []string

		for _, hub := range hubs {
			if hub.MatchesMAC(iris.LastMAC) {
				claims = append(claims, hub.Serial())
			}
		}

		switch len(claims) {
		case 0:
		case 1:
			iris.HubSerial = claims[0]
			out[claims[0]] = append(out[claims[0]], iris)
		default:
			return nil, &MultiHubError{Serial: iris.Serial(), Hubs: claims}
		}
	}

	return out, nil
}

func (b *Builder) groupChains(hub *models.Hub, irises []*models.Iris) []*models.Chain {
	byIndex := make(map[int][]*models.Iris)

	for _, iris := range irises {
		byIndex[iris.ChainIndex] = append(byIndex[iris.ChainIndex], iris)
	}

	keys := make([]int, 0, len(byIndex))
	for k := range byIndex {
		keys = append(keys, k)
	}

	sort.Ints(keys)

	chains := make([]*models.Chain, 0, len(keys))

	for _, k := range keys {
		nodes := byIndex[k]
		sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].RRHIndex < nodes[j].RRHIndex })

		chain := b.buildChain(hub.Serial(), k, nodes)
		for _, n := range nodes {
			n.ChainKey = k
		}

		if chain.Errored() {
			b.logger.Warn().
				Err(chain.Err()).
				Str("hub", hub.Serial()).
				Int("chain", k).
				Msg("Chain is not a valid RRH")
		}

		chains = append(chains, chain)
	}

	return chains
}

// buildChain validates a sorted node group against its head's configuration.
// Groups that fail keep every node and fall back to an index map.
func (b *Builder) buildChain(hubSerial string, index int, nodes []*models.Iris) *models.Chain {
	chain := &models.Chain{Index: index, HubSerial: hubSerial, Nodes: nodes}

	var heads []*models.Iris

	for _, n := range nodes {
		if n.RRHIndex == 0 || n.RRHHead {
			heads = append(heads, n)
		}
	}

	switch len(heads) {
	case 0:
		chain.Errors = append(chain.Errors, models.ErrNoChainHead)
	case 1:
		chain.Head = heads[0]
	default:
		chain.Head = heads[0]
		chain.Errors = append(chain.Errors, fmt.Errorf("%w: %d candidates", models.ErrMultipleChainHeads, len(heads)))
	}

	for _, n := range nodes {
		if n.ChainIndex != nodes[0].ChainIndex {
			chain.Errors = append(chain.Errors, models.ErrChainIndexConflict)

			break
		}
	}

	if chain.Head != nil && chain.Head.Config == nil {
		chain.Errors = append(chain.Errors, fmt.Errorf("%w: %s", models.ErrMissingChainConfig, chain.Head.Serial()))
	}

	if chain.Errored() {
		degrade(chain)

		return chain
	}

	chain.RRH = true
	chain.Config = chain.Head.Config
	chain.Serial = chain.Config.Serial
	chain.ConfigCorrect = configMatches(nodes, chain.Config.Members)

	if !chain.ConfigCorrect {
		b.logger.Info().
			Str("rrh", chain.Serial).
			Int("chain", index).
			Msg("RRH config doesn't match discovered topology")
	}

	for _, n := range nodes {
		n.RRHMember = true
		n.RRHSerial = chain.Serial
	}

	return chain
}

func degrade(chain *models.Chain) {
	chain.ByIndex = make(map[int]*models.Iris, len(chain.Nodes))

	for _, n := range chain.Nodes {
		if prev, ok := chain.ByIndex[n.RRHIndex]; ok {
			chain.Errors = append(chain.Errors, fmt.Errorf("%w: %s and %s at %d",
				models.ErrDuplicateChainMember, prev.Serial(), n.Serial(), n.RRHIndex))

			continue
		}

		chain.ByIndex[n.RRHIndex] = n
	}
}

// configMatches compares discovered serials with the configured list
// pairwise, over the shorter of the two.
func configMatches(nodes []*models.Iris, configured []string) bool {
	for i := 0; i < len(nodes) && i < len(configured); i++ {
		if nodes[i].Serial() != configured[i] {
			return false
		}
	}

	return true
}
