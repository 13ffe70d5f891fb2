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
	"io"
	"strings"

	"github.com/carverauto/faros/pkg/models"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/lipgloss/tree"
)

const (
	FieldSerial  = "serial"
	FieldAddress = "address"

	topologyTimeFormat = "2006-01-02 15:04:05.000000"
)

// FieldValue returns a single printable field of a device.
func FieldValue(d models.Device, field string) (string, error) {
	switch field {
	case FieldSerial:
		return d.Serial(), nil
	case FieldAddress:
		return d.Address(), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOutputField, field)
	}
}

// RenderOptions controls tree rendering. Field, when set, collapses each
// device group to one line of that field's values.
type RenderOptions struct {
	Field string
}

// RenderTree draws the topology as a tree.
func RenderTree(topo *models.Topology, opts RenderOptions) string {
	root := tree.Root(fmt.Sprintf("Topology at %s", topo.Time.Format(topologyTimeFormat)))

	for _, hub := range topo.Hubs {
		hubNode := tree.Root(fmt.Sprintf("Hub: %s    %s", hub.Serial(), hub.Address()))

		for _, chain := range hub.Chains() {
			hubNode.Child(chainNode(chain, opts))
		}

		root.Child(hubNode)
	}

	if len(topo.Standalone) > 0 {
		label := fmt.Sprintf("Standalone Count: %d  FW %s FPGA %s",
			len(topo.Standalone),
			CommonValue(topo.Standalone, Firmware),
			CommonValue(topo.Standalone, FPGA))

		node := tree.Root(label)
		addDevices(node, "Iris ", topo.Standalone, opts, models.Details)
		root.Child(node)
	}

	if len(topo.CPEs) > 0 {
		node := tree.Root("Standalone CPEs")
		addDevices(node, "CPE  ", topo.CPEs, RenderOptions{}, models.Details)
		root.Child(node)
	}

	if len(topo.VGERs) > 0 {
		node := tree.Root("Standalone VGERs")
		addDevices(node, "VGER ", topo.VGERs, RenderOptions{}, models.Details)
		root.Child(node)
	}

	return root.String()
}

func chainNode(chain *models.Chain, opts RenderOptions) *tree.Tree {
	members := chain.Members()

	var label string

	if chain.RRH {
		label = fmt.Sprintf("Chain %d  Serial %s  Count %d  FW %s FPGA %s",
			chain.Index+1, chain.Serial, len(members),
			CommonValue(members, Firmware), CommonValue(members, FPGA))
		if !chain.ConfigCorrect {
			label += " (FIX SFP CONFIG)"
		}
	} else {
		label = fmt.Sprintf("Chain %d  Count: %d FW %s FPGA %s  (Not RRH)",
			chain.Index+1, len(chain.Nodes),
			CommonValue(chain.Nodes, Firmware), CommonValue(chain.Nodes, FPGA))
		members = chain.Nodes
	}

	node := tree.Root(label)
	addDevices(node, "Iris ", members, opts, func(d models.Device) string {
		return fmt.Sprint(d)
	})

	return node
}

func addDevices[D models.Device](node *tree.Tree, prefix string, devices []D, opts RenderOptions, describe func(models.Device) string) {
	if opts.Field != "" {
		values := make([]string, 0, len(devices))

		for _, d := range devices {
			v, err := FieldValue(d, opts.Field)
			if err != nil {
				v = "?"
			}

			values = append(values, v)
		}

		node.Child(strings.Join(values, " "))

		return
	}

	for _, d := range devices {
		node.Child(prefix + describe(d))
	}
}

// WriteFlat prints one device per line, or just one field of each.
func WriteFlat(w io.Writer, devices []models.Device, field string) error {
	for _, d := range devices {
		line := fmt.Sprint(d)

		if field != "" {
			v, err := FieldValue(d, field)
			if err != nil {
				return err
			}

			line = v
		}

		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	return nil
}

// RenderTable lists devices with their placement.
func RenderTable(devices []models.Device) string {
	rows := make([][]string, 0, len(devices))

	for _, d := range devices {
		rows = append(rows, []string{
			d.Serial(),
			d.Kind().String(),
			d.Variant().String(),
			d.Address(),
			d.Firmware(),
			d.FPGA(),
			placement(d),
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("SERIAL", "KIND", "VARIANT", "ADDRESS", "FIRMWARE", "FPGA", "PLACEMENT").
		Rows(rows...).
		String()
}

func placement(d models.Device) string {
	iris, ok := d.(*models.Iris)
	if !ok {
		return ""
	}

	switch {
	case iris.RRHMember:
		return fmt.Sprintf("%s rrh %s #%d", iris.HubSerial, iris.RRHSerial, iris.RRHIndex+1)
	case iris.HubSerial != "":
		return fmt.Sprintf("%s chain %d (partial)", iris.HubSerial, iris.ChainKey+1)
	default:
		return "standalone"
	}
}
