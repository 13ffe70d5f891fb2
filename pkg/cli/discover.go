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

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/carverauto/faros/pkg/discovery"
	"github.com/carverauto/faros/pkg/models"
	"github.com/spf13/cobra"
)

type discoverFlags struct {
	output     string
	filter     string
	sort       bool
	flat       bool
	table      bool
	iterations int
}

func newDiscoverCommand(a *app) *cobra.Command {
	var f discoverFlags

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Discover devices and print the topology",
		Long: `Discover enumerates the network, fetches each device's status and prints
the reconstructed hub, chain and node topology. --flat and --table print one
device per line instead, optionally filtered and sorted by power dependency.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, topo, err := a.discover(cmd.Context(), f.iterations)
			if err != nil {
				return err
			}

			return renderTopology(cmd.OutOrStdout(), topo, f)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.output, "output", "", "Print only this field of each device: serial or address")
	fs.StringVar(&f.filter, "filter", "", "Apply a filter to flat output: "+strings.Join(discovery.FilterNames(), ", "))
	fs.BoolVar(&f.sort, "sort", false, "Sort flat output by power dependency")
	fs.BoolVar(&f.flat, "flat", false, "Print one device per line")
	fs.BoolVar(&f.table, "table", false, "Print a device table")
	fs.IntVar(&f.iterations, "iterations", 0, "Enumeration passes (0 uses the config)")

	return cmd
}

func renderTopology(w io.Writer, topo *models.Topology, f discoverFlags) error {
	switch f.output {
	case "", discovery.FieldSerial, discovery.FieldAddress:
	default:
		return fmt.Errorf("%w: %q", discovery.ErrUnknownOutputField, f.output)
	}

	if !f.flat && !f.table {
		_, err := fmt.Fprintln(w, discovery.RenderTree(topo, discovery.RenderOptions{Field: f.output}))

		return err
	}

	devices, err := listDevices(topo, f.filter, f.sort)
	if err != nil {
		return err
	}

	if f.table {
		_, err := fmt.Fprintln(w, discovery.RenderTable(devices))

		return err
	}

	return discovery.WriteFlat(w, devices, f.output)
}

func listDevices(topo *models.Topology, filter string, sorted bool) ([]models.Device, error) {
	devices := topo.Devices()

	if filter != "" {
		fn, err := discovery.NamedFilter(filter)
		if err != nil {
			return nil, err
		}

		devices = discovery.Select(devices, fn)
	}

	if sorted {
		devices = discovery.SortPowerDependency(devices)
	}

	return devices, nil
}
