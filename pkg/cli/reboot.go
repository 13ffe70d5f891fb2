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
	"errors"
	"fmt"
	"strings"

	"github.com/carverauto/faros/pkg/discovery"
	"github.com/carverauto/faros/pkg/models"
	"github.com/carverauto/faros/pkg/updater"
	"github.com/spf13/cobra"
)

// Reboot and report run a single enumeration pass, like the interactive tools
// they replace.
const quickIterations = 1

func newRebootCommand(a *app) *cobra.Command {
	var (
		recursive bool
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "reboot serial...",
		Short: "Reboot devices in power-dependency order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, topo, err := a.discover(cmd.Context(), quickIterations)
			if err != nil {
				return err
			}

			devices, err := pick(a, topo, args, recursive)
			if err != nil {
				return err
			}

			u := updater.NewUpdater(a.cfg.Update, a.sessions(), nil, a.component("updater"),
				updater.WithPublisher(a.publisher))

			err = u.Reboot(cmd.Context(), devices)

			failed := make(map[string]bool)

			var ue *updater.UpdateError
			if errors.As(err, &ue) {
				for _, s := range ue.Serials() {
					failed[s] = true
				}
			}

			for _, d := range discovery.SortPowerDependency(devices) {
				status := a.style.ok.Render("OK    ")
				if failed[d.Serial()] {
					status = a.style.failed.Render("FAILED")
				}

				fmt.Fprintf(a.out, "%s %s\n", status, d.Serial())
			}

			return err
		},
	}

	fs := cmd.Flags()
	fs.BoolVarP(&recursive, "recursive", "R", false, "Also reboot every connected device")
	fs.BoolVarP(&force, "force", "f", false, "Reboot all chains whether detected or not")
	_ = fs.MarkDeprecated("force", "only detected devices can be rebooted")

	return cmd
}

// pick resolves serials against the topology, adding related devices when
// recursive. Serials that were not discovered are logged; none at all is an
// error.
func pick(a *app, topo *models.Topology, serials []string, recursive bool) ([]models.Device, error) {
	devices, missing := bySerial(topo, serials)
	if len(missing) > 0 {
		a.logger.Warn().Strs("serials", missing).Msg("Requested devices were not discovered")
	}

	if len(devices) == 0 {
		return nil, fmt.Errorf("%w: %s", errUnknownDevices, strings.Join(missing, ", "))
	}

	if !recursive {
		return devices, nil
	}

	return expand(topo, devices), nil
}

// expand adds every device related to one in devices, keeping topology
// order.
func expand(topo *models.Topology, devices []models.Device) []models.Device {
	filters := make([]discovery.Filter, 0, len(devices))
	for _, d := range devices {
		filters = append(filters, discovery.RelatedTo(d))
	}

	return discovery.Select(topo.Devices(), func(d models.Device) bool {
		for _, f := range filters {
			if f(d) {
				return true
			}
		}

		return false
	})
}
