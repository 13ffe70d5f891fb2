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

	"github.com/carverauto/faros/pkg/models"
	"github.com/carverauto/faros/pkg/report"
	"github.com/spf13/cobra"
)

func newReportCommand(a *app) *cobra.Command {
	var opts report.Options

	cmd := &cobra.Command{
		Use:   "report [serial...]",
		Short: "Collect a diagnostic report",
		Long: `Report writes every selected device's status, and for hubs the power, FPGA,
service and radio console logs, into a timestamped directory packed as a
tar.gz. Leave serials blank to report on every device.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, topo, err := a.discover(cmd.Context(), quickIterations)
			if err != nil {
				return err
			}

			var devices []models.Device

			if len(args) > 0 {
				// The reporter expands recursive selections itself.
				devices, err = pick(a, topo, args, false)
				if err != nil {
					return err
				}
			}

			r := report.NewReporter(a.sessions(), a.component("report"))

			res, err := r.Generate(cmd.Context(), topo, devices, opts)
			if err != nil {
				return err
			}

			for _, f := range res.Failures {
				fmt.Fprintf(a.out, "%s %s %v\n", a.style.warn.Render("incomplete"), f.Serial, f.Err)
			}

			fmt.Fprintf(a.out, "Report written to %s\n", res.Archive)

			return nil
		},
	}

	fs := cmd.Flags()
	fs.BoolVarP(&opts.Recursive, "recursive", "R", false, "Also report every connected device")
	fs.StringVar(&opts.Dir, "dir", "", "Directory to write the report under (default the system temp dir)")
	fs.IntVar(&opts.Concurrency, "concurrency", 0, "Devices reported at once (0 is unbounded)")

	return cmd
}
