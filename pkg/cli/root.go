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

// Package cli implements the faros command line: discover, update, reboot,
// report and version.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "faros",
		Short:         "Discover, update, reboot and report on Skylark Wireless devices",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context(), cmd.OutOrStdout())
		},
	}

	fs := cmd.PersistentFlags()
	fs.StringVarP(&a.flags.configPath, "config", "c", "", "Path to a JSON config file")
	fs.BoolVarP(&a.flags.debug, "debug", "d", false, "Display developer debug logs")
	fs.StringVarP(&a.flags.user, "user", "U", "", "SSH username (overrides config)")
	fs.StringVarP(&a.flags.password, "password", "P", "", "SSH password (overrides config)")

	cmd.AddCommand(
		newDiscoverCommand(a),
		newUpdateCommand(a),
		newRebootCommand(a),
		newReportCommand(a),
		newVersionCommand(),
	)

	return cmd
}

// Execute runs the command line against os.Args. Resources started by the
// command are released even when it fails.
func Execute(ctx context.Context) error {
	a := newApp()
	defer a.close()

	return newRootCommand(a).ExecuteContext(ctx)
}
