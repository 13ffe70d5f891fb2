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
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/carverauto/faros/pkg/artifacts"
	"github.com/carverauto/faros/pkg/discovery"
	"github.com/carverauto/faros/pkg/models"
	"github.com/carverauto/faros/pkg/updater"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const defaultWaitTimeout = 10 * time.Minute

type remapFlag struct {
	remap artifacts.Remap
	set   bool
}

type updateFlags struct {
	universal string
	files     []string
	bootbin   string
	imageub   string
	bootbit   string
	variant   string

	bootbinOnly bool
	imageubOnly bool
	bootbitOnly bool

	dryRun     bool
	patchAll   bool
	standalone bool

	wait        bool
	waitTimeout time.Duration

	remaps []*remapFlag
}

func newUpdateCommand(a *app) *cobra.Command {
	f := &updateFlags{}

	cmd := &cobra.Command{
		Use:   "update [serial...]",
		Short: "Flash firmware onto devices",
		Long: `Update copies firmware to each selected device, verifies it, installs it
under /boot and reboots the device. Devices are updated concurrently; one
device failing never stops the others.

Firmware comes from a universal tarball (-u), per-variant tarballs (--file)
or image files given directly with --variant.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd.Context(), a, f, args)
		},
	}

	f.register(cmd.Flags())

	return cmd
}

func (f *updateFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.universal, "universal", "u", "", "Path to universal tarball")
	fs.BoolVarP(&f.dryRun, "dry-run", "n", false, "Print the plan without updating")
	fs.StringArrayVar(&f.files, "file", nil, "Individual tarball to apply (repeatable)")
	fs.StringVar(&f.bootbin, "bootbin", "", "BOOT.BIN to apply directly")
	fs.StringVar(&f.imageub, "imageub", "", "image.ub to apply directly")
	fs.StringVar(&f.bootbit, "bootbit", "", "FPGA bitstream to apply directly")
	fs.StringVar(&f.variant, "variant", "", "Variant of directly given files, or forced variant of --file tarballs")
	fs.BoolVar(&f.bootbitOnly, "bootbit-only", false, "Only update bootbit, no other files")
	fs.BoolVar(&f.imageubOnly, "imageub-only", false, "Only update imageub, no other files")
	fs.BoolVar(&f.bootbinOnly, "bootbin-only", false, "Only update bootbin, no other files")
	fs.BoolVar(&f.standalone, "standalone", false, "With --patch-all, only update irises outside an RRH")
	fs.BoolVar(&f.patchAll, "patch-all", false, "Patch everything on the network")
	fs.BoolVar(&f.wait, "wait", false, "Wait for updated devices to come back")
	fs.DurationVar(&f.waitTimeout, "wait-timeout", 0, "How long to wait for devices (implies --wait)")

	// Device type overrides.
	for _, r := range artifacts.RemapTable() {
		rf := &remapFlag{remap: r}
		fs.BoolVar(&rf.set, r.Flag(), false, r.Usage())
		f.remaps = append(f.remaps, rf)
	}
}

func (f *updateFlags) options() (artifacts.Options, error) {
	opts := artifacts.Options{
		UniversalTarball: f.universal,
		Tarballs:         f.files,
		BootBin:          f.bootbin,
		ImageUB:          f.imageub,
		BootBit:          f.bootbit,
	}

	if f.variant != "" {
		v, ok := models.ParseVariant(f.variant)
		if !ok {
			return opts, fmt.Errorf("%w: %q", errUnknownVariant, f.variant)
		}

		opts.Variant = v
	}

	var only []artifacts.Kind

	if f.bootbinOnly {
		only = append(only, artifacts.KindBootBin)
	}

	if f.imageubOnly {
		only = append(only, artifacts.KindImageUB)
	}

	if f.bootbitOnly {
		only = append(only, artifacts.KindBootBit)
	}

	switch len(only) {
	case 0:
	case 1:
		opts.Only = only[0]
	default:
		return opts, errConflictingOnly
	}

	for _, rf := range f.remaps {
		if rf.set {
			opts.Remaps = append(opts.Remaps, rf.remap)
		}
	}

	return opts, nil
}

// timeout is how long to wait after the update; 0 skips waiting.
func (f *updateFlags) timeout(configured time.Duration) time.Duration {
	switch {
	case f.waitTimeout > 0:
		return f.waitTimeout
	case configured > 0:
		return configured
	case f.wait:
		return defaultWaitTimeout
	default:
		return 0
	}
}

// selectTargets keeps available devices, sorted so that no device is
// updated before one it draws power through. Without patchAll only the named
// serials are kept; patchAll with standalone keeps irises outside any RRH.
func selectTargets(devices []models.Device, available discovery.Filter, serials []string, patchAll, standalone bool) []models.Device {
	selected := discovery.SortPowerDependency(discovery.Select(devices, available))

	switch {
	case !patchAll:
		want := make(map[string]struct{}, len(serials))
		for _, s := range serials {
			want[s] = struct{}{}
		}

		selected = discovery.Select(selected, func(d models.Device) bool {
			_, ok := want[d.Serial()]

			return ok
		})
	case standalone:
		selected = discovery.Select(selected, func(d models.Device) bool {
			iris, ok := d.(*models.Iris)

			return ok && !iris.RRHMember
		})
	}

	return selected
}

func runUpdate(ctx context.Context, a *app, f *updateFlags, serials []string) error {
	if !f.patchAll && len(serials) == 0 {
		return errNoSerials
	}

	if f.standalone && !f.patchAll {
		return errStandaloneNeedsAll
	}

	opts, err := f.options()
	if err != nil {
		return err
	}

	env, err := artifacts.New(ctx, opts, a.component("artifacts"))
	if err != nil {
		return err
	}

	defer func() {
		if err := env.Close(); err != nil {
			a.logger.Warn().Err(err).Str("dir", env.Root()).Msg("Failed to remove update files")
		}
	}()

	disc, topo, err := a.discover(ctx, 0)
	if err != nil {
		return err
	}

	targets := selectTargets(topo.Devices(), env.Available(), serials, f.patchAll, f.standalone)

	if !f.patchAll {
		if _, missing := bySerial(topo, serials); len(missing) > 0 {
			a.logger.Warn().Strs("serials", missing).Msg("Requested devices were not discovered")
		}
	}

	if err := a.printPlan(a.out, env, targets); err != nil {
		return err
	}

	if f.dryRun {
		return nil
	}

	u := updater.NewUpdater(a.cfg.Update, a.sessions(), env, a.component("updater"), updater.WithPublisher(a.publisher))

	report, err := u.Update(ctx, targets)
	if report != nil {
		a.printOutcomes(a.out, report)
	}

	if err != nil {
		return err
	}

	timeout := f.timeout(a.cfg.Update.WaitTimeout.Std())
	if timeout <= 0 {
		return nil
	}

	poller := updater.NewPoller(disc, a.cfg.Update.PollInterval.Std(), timeout,
		a.component("poller"), updater.WithPublisher(a.publisher))

	found, err := poller.WaitAfterReboot(ctx, report.RunID, report.Succeeded())
	if err != nil {
		return err
	}

	if !found {
		return errDevicesMissing
	}

	return nil
}

func (a *app) printPlan(w io.Writer, env *artifacts.Environment, targets []models.Device) error {
	if len(targets) == 0 {
		_, err := fmt.Fprintln(w, a.style.warn.Render("No devices selected"))

		return err
	}

	fmt.Fprintln(w, a.style.title.Render("About to flash devices:"))

	for _, d := range targets {
		fmt.Fprintf(w, "\t%s - %s\n", d.Serial(), d.Address())

		arts, err := env.ArtifactsFor(d)
		if err != nil {
			return err
		}

		for _, art := range arts {
			fmt.Fprintf(w, "\t\t%s\n", a.style.muted.Render(art.String()))
		}
	}

	return nil
}

func (a *app) printOutcomes(w io.Writer, report *updater.Report) {
	for _, o := range report.Outcomes {
		if o.Err == nil {
			fmt.Fprintf(w, "%s %s\n", a.style.ok.Render("OK    "), o.Serial)

			continue
		}

		msg := o.Err.Error()

		var de *updater.DeviceError
		if errors.As(o.Err, &de) {
			msg = fmt.Sprintf("%s: %v", de.Phase, de.Err)
		}

		fmt.Fprintf(w, "%s %s %s\n", a.style.failed.Render("FAILED"), o.Serial, msg)
	}
}
