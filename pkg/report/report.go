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

// Package report gathers per-device diagnostics into a timestamped directory
// and packs it as a tar.gz for support.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/carverauto/faros/pkg/discovery"
	"github.com/carverauto/faros/pkg/logger"
	"github.com/carverauto/faros/pkg/models"
	"github.com/carverauto/faros/pkg/session"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	dirPrefix     = "sklk_report-"
	dirTimeFormat = "2006_01_02T15_04_05"
	treeFile      = "device_tree.txt"

	consoleChains  = 7
	consoleDevices = 8
)

type section struct {
	title string
	cmd   string
}

//nolint:gochecknoglobals // fixed command list
var hubSections = []section{
	{"HUB power status", "sudo hub_cpld -P"},
	{"HUB power monitor", "sudo hub_cpld -l"},
	{"HUB fpga info", "sudo hub_fpga -i"},
	{"HUB clock", "sudo journalctl -n 100 -u hub_clock --no-pager"},
	{"HUB web monitor", "sudo journalctl -n 100 -u hub_web_monitor --no-pager"},
}

func consoleSection(chain, device int) section {
	return section{
		title: fmt.Sprintf("Chain %d Device %d", chain+1, device+1),
		cmd:   fmt.Sprintf("sudo journalctl --no-pager -n 100 -u sklk-cattty@devices-virtual-tty-ch%d_tty%d", chain, device+1),
	}
}

// Options selects where and how much to report.
type Options struct {
	// Dir is the parent of the report directory; empty uses os.TempDir.
	Dir string
	// Recursive extends each selected device with its chain, hub and irises.
	Recursive bool
	// Concurrency bounds devices reported at once; 0 is unbounded.
	Concurrency int
}

// Failure is a device whose report is incomplete.
type Failure struct {
	Serial string
	Err    error
}

// Result locates a finished report.
type Result struct {
	Dir      string
	Archive  string
	Devices  []string
	Failures []Failure
}

// Reporter collects device reports over remote sessions.
type Reporter struct {
	sessions *session.Manager
	now      func() time.Time
	logger   logger.Logger
	tracer   trace.Tracer
}

// Option customizes a Reporter.
type Option func(*Reporter)

// WithClock overrides the time used to name the report directory.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		if now != nil {
			r.now = now
		}
	}
}

func NewReporter(sessions *session.Manager, log logger.Logger, opts ...Option) *Reporter {
	if log == nil {
		log = logger.NewTestLogger()
	}

	r := &Reporter{
		sessions: sessions,
		now:      time.Now,
		logger:   log,
		tracer:   logger.GetTracer("faros/report"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Generate writes one file per device plus the rendered topology, then packs
// the directory. A nil devices slice reports the whole topology. Device
// failures are logged and listed in the result; they never abort the report.
func (r *Reporter) Generate(ctx context.Context, topo *models.Topology, devices []models.Device, opts Options) (*Result, error) {
	if topo == nil {
		return nil, ErrNoTopology
	}

	parent := opts.Dir
	if parent == "" {
		parent = os.TempDir()
	}

	dir := filepath.Join(parent, dirPrefix+r.now().Format(dirTimeFormat))

	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrReportExists, dir)
		}

		return nil, err
	}

	selected := r.selection(topo, devices, opts.Recursive)

	res := &Result{Dir: dir, Devices: make([]string, 0, len(selected))}
	errs := make([]error, len(selected))

	var g errgroup.Group

	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}

	for i, d := range selected {
		res.Devices = append(res.Devices, d.Serial())

		g.Go(func() error {
			errs[i] = r.device(ctx, dir, d)

			return nil
		})
	}

	_ = g.Wait()

	for i, err := range errs {
		if err == nil {
			continue
		}

		r.logger.Error().Err(err).Str("serial", selected[i].Serial()).Msg("Device report incomplete")
		res.Failures = append(res.Failures, Failure{Serial: selected[i].Serial(), Err: err})
	}

	if err := writeTree(dir, topo); err != nil {
		return res, err
	}

	archive, err := pack(dir)
	if err != nil {
		return res, err
	}

	res.Archive = archive

	r.logger.Info().
		Str("archive", archive).
		Int("devices", len(selected)).
		Int("failed", len(res.Failures)).
		Msg("Report written")

	return res, nil
}

// selection expands and de-duplicates the requested devices, keeping the
// first occurrence of each serial.
func (r *Reporter) selection(topo *models.Topology, devices []models.Device, recursive bool) []models.Device {
	all := topo.Devices()
	if devices == nil {
		return all
	}

	seen := make(map[string]struct{}, len(devices))
	out := make([]models.Device, 0, len(devices))

	add := func(d models.Device) {
		if _, ok := seen[d.Serial()]; ok {
			return
		}

		seen[d.Serial()] = struct{}{}
		out = append(out, d)
	}

	for _, d := range devices {
		add(d)

		if recursive {
			for _, related := range discovery.Select(all, discovery.RelatedTo(d)) {
				add(related)
			}
		}
	}

	return out
}

func (r *Reporter) device(ctx context.Context, dir string, d models.Device) (err error) {
	ctx, span := r.tracer.Start(ctx, "report.device", trace.WithAttributes(
		attribute.String("serial", d.Serial()),
		attribute.String("variant", d.Variant().String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		span.End()
	}()

	f, err := os.Create(filepath.Join(dir, d.Serial()+".txt"))
	if err != nil {
		return err
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	writeStatus(f, d.Status())

	hub, ok := d.(*models.Hub)
	if !ok {
		return nil
	}

	if r.sessions == nil {
		return session.ErrSessionClosed
	}

	return r.sessions.WithSession(ctx, hub, func(s *session.Session) error {
		return r.hub(ctx, f, s)
	})
}

func writeStatus(w io.Writer, status models.Status) {
	writeHeader(w, "JSON status", 0)
	writeIndented(w, status.Pretty("    "), 0)
	fmt.Fprintln(w)
}

func (r *Reporter) hub(ctx context.Context, w io.Writer, s *session.Session) error {
	for _, sec := range hubSections {
		if err := r.section(ctx, w, s, sec, 0); err != nil {
			return err
		}
	}

	writeHeader(w, "Radio Unit Console output", 0)

	for c := 0; c < consoleChains; c++ {
		for d := 0; d < consoleDevices; d++ {
			if err := r.section(ctx, w, s, consoleSection(c, d), indentStep); err != nil {
				return err
			}
		}
	}

	return nil
}

// section writes one command's output. A non-zero exit still records the
// output; a transport failure stops the device since later commands would
// fail the same way.
func (r *Reporter) section(ctx context.Context, w io.Writer, s *session.Session, sec section, indent int) error {
	writeHeader(w, sec.title, indent)

	res, err := s.Exec(ctx, sec.cmd)
	if err != nil {
		writeIndented(w, fmt.Sprintf("Error running command: %v", err), indent)

		return err
	}

	if res.ExitCode != 0 {
		r.logger.Warn().
			Str("serial", s.Serial()).
			Str("cmd", sec.cmd).
			Int("exit_code", res.ExitCode).
			Msg("Error running command")
	}

	writeIndented(w, res.Stdout, indent)

	return nil
}

func writeTree(dir string, topo *models.Topology) error {
	f, err := os.Create(filepath.Join(dir, treeFile))
	if err != nil {
		return err
	}

	writeHeader(f, "Device Tree", 0)
	writeIndented(f, discovery.RenderTree(topo, discovery.RenderOptions{}), 0)
	fmt.Fprintln(f)

	return f.Close()
}
