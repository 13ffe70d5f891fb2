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

// Package artifacts resolves firmware update bundles into per-variant
// artifact sets, verified against their manifests.
package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/carverauto/faros/pkg/discovery"
	"github.com/carverauto/faros/pkg/hashutil"
	"github.com/carverauto/faros/pkg/logger"
	"github.com/carverauto/faros/pkg/models"
	"golang.org/x/sync/errgroup"
)

// Mode is where the artifacts come from.
type Mode int

const (
	ModeFilesDirectly Mode = iota + 1
	ModeIndividualTarballs
	ModeUniversalTarball
)

func (m Mode) String() string {
	switch m {
	case ModeFilesDirectly:
		return "files"
	case ModeIndividualTarballs:
		return "tarballs"
	case ModeUniversalTarball:
		return "universal"
	default:
		return "unknown"
	}
}

const unpackDirName = ".unpack"

// Options selects the update source. Exactly one of UniversalTarball,
// Tarballs, or the direct file paths must be set.
type Options struct {
	UniversalTarball string
	Tarballs         []string
	BootBin          string
	ImageUB          string
	BootBit          string
	// Variant forces the variant of tarballs and is required for direct files.
	Variant models.Variant
	// Only restricts updates to one artifact kind.
	Only    Kind
	Remaps  []Remap
	TempDir string
	// Inspector defaults to StringsInspector.
	Inspector Inspector
}

// Mode derives the source mode, rejecting zero or several sources.
func (o *Options) Mode() (Mode, error) {
	var modes []Mode

	if o.UniversalTarball != "" {
		modes = append(modes, ModeUniversalTarball)
	}

	if len(o.Tarballs) > 0 {
		modes = append(modes, ModeIndividualTarballs)
	}

	if o.BootBin != "" || o.ImageUB != "" || o.BootBit != "" {
		modes = append(modes, ModeFilesDirectly)
	}

	switch len(modes) {
	case 0:
		return 0, ErrNoMode
	case 1:
		return modes[0], nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrConflictingModes, modes)
	}
}

// Environment is an unpacked, verified update bundle. Close removes its
// temporary files.
type Environment struct {
	mode      Mode
	root      string
	only      Kind
	sets      map[models.Variant]*Set
	inspector Inspector
	logger    logger.Logger

	mu     sync.Mutex
	closed bool
}

// New validates opts, unpacks the sources into a private temporary
// directory and resolves every variant's artifacts. All failures happen here,
// before any device is touched.
func New(ctx context.Context, opts Options, log logger.Logger) (*Environment, error) {
	if log == nil {
		log = logger.NewTestLogger()
	}

	mode, err := opts.Mode()
	if err != nil {
		return nil, err
	}

	if opts.Variant != "" {
		if _, ok := models.ParseVariant(string(opts.Variant)); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, opts.Variant)
		}
	}

	if opts.Only != "" {
		if _, err := ParseKind(string(opts.Only)); err != nil {
			return nil, err
		}
	}

	for _, r := range opts.Remaps {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}

	root, err := os.MkdirTemp(opts.TempDir, "faros-update-")
	if err != nil {
		return nil, fmt.Errorf("create unpack root: %w", err)
	}

	inspector := opts.Inspector
	if inspector == nil {
		inspector = StringsInspector{}
	}

	e := &Environment{
		mode:      mode,
		root:      root,
		only:      opts.Only,
		sets:      make(map[models.Variant]*Set),
		inspector: inspector,
		logger:    log,
	}

	if err := e.load(ctx, &opts); err != nil {
		_ = e.Close()

		return nil, err
	}

	for _, r := range opts.Remaps {
		e.logger.Debug().Str("from", r.From.String()).Str("to", r.To.String()).Msg("Applying variant remap")
		e.sets[r.From] = e.sets[r.To]
	}

	for _, v := range models.AllVariants() {
		s := e.sets[v]
		if s.Empty() {
			continue
		}

		e.logger.Debug().
			Str("variant", v.String()).
			Stringer("bootbin", s.BootBin).
			Stringer("bootbit", s.BootBit).
			Stringer("imageub", s.ImageUB).
			Msg("Resolved artifacts")
	}

	return e, nil
}

func (e *Environment) load(ctx context.Context, opts *Options) error {
	for _, v := range models.AllVariants() {
		dir := filepath.Join(e.root, v.String(), unpackDirName)
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return err
		}

		e.sets[v] = &Set{Variant: v, UnpackDir: dir}
	}

	switch e.mode {
	case ModeUniversalTarball:
		return e.loadUniversal(ctx, opts.UniversalTarball)
	case ModeIndividualTarballs:
		return e.loadTarballs(ctx, opts.Tarballs, opts.Variant, nil)
	case ModeFilesDirectly:
		return e.loadFiles(opts)
	default:
		return ErrNoMode
	}
}

func (e *Environment) loadUniversal(ctx context.Context, tarball string) error {
	outer := filepath.Join(e.root, unpackDirName)
	if err := os.MkdirAll(outer, dirPerm); err != nil {
		return err
	}

	e.logger.Debug().Str("tarball", tarball).Msg("Unpacking universal tarball")

	if err := Unpack(tarball, outer); err != nil {
		return err
	}

	var manifest *Manifest

	if _, err := os.Stat(filepath.Join(outer, ManifestFileName)); err == nil {
		m, err := LoadManifest(filepath.Join(outer, ManifestFileName))
		if err != nil {
			return err
		}

		manifest = m
	} else {
		e.logger.Debug().Msg("Universal tarball has no outer manifest")
	}

	inner, err := filepath.Glob(filepath.Join(outer, "*.tar.gz"))
	if err != nil {
		return err
	}

	return e.loadTarballs(ctx, inner, "", manifest)
}

// loadTarballs classifies every tarball first, then unpacks them
// concurrently, one variant directory each.
func (e *Environment) loadTarballs(ctx context.Context, tarballs []string, forced models.Variant, outer *Manifest) error {
	byVariant := make(map[models.Variant]string, len(tarballs))

	for _, tb := range tarballs {
		v := forced
		if v == "" {
			detected, ok := e.inspector.TarballVariant(tb)
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownTarball, tb)
			}

			v = detected
		}

		if prev, ok := byVariant[v]; ok {
			return fmt.Errorf("%w %s: %s and %s", ErrDuplicateVariant, v, prev, tb)
		}

		byVariant[v] = tb

		if outer != nil {
			sum, err := hashutil.SumFile(tb)
			if err != nil {
				return err
			}

			if err := outer.Check(filepath.Base(tb), sum); err != nil {
				return err
			}
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	for v, tb := range byVariant {
		set := e.sets[v]

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			e.logger.Debug().Str("tarball", tb).Str("variant", v.String()).Msg("Unpacking tarball")

			if err := unpackTarball(tb, set.UnpackDir); err != nil {
				return fmt.Errorf("unpack %s: %w", tb, err)
			}

			return e.fill(set)
		})
	}

	return g.Wait()
}

// fill picks up the well-known files from an unpacked variant directory.
func (e *Environment) fill(set *Set) error {
	if p := filepath.Join(set.UnpackDir, ManifestFileName); fileExists(p) {
		m, err := LoadManifest(p)
		if err != nil {
			return err
		}

		set.Manifest = m
	}

	candidates := []struct {
		kind    Kind
		pattern string
	}{
		{KindBootBin, "BOOT.BIN"},
		{KindImageUB, "image.ub"},
		{KindBootBit, "*_top.bin"},
		{KindPS7Init, "ps7_init.tcl"},
	}

	for _, c := range candidates {
		matches, err := filepath.Glob(filepath.Join(set.UnpackDir, c.pattern))
		if err != nil {
			return err
		}

		if len(matches) == 0 {
			continue
		}

		sort.Strings(matches)

		// ps7_init.tcl is never listed in manifests.
		manifest := set.Manifest
		if c.kind == KindPS7Init {
			manifest = nil
		}

		a, err := e.newArtifact(c.kind, matches[0], set.Variant, manifest)
		if err != nil {
			return err
		}

		set.set(a)
	}

	return nil
}

func (e *Environment) loadFiles(opts *Options) error {
	if opts.Variant == "" {
		return ErrVariantRequired
	}

	set := e.sets[opts.Variant]

	for _, f := range []struct {
		kind Kind
		path string
	}{
		{KindBootBin, opts.BootBin},
		{KindImageUB, opts.ImageUB},
		{KindBootBit, opts.BootBit},
	} {
		if f.path == "" {
			continue
		}

		a, err := e.newArtifact(f.kind, f.path, opts.Variant, nil)
		if err != nil {
			return err
		}

		set.set(a)
	}

	return nil
}

func (e *Environment) newArtifact(kind Kind, path string, variant models.Variant, manifest *Manifest) (*Artifact, error) {
	sum, err := hashutil.SumFile(path)
	if err != nil {
		return nil, err
	}

	a := &Artifact{Kind: kind, Path: path, Variant: variant, SHA256: sum}

	if manifest != nil {
		if err := manifest.Check(a.LocalName(), sum); err != nil {
			return nil, err
		}

		a.ManifestMatch = true
	}

	family, err := e.inspector.Family(path, kind)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", path, err)
	}

	if family != "" && family != variant.Kind() {
		return nil, fmt.Errorf("%w: %s looks like a %s image, not %s", ErrVariantMismatch, path, family, variant)
	}

	return a, nil
}

func fileExists(p string) bool {
	info, err := os.Stat(p)

	return err == nil && info.Mode().IsRegular()
}

func (e *Environment) Mode() Mode {
	return e.mode
}

// Root is the temporary directory holding unpacked files.
func (e *Environment) Root() string {
	return e.root
}

// Set returns the artifacts resolved for a variant after remapping.
func (e *Environment) Set(v models.Variant) *Set {
	return e.sets[v]
}

// Variants lists variants with at least one installable artifact.
func (e *Environment) Variants() []models.Variant {
	var out []models.Variant

	for _, v := range models.AllVariants() {
		if !e.sets[v].Empty() {
			out = append(out, v)
		}
	}

	return out
}

// ArtifactsFor lists what to push to d, in install order. Empty slots are
// skipped and the Only restriction applies.
func (e *Environment) ArtifactsFor(d models.Device) ([]*Artifact, error) {
	set := e.sets[d.Variant()]

	var out []*Artifact

	for _, k := range KindsFor(d.Kind()) {
		if e.only != "" && k != e.only {
			continue
		}

		if a := set.Get(k); a != nil {
			out = append(out, a)
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNoArtifactsForDevice, d.Serial(), d.Variant())
	}

	return out, nil
}

// Available matches devices that ArtifactsFor can serve.
func (e *Environment) Available() discovery.Filter {
	return func(d models.Device) bool {
		_, err := e.ArtifactsFor(d)

		return err == nil
	}
}

// Close removes the unpacked files. It is safe to call more than once.
func (e *Environment) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	e.closed = true

	return os.RemoveAll(e.root)
}
