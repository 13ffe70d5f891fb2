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

package artifacts

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/carverauto/faros/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func digest(b []byte) string {
	sum := sha256.Sum256(b)

	return hex.EncodeToString(sum[:])
}

func manifestFor(files map[string][]byte) []byte {
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}

	sort.Strings(names)

	var b strings.Builder
	for _, n := range names {
		fmt.Fprintf(&b, "%s  ./%s\n", digest(files[n]), n)
	}

	return []byte(b.String())
}

func writeTarGz(t *testing.T, path string, files map[string][]byte) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}

	sort.Strings(names)

	for _, n := range names {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     n,
			Mode:     0o644,
			Size:     int64(len(files[n])),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write(files[n])
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
}

func zipBytes(t *testing.T, files map[string][]byte) []byte {
	t.Helper()

	p := filepath.Join(t.TempDir(), "x.zip")
	f, err := os.Create(p)
	require.NoError(t, err)

	zw := zip.NewWriter(f)

	for n, b := range files {
		w, err := zw.Create(n)
		require.NoError(t, err)
		_, err = w.Write(b)
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	b, err := os.ReadFile(p)
	require.NoError(t, err)

	return b
}

func iris(t *testing.T, serial, fpga string) *models.Iris {
	t.Helper()

	d, err := models.NewIris(models.Record{
		models.KeySerial:     serial,
		models.KeyRemoteType: "iris030",
		models.KeyRemote:     "tcp://10.0.0.2:55132",
		models.KeyFPGA:       fpga,
	})
	require.NoError(t, err)

	return d
}

func cpe(t *testing.T, serial string) *models.Gateway {
	t.Helper()

	d, err := models.NewCPE(models.Record{
		models.KeySerial:     serial,
		models.KeyRemoteType: "cpe",
		models.KeyRemote:     "tcp://10.0.0.9:55132",
	})
	require.NoError(t, err)

	return d
}

// universalBundle builds an outer tarball holding an iris030_rrh and a cpe
// tarball plus an outer manifest over both.
func universalBundle(t *testing.T, dir string) string {
	t.Helper()

	irisFiles := map[string][]byte{
		"BOOT.BIN":     []byte("iris boot"),
		"image.ub":     []byte("iris kernel"),
		"ps7_init.tcl": []byte("tcl"),
	}
	irisFiles[ManifestFileName] = manifestFor(map[string][]byte{
		"BOOT.BIN": irisFiles["BOOT.BIN"],
		"image.ub": irisFiles["image.ub"],
	})

	cpeFiles := map[string][]byte{
		"image.ub":      []byte("cpe kernel"),
		"cpe_auto.hdf":  zipBytes(t, map[string][]byte{"sklk_cpe_top.bin": []byte("bitstream")}),
		"psu_init.tcl":  []byte("unused"),
		"cpe_notes.txt": []byte("notes"),
	}
	cpeFiles[ManifestFileName] = manifestFor(map[string][]byte{
		"image.ub":         cpeFiles["image.ub"],
		"sklk_cpe_top.bin": []byte("bitstream"),
	})

	staging := t.TempDir()
	irisTar := filepath.Join(staging, "iris030_rrh.tar.gz")
	cpeTar := filepath.Join(staging, "cpe.tar.gz")
	writeTarGz(t, irisTar, irisFiles)
	writeTarGz(t, cpeTar, cpeFiles)

	irisBytes, err := os.ReadFile(irisTar)
	require.NoError(t, err)
	cpeBytes, err := os.ReadFile(cpeTar)
	require.NoError(t, err)

	outer := map[string][]byte{
		"iris030_rrh.tar.gz": irisBytes,
		"cpe.tar.gz":         cpeBytes,
	}
	outer[ManifestFileName] = manifestFor(map[string][]byte{
		"iris030_rrh.tar.gz": irisBytes,
		"cpe.tar.gz":         cpeBytes,
	})

	path := filepath.Join(dir, "universal.tar.gz")
	writeTarGz(t, path, outer)

	return path
}

func TestOptionsMode(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		want    Mode
		wantErr error
	}{
		{name: "nothing", wantErr: ErrNoMode},
		{name: "universal", opts: Options{UniversalTarball: "u.tar.gz"}, want: ModeUniversalTarball},
		{name: "tarballs", opts: Options{Tarballs: []string{"a.tar.gz"}}, want: ModeIndividualTarballs},
		{name: "files", opts: Options{ImageUB: "image.ub"}, want: ModeFilesDirectly},
		{
			name:    "universal and files",
			opts:    Options{UniversalTarball: "u.tar.gz", BootBin: "BOOT.BIN"},
			wantErr: ErrConflictingModes,
		},
		{
			name:    "tarballs and universal",
			opts:    Options{UniversalTarball: "u.tar.gz", Tarballs: []string{"a.tar.gz"}},
			wantErr: ErrConflictingModes,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opts.Mode()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUniversalTarball(t *testing.T) {
	dir := t.TempDir()
	bundle := universalBundle(t, dir)

	env, err := New(context.Background(), Options{UniversalTarball: bundle, TempDir: dir}, nil)
	require.NoError(t, err)

	root := env.Root()

	defer func() {
		require.NoError(t, env.Close())
		_, statErr := os.Stat(root)
		assert.True(t, os.IsNotExist(statErr))
	}()

	assert.Equal(t, ModeUniversalTarball, env.Mode())
	assert.Equal(t, []models.Variant{models.VariantIrisRRH, models.VariantCPE}, env.Variants())

	set := env.Set(models.VariantIrisRRH)
	require.NotNil(t, set.BootBin)
	require.NotNil(t, set.ImageUB)
	require.NotNil(t, set.PS7Init)
	assert.Nil(t, set.BootBit)
	assert.True(t, set.BootBin.ManifestMatch)
	assert.False(t, set.PS7Init.ManifestMatch)
	assert.Equal(t, digest([]byte("iris boot")), set.BootBin.SHA256)

	arts, err := env.ArtifactsFor(iris(t, "RF3E000001", "iris030_rrh"))
	require.NoError(t, err)
	require.Len(t, arts, 2)
	assert.Equal(t, "BOOT.BIN", arts[0].RemoteName())
	assert.Equal(t, "image.ub", arts[1].RemoteName())

	cpeArts, err := env.ArtifactsFor(cpe(t, "CP01"))
	require.NoError(t, err)
	require.Len(t, cpeArts, 2)
	assert.Equal(t, KindBootBit, cpeArts[0].Kind)
	assert.Equal(t, "sklk_cpe_top.bin", cpeArts[0].LocalName())
	assert.Equal(t, "sklk_cpe_top.bin", cpeArts[0].RemoteName())
	assert.Equal(t, "sklk_cpe_image.ub", cpeArts[1].RemoteName())

	// No artifacts for the standard iris variant.
	available := env.Available()
	assert.True(t, available(iris(t, "RF3E000001", "iris030_rrh")))
	assert.False(t, available(iris(t, "RF3E000002", "iris030")))
}

func TestUniversalTarballOuterManifestMismatch(t *testing.T) {
	dir := t.TempDir()

	inner := filepath.Join(t.TempDir(), "iris030.tar.gz")
	writeTarGz(t, inner, map[string][]byte{"image.ub": []byte("k")})

	innerBytes, err := os.ReadFile(inner)
	require.NoError(t, err)

	bundle := filepath.Join(dir, "u.tar.gz")
	writeTarGz(t, bundle, map[string][]byte{
		"iris030.tar.gz": innerBytes,
		ManifestFileName: manifestFor(map[string][]byte{"iris030.tar.gz": []byte("something else")}),
	})

	_, err = New(context.Background(), Options{UniversalTarball: bundle, TempDir: dir}, nil)
	require.ErrorIs(t, err, ErrManifestMismatch)

	var me *ManifestError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "iris030.tar.gz", me.File)
}

func TestTarballInnerManifestMissingFile(t *testing.T) {
	dir := t.TempDir()
	tb := filepath.Join(dir, "faroshub04b.tar.gz")

	writeTarGz(t, tb, map[string][]byte{
		"BOOT.BIN":       []byte("hub boot"),
		"image.ub":       []byte("hub kernel"),
		ManifestFileName: manifestFor(map[string][]byte{"image.ub": []byte("hub kernel")}),
	})

	_, err := New(context.Background(), Options{Tarballs: []string{tb}, TempDir: dir}, nil)
	require.ErrorIs(t, err, ErrManifestMissingFile)
}

func TestIndividualTarballs(t *testing.T) {
	dir := t.TempDir()

	hub := filepath.Join(dir, "faroshub04b_release.tar.gz")
	writeTarGz(t, hub, map[string][]byte{"BOOT.BIN": []byte("hub boot")})

	unknown := filepath.Join(dir, "firmware.tar.gz")
	writeTarGz(t, unknown, map[string][]byte{"image.ub": []byte("k")})

	env, err := New(context.Background(), Options{Tarballs: []string{hub}, TempDir: dir}, nil)
	require.NoError(t, err)
	assert.NotNil(t, env.Set(models.VariantHubB).BootBin)
	assert.Nil(t, env.Set(models.VariantHubA).BootBin)
	require.NoError(t, env.Close())

	_, err = New(context.Background(), Options{Tarballs: []string{unknown}, TempDir: dir}, nil)
	require.ErrorIs(t, err, ErrUnknownTarball)

	env, err = New(context.Background(), Options{
		Tarballs:         []string{unknown},
		Variant:          models.VariantIrisUE,
		TempDir:          dir,
	}, nil)
	require.NoError(t, err)
	assert.NotNil(t, env.Set(models.VariantIrisUE).ImageUB)
	require.NoError(t, env.Close())

	_, err = New(context.Background(), Options{Tarballs: []string{hub, hub}, TempDir: dir}, nil)
	require.ErrorIs(t, err, ErrDuplicateVariant)
}

func TestFilesDirectly(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "custom-image.ub")
	require.NoError(t, os.WriteFile(img, []byte("kernel"), 0o600))

	_, err := New(context.Background(), Options{ImageUB: img, TempDir: dir}, nil)
	require.ErrorIs(t, err, ErrVariantRequired)

	env, err := New(context.Background(), Options{ImageUB: img, Variant: models.VariantIris, TempDir: dir}, nil)
	require.NoError(t, err)

	defer func() { _ = env.Close() }()

	arts, err := env.ArtifactsFor(iris(t, "RF3E000001", ""))
	require.NoError(t, err)
	require.Len(t, arts, 1)
	assert.Equal(t, "custom-image.ub", arts[0].LocalName())
	assert.Equal(t, "image.ub", arts[0].RemoteName())
}

func TestOnlyRestriction(t *testing.T) {
	dir := t.TempDir()
	tb := filepath.Join(dir, "iris030.tar.gz")
	writeTarGz(t, tb, map[string][]byte{"image.ub": []byte("k")})

	env, err := New(context.Background(), Options{Tarballs: []string{tb}, Only: KindBootBin, TempDir: dir}, nil)
	require.NoError(t, err)

	defer func() { _ = env.Close() }()

	_, err = env.ArtifactsFor(iris(t, "RF3E000001", ""))
	require.ErrorIs(t, err, ErrNoArtifactsForDevice)
	assert.False(t, env.Available()(iris(t, "RF3E000001", "")))
}

func TestRemap(t *testing.T) {
	dir := t.TempDir()
	tb := filepath.Join(dir, "iris030_rrh.tar.gz")
	writeTarGz(t, tb, map[string][]byte{"image.ub": []byte("rrh kernel")})

	env, err := New(context.Background(), Options{
		Tarballs:         []string{tb},
		Remaps:           []Remap{{From: models.VariantIris, To: models.VariantIrisRRH}},
		TempDir:          dir,
	}, nil)
	require.NoError(t, err)

	defer func() { _ = env.Close() }()

	arts, err := env.ArtifactsFor(iris(t, "RF3E000001", ""))
	require.NoError(t, err)
	assert.Equal(t, digest([]byte("rrh kernel")), arts[0].SHA256)

	_, err = New(context.Background(), Options{
		Tarballs:         []string{tb},
		Remaps:           []Remap{{From: models.VariantIris, To: models.VariantHubA}},
		TempDir:          dir,
	}, nil)
	require.ErrorIs(t, err, ErrInvalidRemap)
}

func TestRemapTable(t *testing.T) {
	table := RemapTable()

	flags := make(map[string]bool, len(table))
	for _, r := range table {
		require.NoError(t, r.Validate())
		assert.Equal(t, r.From.Kind(), r.To.Kind())
		flags[r.Flag()] = true
	}

	assert.True(t, flags["treat-iris030-as-iris030_rrh"])
	assert.True(t, flags["treat-faroshub04b-as-faroshub04"])
	assert.True(t, flags["treat-cpe_rrh-as-cpe"])
	assert.False(t, flags["treat-vger-as-vger"])
	// iris: 3*2, hub: 2*1, cpe: 2*1
	assert.Len(t, table, 10)
}

func TestParseManifest(t *testing.T) {
	sum := digest([]byte("x"))

	m, err := ParseManifest("manifest.txt", strings.NewReader(sum+"  build/BOOT.BIN\n\n"+sum+" image.ub\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"BOOT.BIN", "image.ub"}, m.TrackedFiles())
	require.NoError(t, m.Check("BOOT.BIN", strings.ToUpper(sum)))

	err = m.Check("BOOT.BIN", digest([]byte("y")))
	require.ErrorIs(t, err, ErrManifestMismatch)

	err = m.Check("sklk_cpe_top.bin", sum)
	require.ErrorIs(t, err, ErrManifestMissingFile)

	_, err = ParseManifest("manifest.txt", strings.NewReader("garbage\n"))
	require.Error(t, err)
}

func TestStringsInspector(t *testing.T) {
	insp := StringsInspector{}

	variants := map[string]models.Variant{
		"iris030.tar.gz":            models.VariantIris,
		"iris030_ue.tar.gz":         models.VariantIrisUE,
		"iris030_rrh-2021.1.tar.gz": models.VariantIrisRRH,
		"/queue/iris030.tar.gz":     models.VariantIris,
		"faroshub04.tar.gz":         models.VariantHubA,
		"faroshub04b.tar.gz":        models.VariantHubB,
		"cpe.tar.gz":                models.VariantCPE,
		"cpe_rrh.tar.gz":            models.VariantCPERRH,
		"vger_2021.tar.gz":          models.VariantVGER,
	}

	for name, want := range variants {
		got, ok := insp.TarballVariant(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	_, ok := insp.TarballVariant("firmware.tar.gz")
	assert.False(t, ok)

	dir := t.TempDir()
	img := filepath.Join(dir, "image.ub")
	blob := append([]byte{0, 1, 2}, []byte("/home/build/iris030/PetaLinux/images")...)
	blob = append(blob, 0, 0)
	require.NoError(t, os.WriteFile(img, blob, 0o600))

	fam, err := insp.Family(img, KindImageUB)
	require.NoError(t, err)
	assert.Equal(t, models.KindIris, fam)

	fam, err = insp.Family(img, KindBootBin)
	require.NoError(t, err)
	assert.Equal(t, models.Kind(""), fam)
}

func TestVariantMismatchRejected(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "image.ub")
	require.NoError(t, os.WriteFile(img, []byte("\x00PetaLinux faroshub04 build\x00"), 0o600))

	_, err := New(context.Background(), Options{ImageUB: img, Variant: models.VariantIris, TempDir: dir}, nil)
	require.ErrorIs(t, err, ErrVariantMismatch)
}

func TestUnpackRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	tb := filepath.Join(dir, "evil.tar.gz")
	writeTarGz(t, tb, map[string][]byte{"../escape.txt": []byte("x")})

	err := Unpack(tb, filepath.Join(dir, "out"))
	require.ErrorIs(t, err, ErrUnsafeArchivePath)

	err = Unpack(filepath.Join(dir, "bundle.rar"), dir)
	require.ErrorIs(t, err, ErrUnsupportedArchive)
}

func TestDestinationName(t *testing.T) {
	assert.Equal(t, "BOOT.BIN", DestinationName(KindBootBin, models.KindHub))
	assert.Equal(t, "image.ub", DestinationName(KindImageUB, models.KindIris))
	assert.Equal(t, "sklk_cpe_image.ub", DestinationName(KindImageUB, models.KindCPE))
	assert.Equal(t, "image.ub", DestinationName(KindImageUB, models.KindVGER))
	assert.Equal(t, "sklk_cpe_top.bin", DestinationName(KindBootBit, models.KindVGER))
	assert.Equal(t, "ps7_init.tcl", DestinationName(KindPS7Init, models.KindIris))
}
