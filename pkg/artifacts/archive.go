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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	nestedHDFName = "cpe_auto.hdf"
	dirPerm       = 0o755
)

// Unpack extracts a .tar.gz, .tgz, .tar or .zip archive into dest.
func Unpack(archive, dest string) error {
	lower := strings.ToLower(archive)

	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return unpackTar(archive, dest, true)
	case strings.HasSuffix(lower, ".tar"):
		return unpackTar(archive, dest, false)
	case strings.HasSuffix(lower, ".zip"):
		return unpackZip(archive, dest)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedArchive, archive)
	}
}

// unpackTarball extracts a per-variant tarball, then the cpe_auto.hdf zip it
// may carry.
func unpackTarball(archive, dest string) error {
	if err := Unpack(archive, dest); err != nil {
		return err
	}

	hdf := filepath.Join(dest, nestedHDFName)
	if _, err := os.Stat(hdf); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return err
	}

	return unpackZip(hdf, dest)
}

func unpackTar(archive, dest string, gzipped bool) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f

	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip %s: %w", archive, err)
		}
		defer func() { _ = gz.Close() }()

		r = gz
	}

	tr := tar.NewReader(r)

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read %s: %w", archive, err)
		}

		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, dirPerm); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		}
	}
}

func unpackZip(archive, dest string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("open zip %s: %w", archive, err)
	}
	defer func() { _ = zr.Close() }()

	for _, zf := range zr.File {
		target, err := safeJoin(dest, zf.Name)
		if err != nil {
			return err
		}

		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, dirPerm); err != nil {
				return err
			}

			continue
		}

		rc, err := zf.Open()
		if err != nil {
			return err
		}

		err = writeFile(target, rc, zf.Mode().Perm())
		_ = rc.Close()

		if err != nil {
			return err
		}
	}

	return nil
}

func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, name)

	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeArchivePath, name)
	}

	return target, nil
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return err
	}

	if perm == 0 {
		perm = 0o644
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()

		return err
	}

	return out.Close()
}
