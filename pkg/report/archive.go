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

package report

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// pack writes dir into dir.tar.gz with entries rooted at dir's base name.
func pack(dir string) (string, error) {
	archive := dir + ".tar.gz"

	f, err := os.Create(archive)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrArchive, err)
	}

	gzw := gzip.NewWriter(f)
	tw := tar.NewWriter(gzw)

	base := filepath.Base(dir)

	walkErr := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}

		hdr.Name = path.Join(base, filepath.ToSlash(rel))
		if d.IsDir() {
			hdr.Name += "/"
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		src, err := os.Open(p)
		if err != nil {
			return err
		}
		defer func() { _ = src.Close() }()

		_, err = io.Copy(tw, src)

		return err
	})

	if walkErr != nil {
		_ = f.Close()

		return "", fmt.Errorf("%w: %w", ErrArchive, walkErr)
	}

	if err := tw.Close(); err != nil {
		_ = f.Close()

		return "", fmt.Errorf("%w: %w", ErrArchive, err)
	}

	if err := gzw.Close(); err != nil {
		_ = f.Close()

		return "", fmt.Errorf("%w: %w", ErrArchive, err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrArchive, err)
	}

	return archive, nil
}
