// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package builtin

import (
	"archive/tar"
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sandboxrt/core/pkg/component"
	"github.com/sandboxrt/core/pkg/stream"
)

// Archive implements tar, zip, unzip against the real filesystem. No
// archive library appears anywhere in the dependency corpus, so this
// is one of the few components built directly on the standard library
// (archive/tar, archive/zip) rather than a third-party package.
type Archive struct{}

func (Archive) ListCommands() []string { return []string{"tar", "zip", "unzip"} }

func (Archive) Run(ctx context.Context, name string, argv []string, env component.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	if wantsHelp(argv) {
		return usage(stdout, helpText(name))
	}
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(env.Cwd, p)
	}
	switch name {
	case "tar":
		return runTar(argv, resolve, stderr)
	case "zip":
		return runZip(argv, resolve, stderr)
	case "unzip":
		return runUnzip(argv, resolve, stderr)
	}
	return component.ExitUnknown, nil
}

func runTar(argv []string, resolve func(string) string, stderr stream.OutputStream) (int, error) {
	var mode, archivePath string
	var files []string
	for _, a := range argv {
		switch {
		case strings.HasPrefix(a, "-c") || a == "c":
			mode = "c"
		case strings.HasPrefix(a, "-x") || a == "x":
			mode = "x"
		case a == "-f" || a == "f":
			continue
		case archivePath == "":
			archivePath = a
		default:
			files = append(files, a)
		}
	}
	if mode == "" || archivePath == "" {
		fmt.Fprintln(stderr, "tar: usage: tar -c|-x -f ARCHIVE [FILES...]")
		return component.ExitUsage, nil
	}
	archivePath = resolve(archivePath)

	if mode == "c" {
		f, err := os.Create(archivePath)
		if err != nil {
			fmt.Fprintf(stderr, "tar: %v\n", err)
			return component.ExitFailure, nil
		}
		defer f.Close()
		tw := tar.NewWriter(f)
		defer tw.Close()
		for _, rel := range files {
			if err := addToTar(tw, resolve(rel), rel); err != nil {
				fmt.Fprintf(stderr, "tar: %v\n", err)
				return component.ExitFailure, nil
			}
		}
		return component.ExitSuccess, nil
	}

	f, err := os.Open(archivePath)
	if err != nil {
		fmt.Fprintf(stderr, "tar: %v\n", err)
		return component.ExitFailure, nil
	}
	defer f.Close()
	tr := tar.NewReader(f)
	destDir := filepath.Dir(archivePath)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintf(stderr, "tar: %v\n", err)
			return component.ExitFailure, nil
		}
		target := filepath.Join(destDir, hdr.Name)
		if hdr.FileInfo().IsDir() {
			os.MkdirAll(target, 0o755)
			continue
		}
		os.MkdirAll(filepath.Dir(target), 0o755)
		out, err := os.Create(target)
		if err != nil {
			fmt.Fprintf(stderr, "tar: %v\n", err)
			return component.ExitFailure, nil
		}
		io.Copy(out, tr)
		out.Close()
	}
	return component.ExitSuccess, nil
}

func addToTar(tw *tar.Writer, absPath, relPath string) error {
	fi, err := os.Stat(absPath)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return filepath.Walk(absPath, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			rel, _ := filepath.Rel(filepath.Dir(absPath), p)
			hdr, err := tar.FileInfoHeader(info, "")
			if err != nil {
				return err
			}
			hdr.Name = rel
			if err := tw.WriteHeader(hdr); err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			data, err := os.Open(p)
			if err != nil {
				return err
			}
			defer data.Close()
			_, err = io.Copy(tw, data)
			return err
		})
	}
	hdr, err := tar.FileInfoHeader(fi, "")
	if err != nil {
		return err
	}
	hdr.Name = relPath
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	data, err := os.Open(absPath)
	if err != nil {
		return err
	}
	defer data.Close()
	_, err = io.Copy(tw, data)
	return err
}

func runZip(argv []string, resolve func(string) string, stderr stream.OutputStream) (int, error) {
	if len(argv) < 2 {
		fmt.Fprintln(stderr, "zip: usage: zip ARCHIVE.zip FILES...")
		return component.ExitUsage, nil
	}
	archivePath := resolve(argv[0])
	f, err := os.Create(archivePath)
	if err != nil {
		fmt.Fprintf(stderr, "zip: %v\n", err)
		return component.ExitFailure, nil
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	defer zw.Close()

	for _, rel := range argv[1:] {
		abs := resolve(rel)
		err := filepath.Walk(abs, func(p string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return err
			}
			relName, _ := filepath.Rel(filepath.Dir(abs), p)
			w, err := zw.Create(relName)
			if err != nil {
				return err
			}
			data, err := os.Open(p)
			if err != nil {
				return err
			}
			defer data.Close()
			_, err = io.Copy(w, data)
			return err
		})
		if err != nil {
			fmt.Fprintf(stderr, "zip: %v\n", err)
			return component.ExitFailure, nil
		}
	}
	return component.ExitSuccess, nil
}

func runUnzip(argv []string, resolve func(string) string, stderr stream.OutputStream) (int, error) {
	if len(argv) == 0 {
		fmt.Fprintln(stderr, "unzip: usage: unzip ARCHIVE.zip")
		return component.ExitUsage, nil
	}
	archivePath := resolve(argv[0])
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		fmt.Fprintf(stderr, "unzip: %v\n", err)
		return component.ExitFailure, nil
	}
	defer r.Close()
	destDir := filepath.Dir(archivePath)
	for _, zf := range r.File {
		target := filepath.Join(destDir, zf.Name)
		if zf.FileInfo().IsDir() {
			os.MkdirAll(target, 0o755)
			continue
		}
		os.MkdirAll(filepath.Dir(target), 0o755)
		rc, err := zf.Open()
		if err != nil {
			fmt.Fprintf(stderr, "unzip: %v\n", err)
			return component.ExitFailure, nil
		}
		out, err := os.Create(target)
		if err != nil {
			rc.Close()
			fmt.Fprintf(stderr, "unzip: %v\n", err)
			return component.ExitFailure, nil
		}
		io.Copy(out, rc)
		out.Close()
		rc.Close()
	}
	return component.ExitSuccess, nil
}
