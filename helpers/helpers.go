// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

// Package helpers contains helper routines for reading and writing files,
// allowing `-` to mean stdin/stdout.
package helpers

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/afero"
)

// HostFS is the filesystem these helpers read and write host files
// through. Production code leaves it at the default OS filesystem;
// tests may swap in afero.NewMemMapFs() to exercise import/export
// behavior without touching the real disk.
var HostFS afero.Fs = afero.NewOsFs()

// FileContentsOrStdIn returns the contents of a file, unless the file
// is "-", in which case it reads from stdin.
func FileContentsOrStdIn(s string) ([]byte, error) {
	if s == "-" {
		return io.ReadAll(os.Stdin)
	}
	return afero.ReadFile(HostFS, s)
}

func WriteOutput(filename string, contents []byte, force bool) error {
	if filename == "-" {
		_, err := os.Stdout.Write(contents)
		return err
	}
	if !force {
		if _, err := HostFS.Stat(filename); !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("cannot overwrite file %q without --force (-f)", filename)
		}
	}
	return afero.WriteFile(HostFS, filename, contents, 0666)
}
