// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zellyn/prodos8/blockdev"
	"github.com/zellyn/prodos8/helpers"
	"github.com/zellyn/prodos8/prodos"
)

// formatFor returns Format2mg if path ends in ".2mg" (case-insensitive),
// else FormatRaw.
func formatFor(path string) blockdev.Format {
	if strings.EqualFold(filepath.Ext(path), ".2mg") {
		return blockdev.Format2mg
	}
	return blockdev.FormatRaw
}

// copyFile is used to implement --output: work on a copy of source so
// the original image is left untouched. It goes through the same
// host filesystem abstraction as import/export, so swapping
// helpers.HostFS also redirects disk-image copies.
func copyFile(src, dst string) error {
	in, err := helpers.HostFS.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := helpers.HostFS.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

// openVolume opens source for reading, or for writing against a copy
// at output when output is non-empty.
func openVolume(source, output string, mode blockdev.Mode) (*prodos.Volume, error) {
	path := source
	if output != "" {
		if err := copyFile(source, output); err != nil {
			return nil, err
		}
		path = output
	}
	return prodos.OpenVolume(path, mode)
}

// splitDestPath splits a `/`-separated destination path into its
// parent and base name, defaulting the parent to "/" when dst has no
// slash.
func splitDestPath(dst string) (parent, name string) {
	dst = strings.TrimRight(dst, "/")
	idx := strings.LastIndex(dst, "/")
	if idx < 0 {
		return "/", dst
	}
	parent = dst[:idx]
	if parent == "" {
		parent = "/"
	}
	return parent, dst[idx+1:]
}

// fail prints err to stderr and exits with status -1. It mirrors the
// teacher's Run-body error handling, factored out since every
// subcommand in this package needs it.
func fail(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(-1)
}
