// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zellyn/prodos8/blockdev"
	"github.com/zellyn/prodos8/helpers"
	"github.com/zellyn/prodos8/prodos"
)

var exportForce bool

var exportCmd = &cobra.Command{
	Use:   "export <source> <src>... <dst>",
	Short: "export volume files to the host filesystem",
	Long: `Export SRC to host DST, or one or more SRCs to host DIRECTORY
DST. With a single SRC, DST may be a file path; with more than one
SRC, DST must be an existing directory.`,
	Args: cobra.MinimumNArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		n := len(args)
		if err := runExport(args[0], args[1:n-1], args[n-1]); err != nil {
			fail(err)
		}
	},
}

func init() {
	RootCmd.AddCommand(exportCmd)
	exportCmd.Flags().BoolVarP(&exportForce, "force", "f", false, "overwrite existing host files")
}

func runExport(source string, src []string, dst string) error {
	v, err := prodos.OpenVolume(source, blockdev.ModeRO)
	if err != nil {
		return err
	}
	defer v.Close()

	entries, err := v.GlobPaths(src)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no matching files found")
	}

	info, statErr := helpers.HostFS.Stat(dst)
	isDir := statErr == nil && info.IsDir()
	if len(entries) > 1 && !isDir {
		return fmt.Errorf("%q must be an existing directory for multi-file export", dst)
	}

	for _, e := range entries {
		if e.IsDir() {
			return fmt.Errorf("cannot export directory %q; use ls --recursive to expand first", e.Name)
		}
		out := dst
		if isDir {
			out = filepath.Join(dst, e.Name)
		}
		data, err := v.ReadSimpleFile(e)
		if err != nil {
			return err
		}
		if err := helpers.WriteOutput(out, data, exportForce); err != nil {
			return err
		}
	}
	return nil
}
