// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zellyn/prodos8/blockdev"
	"github.com/zellyn/prodos8/prodos"
)

var mvOutput string

var mvCmd = &cobra.Command{
	Use:   "mv <source> <src>... <dst>",
	Short: "move or rename files and directories within a volume",
	Args:  cobra.MinimumNArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		n := len(args)
		if err := runMv(args[0], args[1:n-1], args[n-1]); err != nil {
			fail(err)
		}
	},
}

func init() {
	RootCmd.AddCommand(mvCmd)
	mvCmd.Flags().StringVarP(&mvOutput, "output", "o", "", "write the mutated volume here instead of <source>")
}

func runMv(source string, src []string, dst string) error {
	v, err := openVolume(source, mvOutput, blockdev.ModeRW)
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
	for _, e := range entries {
		if e.HeaderPointer == 0 {
			return fmt.Errorf("cannot move the volume root directory")
		}
	}

	dstEntry, dstErr := v.PathEntry(dst)
	isDstDir := dstErr == nil && dstEntry.IsDir()
	if len(entries) > 1 && !isDstDir {
		return fmt.Errorf("target %q is not a directory", dst)
	}

	for _, e := range entries {
		var destDir *prodos.Directory
		var destName string
		if isDstDir {
			destDir, err = v.ReadDirectory(dstEntry)
			if err != nil {
				return err
			}
			destName = e.Name
		} else {
			parentPath, name := splitDestPath(dst)
			parentEntry, perr := v.PathEntry(parentPath)
			if perr != nil || !parentEntry.IsDir() {
				return fmt.Errorf("parent directory %q not found", parentPath)
			}
			destDir, err = v.ReadDirectory(parentEntry)
			if err != nil {
				return err
			}
			destName = prodos.LegalPath(name)
		}

		srcDir, err := v.ReadDirectory(prodos.Entry{StorageType: prodos.StorageSubdirectoryHdr, KeyPointer: e.HeaderPointer})
		if err != nil {
			return err
		}
		if e.IsDir() {
			err = srcDir.MoveDirectory(e, destDir, destName)
		} else {
			err = srcDir.MoveSimpleFile(e, destDir, destName)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
