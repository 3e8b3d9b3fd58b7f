// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zellyn/prodos8/blockdev"
	"github.com/zellyn/prodos8/prodos"
)

var cpOutput string

var cpCmd = &cobra.Command{
	Use:   "cp <source> <src>... <dst>",
	Short: "copy files within a volume",
	Long: `Copy a single file to a target file, or one or more files to a
target directory. Directories are not copied: use globbing to expand
as file lists.`,
	Args: cobra.MinimumNArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		n := len(args)
		if err := runCp(args[0], args[1:n-1], args[n-1]); err != nil {
			fail(err)
		}
	},
}

func init() {
	RootCmd.AddCommand(cpCmd)
	cpCmd.Flags().StringVarP(&cpOutput, "output", "o", "", "write the mutated volume here instead of <source>")
}

func runCp(source string, src []string, dst string) error {
	v, err := openVolume(source, cpOutput, blockdev.ModeRW)
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

	dstEntry, dstErr := v.PathEntry(dst)
	isDstDir := dstErr == nil && dstEntry.IsDir()
	if len(entries) > 1 && !isDstDir {
		return fmt.Errorf("target %q is not a directory", dst)
	}

	for _, e := range entries {
		if e.IsDir() {
			fmt.Printf("omitting directory %s\n", e.Name)
			continue
		}

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

		data, err := v.ReadSimpleFile(e)
		if err != nil {
			return err
		}
		// A fresh entry: it must not carry over e's KeyPointer, or
		// WriteStandardFile would free the source file's own blocks
		// believing it was overwriting an existing copy.
		dest := e
		dest.Name = destName
		dest.StorageType = prodos.StorageEmpty
		dest.KeyPointer = 0
		dest.LastMod = prodos.Now()
		if err := prodos.WriteStandardFile(v.Device(), &dest, data); err != nil {
			return err
		}
		if err := destDir.AddSimpleFile(dest); err != nil {
			return err
		}
	}
	return nil
}
