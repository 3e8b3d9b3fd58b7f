// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zellyn/prodos8/blockdev"
)

var mkdirOutput string

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <source> <dst>",
	Short: "create an empty directory",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runMkdir(args[0], args[1]); err != nil {
			fail(err)
		}
	},
}

func init() {
	RootCmd.AddCommand(mkdirCmd)
	mkdirCmd.Flags().StringVarP(&mkdirOutput, "output", "o", "", "write the mutated volume here instead of <source>")
}

func runMkdir(source, dst string) error {
	v, err := openVolume(source, mkdirOutput, blockdev.ModeRW)
	if err != nil {
		return err
	}
	defer v.Close()

	parentPath, name := splitDestPath(dst)
	if name == "" {
		return fmt.Errorf("invalid directory name: %q", dst)
	}
	parentEntry, err := v.PathEntry(parentPath)
	if err != nil {
		return fmt.Errorf("parent directory not found: %q", parentPath)
	}
	if !parentEntry.IsDir() {
		return fmt.Errorf("parent is not a directory: %q", parentPath)
	}
	parentDir, err := v.ReadDirectory(parentEntry)
	if err != nil {
		return err
	}
	_, err = parentDir.AddDirectory(name)
	return err
}
