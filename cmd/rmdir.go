// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zellyn/prodos8/blockdev"
	"github.com/zellyn/prodos8/prodos"
)

var rmdirOutput string

var rmdirCmd = &cobra.Command{
	Use:   "rmdir <source> <src>",
	Short: "remove an empty directory",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runRmdir(args[0], args[1]); err != nil {
			fail(err)
		}
	},
}

func init() {
	RootCmd.AddCommand(rmdirCmd)
	rmdirCmd.Flags().StringVarP(&rmdirOutput, "output", "o", "", "write the mutated volume here instead of <source>")
}

func runRmdir(source, src string) error {
	v, err := openVolume(source, rmdirOutput, blockdev.ModeRW)
	if err != nil {
		return err
	}
	defer v.Close()

	entry, err := v.PathEntry(src)
	if err != nil {
		return fmt.Errorf("directory not found: %q", src)
	}
	if !entry.IsDir() {
		return fmt.Errorf("not a directory: %q", src)
	}
	parent, err := v.ReadDirectory(prodos.Entry{StorageType: prodos.StorageSubdirectoryHdr, KeyPointer: entry.HeaderPointer})
	if err != nil {
		return err
	}
	return parent.RemoveDirectory(entry)
}
