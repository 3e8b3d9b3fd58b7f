// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zellyn/prodos8/blockdev"
	"github.com/zellyn/prodos8/prodos"
)

var rmOutput string

var rmCmd = &cobra.Command{
	Use:   "rm <source> <src>...",
	Short: "remove simple file(s)",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runRm(args[0], args[1:]); err != nil {
			fail(err)
		}
	},
}

func init() {
	RootCmd.AddCommand(rmCmd)
	rmCmd.Flags().StringVarP(&rmOutput, "output", "o", "", "write the mutated volume here instead of <source>")
}

func runRm(source string, src []string) error {
	v, err := openVolume(source, rmOutput, blockdev.ModeRW)
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
		if !e.IsSimpleFile() {
			return fmt.Errorf("not a simple file: %s", e.Name)
		}
	}
	for _, e := range entries {
		dir, err := v.ReadDirectory(prodos.Entry{StorageType: prodos.StorageSubdirectoryHdr, KeyPointer: e.HeaderPointer})
		if err != nil {
			return err
		}
		if err := dir.RemoveSimpleFile(e); err != nil {
			return err
		}
	}
	return nil
}
