// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zellyn/prodos8/blockdev"
	"github.com/zellyn/prodos8/prodos"
)

var lsRecursive bool

var lsCmd = &cobra.Command{
	Use:     "ls <source> [paths...]",
	Aliases: []string{"list", "catalog"},
	Short:   "show a volume listing",
	Long: `Show a volume listing for one or more paths, like
/some/directory/some/file.

Paths are case-insensitive, forward-slash separated, and support the
glob characters *, ? and [...]. With no paths, lists the root.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runLs(args[0], args[1:]); err != nil {
			fail(err)
		}
	},
}

func init() {
	RootCmd.AddCommand(lsCmd)
	lsCmd.Flags().BoolVarP(&lsRecursive, "recursive", "r", false, "recurse into matched subdirectories")
}

func runLs(source string, paths []string) error {
	if len(paths) == 0 {
		paths = []string{"/"}
	}
	v, err := prodos.OpenVolume(source, blockdev.ModeRO)
	if err != nil {
		return err
	}
	defer v.Close()

	entries, err := v.GlobPaths(paths)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no matching files found")
	}

	for len(entries) > 0 {
		e := entries[0]
		entries = entries[1:]
		if e.IsDir() {
			dir, err := v.ReadDirectory(e)
			if err != nil {
				return err
			}
			fmt.Println(dir.String())
			if lsRecursive {
				for _, child := range dir.Entries() {
					if child.IsDir() {
						entries = append(entries, child)
					}
				}
			}
		} else {
			fmt.Println(e.String())
		}
		fmt.Println()
	}
	return nil
}
