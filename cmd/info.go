// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zellyn/prodos8/blockdev"
	"github.com/zellyn/prodos8/prodos"
)

var infoCmd = &cobra.Command{
	Use:   "info <source>",
	Short: "show basic volume information",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runInfo(args[0]); err != nil {
			fail(err)
		}
	},
}

func init() {
	RootCmd.AddCommand(infoCmd)
}

func runInfo(source string) error {
	v, err := prodos.OpenVolume(source, blockdev.ModeRO)
	if err != nil {
		return err
	}
	defer v.Close()
	fmt.Println(v.Info())
	return nil
}
