// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zellyn/prodos8/helpers"
	"github.com/zellyn/prodos8/prodos"
)

var createSize int
var createName string
var createLoader string
var createForce bool

var createCmd = &cobra.Command{
	Use:   "create <dest>",
	Short: "create an empty ProDOS volume",
	Long:  `Create an empty volume with --size total blocks (512 bytes/block).`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCreate(args[0]); err != nil {
			fail(err)
		}
	},
}

func init() {
	RootCmd.AddCommand(createCmd)
	createCmd.Flags().IntVar(&createSize, "size", 65535, "total blocks (512 bytes each)")
	createCmd.Flags().StringVar(&createName, "name", "PRODOS", "volume name")
	createCmd.Flags().StringVar(&createLoader, "loader", "", "boot-loader file to install in blocks 0-1")
	createCmd.Flags().BoolVarP(&createForce, "force", "f", false, "overwrite an existing destination")
}

func runCreate(dest string) error {
	if createSize < 1 || createSize > 65535 {
		return fmt.Errorf("--size must be between 1 and 65535; got %d", createSize)
	}
	var loader []byte
	if createLoader != "" {
		data, err := helpers.FileContentsOrStdIn(createLoader)
		if err != nil {
			return err
		}
		loader = data
	}
	v, err := prodos.CreateVolume(dest, createName, uint16(createSize), formatFor(dest), createForce, loader)
	if err != nil {
		return err
	}
	defer v.Close()
	return nil
}
