// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zellyn/prodos8/blockdev"
	"github.com/zellyn/prodos8/helpers"
	"github.com/zellyn/prodos8/prodos"
	"github.com/zellyn/prodos8/types"
)

var importOutput string
var importForce bool
var importType string

var importCmd = &cobra.Command{
	Use:   "import <source> <src>... <dst>",
	Short: "import host files into a volume",
	Long: `Import a single host file to a target file, or one or more host
files to a target directory. Directories are not imported: use host
globbing to expand as file lists.`,
	Args: cobra.MinimumNArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		n := len(args)
		if err := runImport(args[0], args[1:n-1], args[n-1]); err != nil {
			fail(err)
		}
	},
}

func init() {
	RootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVarP(&importOutput, "output", "o", "", "write the mutated volume here instead of <source>")
	importCmd.Flags().BoolVarP(&importForce, "force", "f", false, "overwrite an existing target file")
	importCmd.Flags().StringVarP(&importType, "type", "t", "BIN", "ProDOS file type (full name, three-letter, or one-letter abbreviation)")
}

func runImport(source string, src []string, dst string) error {
	fileType, err := types.FiletypeForName(importType)
	if err != nil {
		return err
	}

	for _, f := range src {
		info, err := helpers.HostFS.Stat(f)
		if err != nil || info.IsDir() {
			return fmt.Errorf("not a regular host file: %q", f)
		}
	}

	v, err := openVolume(source, importOutput, blockdev.ModeRW)
	if err != nil {
		return err
	}
	defer v.Close()

	target, targetErr := v.PathEntry(dst)
	renamed := ""
	if len(src) == 1 && (targetErr != nil || !target.IsDir()) {
		parent, name := filepath.Split(dst)
		dst = parent
		if dst == "" {
			dst = "/"
		}
		renamed = name
		target, targetErr = v.PathEntry(dst)
	}
	if targetErr != nil {
		return fmt.Errorf("target not found: %q", dst)
	}
	if !target.IsDir() {
		return fmt.Errorf("target not a directory: %q", dst)
	}
	dir, err := v.ReadDirectory(target)
	if err != nil {
		return err
	}

	for _, fname := range src {
		name := renamed
		if name == "" {
			name = filepath.Base(fname)
		}
		name = prodos.LegalPath(name)

		if existing, err := dir.FileEntry(name); err == nil {
			if existing.IsDir() {
				return fmt.Errorf("target %q is a directory", name)
			}
			if !importForce {
				return fmt.Errorf("target file %q exists, use --force to overwrite", name)
			}
		}

		data, err := helpers.FileContentsOrStdIn(fname)
		if err != nil {
			return err
		}
		f := prodos.Entry{
			Name:     name,
			FileType: byte(fileType),
			Access:   prodos.FullAccess,
			Created:  prodos.Now(),
			LastMod:  prodos.Now(),
		}
		if err := prodos.WriteStandardFile(v.Device(), &f, data); err != nil {
			return err
		}
		if err := dir.AddSimpleFile(f); err != nil {
			return err
		}
	}
	return nil
}
