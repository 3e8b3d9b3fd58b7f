// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/zellyn/prodos8/blockdev"
	"github.com/zellyn/prodos8/prodos"
)

var checkCmd = &cobra.Command{
	Use:   "check <source>",
	Short: "perform a best-effort volume integrity check",
	Long: `Recursively walk the volume, reading every directory and file,
warning (via the same Warning channel used for parse-time checks) on
any mismatch it observes: a file whose content read back differs in
length from its entry's EOF, or subdirectories nested past a depth
limit (as a subdirectory cycle would produce).`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCheck(args[0]); err != nil {
			fail(err)
		}
	},
}

func init() {
	RootCmd.AddCommand(checkCmd)
}

func runCheck(source string) error {
	v, err := prodos.OpenVolume(source, blockdev.ModeRO)
	if err != nil {
		return err
	}
	defer v.Close()

	fmt.Println(v.Info())

	total := int64(countEntries(v, v.Root(), 0))
	progress := mpb.New(mpb.WithWidth(64))
	bar := progress.AddBar(total,
		mpb.PrependDecorators(decor.Name("checking ")),
		mpb.AppendDecorators(decor.CountersNoUnit("%d / %d entries")),
	)

	if err := checkDirectory(v, v.Root(), 0, bar); err != nil {
		return err
	}
	progress.Wait()
	fmt.Println("check complete")
	return nil
}

// countEntries recursively counts every entry (file or subdirectory)
// reachable from dir, for sizing the progress bar up front. Read
// errors are ignored here; the real walk in checkDirectory surfaces
// them properly. It stops at the same depth limit as checkDirectory.
func countEntries(v *prodos.Volume, dir *prodos.Directory, depth int) int {
	if depth > maxDepth {
		return 0
	}
	n := 0
	for _, e := range dir.Entries() {
		switch {
		case e.IsSimpleFile():
			n++
		case e.IsDir():
			n++
			if child, err := v.ReadDirectory(e); err == nil {
				n += countEntries(v, child, depth+1)
			}
		}
	}
	return n
}

// maxDepth bounds the walk: a legitimate ProDOS tree can't nest this
// deep, so it guards against a subdirectory cycle.
const maxDepth = 64

// checkDirectory recurses into dir, reading every file's content and
// logging a warning if the number of bytes read differs from the
// entry's EOF.
func checkDirectory(v *prodos.Volume, dir *prodos.Directory, depth int, bar *mpb.Bar) error {
	if depth > maxDepth {
		logrus.Warnf("directory at block %d exceeds max nesting depth %d; possible cycle", dir.KeyBlock(), maxDepth)
		return nil
	}
	for _, e := range dir.Entries() {
		switch {
		case e.IsSimpleFile():
			data, err := v.ReadSimpleFile(e)
			if err != nil {
				return fmt.Errorf("reading %q: %w", e.Name, err)
			}
			if uint32(len(data)) != e.EOF {
				logrus.Warnf("%q: read %d bytes, entry EOF says %d", e.Name, len(data), e.EOF)
			}
			bar.Increment()
		case e.IsDir():
			child, err := v.ReadDirectory(e)
			if err != nil {
				return fmt.Errorf("reading directory %q: %w", e.Name, err)
			}
			bar.Increment()
			if err := checkDirectory(v, child, depth+1, bar); err != nil {
				return err
			}
		}
	}
	return nil
}
