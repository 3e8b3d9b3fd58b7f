// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

package main

import (
	"github.com/zellyn/prodos8/cmd"
)

func main() {
	cmd.Execute()
}
