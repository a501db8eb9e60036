package main

import (
	"os"

	"github.com/dshills/copyedit/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
