package main

import (
	"os"

	"github.com/codegraph-labs/codegraph/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
