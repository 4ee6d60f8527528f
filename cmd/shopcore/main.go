package main

import (
	"os"

	"github.com/shopcore/shopcore/cmd/shopcore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
