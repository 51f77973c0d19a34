package main

import (
	"os"

	"github.com/notargets/femvtu/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
