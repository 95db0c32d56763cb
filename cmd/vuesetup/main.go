// Package main provides the entry point for the vuesetup CLI tool.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/vuesetup/cmd/vuesetup/commands"
	"github.com/Sumatoshi-tech/vuesetup/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	err := commands.NewRootCommand().Execute()
	if err != nil {
		if !errors.Is(err, commands.ErrCheckFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}

		os.Exit(1)
	}
}
