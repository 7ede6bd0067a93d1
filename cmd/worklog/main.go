// Package main is the entry point for the worklog CLI.
package main

import (
	"os"

	"github.com/runger/worklog/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
