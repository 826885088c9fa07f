// Package main is the entry point for the clipsmith application.
package main

import (
	"os"

	"github.com/clipsmith/clipsmith/cmd/clipsmith/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
