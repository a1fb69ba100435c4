// Package main implements the sift command line interface.
package main

import (
	"os"

	"sift/internal/output"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		console := output.New(output.DefaultConfig())
		console.Error("Error: %v", err)
		os.Exit(1)
	}
}
