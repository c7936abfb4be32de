// Package main is the entry point for the agentcore CLI.
package main

import (
	"os"

	"agentcore/cmd/agentcore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
