// Package main provides the entry point for the podenrich CLI tool.
package main

import "github.com/mrmamen/podenrich/cmd/podenrich/cmd"

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
