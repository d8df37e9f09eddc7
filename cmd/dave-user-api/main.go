// Package main is the entry point for the workspace API server.
//
// dave-user-api provisions and manages per-user cloud development
// environments, each backed by an EC2 instance, an EBS volume, and an IAM
// role, with metadata persisted in DynamoDB.
package main

import (
	"fmt"
	"os"

	"github.com/hunoz/dave-user-api/cmd/dave-user-api/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
