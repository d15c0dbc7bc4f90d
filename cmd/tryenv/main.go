// Package main provides the tryenv CLI for managing encrypted per-project
// environment variables and their git-hosted backup.
package main

import "github.com/tryEnv-xyz/tryEnv/cmd/tryenv/commands"

func main() {
	commands.Execute(Version)
}
