// Command saba-core is the single-binary entrypoint for the game server
// supervisor: sabactl's subcommands, including "serve" which runs the
// daemon in the foreground.
package main

import "github.com/saba-chan/saba-core/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
