// Package main is the entry point of the versioner CLI.
//
// Usage:
//
//	versioner [flags] <command> [subcommand] [args]
//
// Commands:
//
//	ctx          - Manage contexts (graph store, archive destination, schemas)
//	init         - Create an Entity with an optional initial State
//	update/patch - Replace or merge the current State's properties
//	patch-from   - Start a new State from an older one
//	rollback*    - Restore an earlier State as a new current State
//	diff*        - Compare State properties
//	rel          - Versioned relationships between Entities
//	get, list    - Read States and Entities
//	export       - Write an Entity's timeline archive
//	archive      - Inspect timeline archives
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/versioner/cmd/versioner/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
