// Package cli holds the pieces shared by the versioner command: the
// context store that names a graph database and an archive destination,
// output rendering (YAML, JSON, table) with an optional jq filter, and
// property input from flags or files.
//
// Contexts live under the user config directory, one directory each:
//
//	<UserConfigDir>/versioner/
//	  current-context
//	  contexts/<name>/ctx.yaml
//	  contexts/<name>/data/      default Badger directory
package cli
