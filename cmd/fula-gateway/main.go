// Command fula-gateway runs the S3-compatible encrypted object storage
// gateway: the HTTP wire surface (pkg/api) over a content-addressed block
// store (pkg/blockstore) and bucket/object registry (pkg/bucket).
package main

import (
	"fmt"
	"os"

	"github.com/fula-project/gateway/cmd/fula-gateway/commands"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
