// Command fulactl is the local administration CLI for fula-gateway. Its
// config and token commands work directly from the configuration file the
// server loads (validation, schema output, JWT issuance with the gateway's
// signing secret); its identity, object and share commands keep keys and
// encryption on the client and reach a running gateway over its S3 API.
package main

import (
	"fmt"
	"os"

	"github.com/fula-project/gateway/cmd/fulactl/commands"
)

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
