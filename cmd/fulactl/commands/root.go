// Package commands implements the fulactl administration CLI.
package commands

import (
	"github.com/spf13/cobra"

	configcmd "github.com/fula-project/gateway/cmd/fulactl/commands/config"
	identitycmd "github.com/fula-project/gateway/cmd/fulactl/commands/identity"
	objectcmd "github.com/fula-project/gateway/cmd/fulactl/commands/object"
	sharecmd "github.com/fula-project/gateway/cmd/fulactl/commands/share"
	tokencmd "github.com/fula-project/gateway/cmd/fulactl/commands/token"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "fulactl",
	Short: "fulactl - fula-gateway administration CLI",
	Long: `fulactl performs local administration tasks against a fula-gateway
configuration: generating and validating config, issuing access tokens,
and inspecting the configuration schema.

fulactl also holds the owner-side half of the end-to-end encryption data
flow: "identity" generates and inspects long-term key material, and
"object" encrypts/uploads and downloads/decrypts objects against a
running gateway, never exposing plaintext or key material to it.

Use "fulactl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and executes it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/fula-gateway/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configcmd.Cmd)
	rootCmd.AddCommand(tokencmd.Cmd)
	rootCmd.AddCommand(identitycmd.Cmd)
	rootCmd.AddCommand(objectcmd.Cmd)
	rootCmd.AddCommand(sharecmd.Cmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
