// Package cli provides the command-line interface for StockPilot
package cli

// Version is stamped at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

// Execute runs the root command against the environment configuration.
func Execute() error {
	return NewRootCmd().Execute()
}
