// Package cmd implements the charybdis command line interface.
package cmd

import "github.com/spf13/cobra"

// version describes the CLI version reported by the version command.
const version = "0.3.0"

// DefaultProjectConfigFilename describes the name of the project configuration file the commands look for when
// no explicit path is provided.
const DefaultProjectConfigFilename = "charybdis.json"

// rootCmd represents the root CLI command object which all other commands are attached to.
var rootCmd = &cobra.Command{
	Use:     "charybdis",
	Short:   "A stateful invariant fuzzer",
	Long:    "charybdis executes randomized call sequences against contract handlers and checks declared invariants after every call, shrinking and persisting any failing sequence it finds.",
	Version: version,

	// Errors are reported by the top-level handler with an exit code, so cobra should not print them itself.
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root CLI command and returns its error, if any.
func Execute() error {
	return rootCmd.Execute()
}
