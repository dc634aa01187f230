package cmd

import (
	"os"
	"os/signal"

	"github.com/charybdis-fuzz/charybdis/cmd/exitcodes"
	"github.com/charybdis-fuzz/charybdis/fuzzing"
	"github.com/charybdis-fuzz/charybdis/fuzzing/config"
	"github.com/charybdis-fuzz/charybdis/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// fuzzCmd runs a fuzzing campaign over every registered test contract.
var fuzzCmd = &cobra.Command{
	Use:           "fuzz",
	Short:         "Starts a fuzzing campaign",
	Long:          "fuzz starts a fuzzing campaign over the registered test contracts, using the project configuration with any provided flag overrides",
	Args:          cobra.NoArgs,
	RunE:          cmdRunFuzz,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	addFuzzFlags()
	rootCmd.AddCommand(fuzzCmd)
}

// loadFuzzConfig reads the project configuration the fuzz command should run under. An explicitly provided path
// must exist; the default path is optional and falls back onto the built-in defaults.
func loadFuzzConfig(cmd *cobra.Command) (*config.ProjectConfig, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		return config.ReadProjectConfigFromFile(configPath)
	}
	if utils.FileExists(DefaultProjectConfigFilename) {
		return config.ReadProjectConfigFromFile(DefaultProjectConfigFilename)
	}
	return config.GetDefaultProjectConfig(), nil
}

// cmdRunFuzz executes the CLI fuzz command.
func cmdRunFuzz(cmd *cobra.Command, args []string) error {
	projectConfig, err := loadFuzzConfig(cmd)
	if err != nil {
		return err
	}
	if err = applyFuzzFlags(cmd, projectConfig); err != nil {
		return err
	}

	fuzzer, err := fuzzing.NewFuzzer(*projectConfig)
	if err != nil {
		return err
	}

	definitions := fuzzing.RegisteredTests()
	if len(definitions) == 0 {
		return errors.New("no test contracts are registered: link a backend integration which registers its tests via fuzzing.RegisterTest")
	}
	for _, definition := range definitions {
		fuzzer.AddTest(definition)
	}

	// A first interrupt stops the campaign gracefully so results found so far are still reported.
	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, os.Interrupt)
	go func() {
		<-signalChannel
		fuzzer.Logger().Info("Received interrupt, stopping the campaign")
		fuzzer.Stop()
	}()

	if err = fuzzer.Start(); err != nil {
		// Campaign errors were already reported through the fuzzer's logger.
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	if len(fuzzer.TestCasesWithStatus(fuzzing.TestCaseStatusFailed)) > 0 {
		return exitcodes.NewErrorWithExitCode(nil, exitcodes.ExitCodeTestFailed)
	}
	return nil
}
