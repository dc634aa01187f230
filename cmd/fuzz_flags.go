package cmd

import (
	"github.com/charybdis-fuzz/charybdis/fuzzing/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// addFuzzFlags adds the flags the fuzz command recognizes. Every flag overrides the corresponding project
// configuration value when explicitly provided.
func addFuzzFlags() {
	defaults := config.GetDefaultProjectConfig()

	fuzzCmd.Flags().String("config", "", "path to the project configuration file (default \""+DefaultProjectConfigFilename+"\" when present)")
	fuzzCmd.Flags().Int("workers", defaults.Fuzzing.Workers, "number of worker threads independent tests are distributed across")
	fuzzCmd.Flags().Int("runs", defaults.Fuzzing.Runs, "number of call sequences to execute per invariant test")
	fuzzCmd.Flags().Int("depth", defaults.Fuzzing.Depth, "maximum number of calls per sequence")
	fuzzCmd.Flags().Int64("seed", defaults.Fuzzing.Seed, "campaign random seed (0 derives one from the clock)")
	fuzzCmd.Flags().Int("timeout", defaults.Fuzzing.Timeout, "number of seconds to run before concluding with partial counts (0 means no timeout)")
	fuzzCmd.Flags().Bool("fail-on-revert", defaults.Fuzzing.FailOnRevert, "treat any handler revert as a test failure")
	fuzzCmd.Flags().Int("max-assume-rejects", defaults.Fuzzing.MaxAssumeRejects, "number of assume-rejected calls tolerated per run")
	fuzzCmd.Flags().Int("shrink-run-limit", defaults.Fuzzing.ShrinkRunLimit, "maximum sequence replays spent shrinking a failure (0 disables shrinking)")
	fuzzCmd.Flags().Bool("show-metrics", defaults.Fuzzing.ShowMetrics, "render the per-selector call/revert/discard table when the campaign ends")
	fuzzCmd.Flags().Bool("show-solidity", defaults.Fuzzing.ShowSolidity, "render counterexamples as replayable Solidity statements")
	fuzzCmd.Flags().String("corpus-dir", defaults.Fuzzing.CorpusDirectory, "directory holding corpus sequences and the persisted value dictionary (empty disables the corpus)")
	fuzzCmd.Flags().String("failure-dir", defaults.Fuzzing.FailureDirectory, "directory holding persisted failures for replay on the next run (empty disables failure persistence)")
	fuzzCmd.Flags().Bool("no-color", defaults.Logging.NoColor, "disable colored console output")
}

// applyFuzzFlags layers the explicitly provided fuzz command flags over the project configuration. Flags the
// user did not set on the command line leave the configuration untouched.
func applyFuzzFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	flags := cmd.Flags()
	var err error
	flags.Visit(func(flag *pflag.Flag) {
		if err != nil {
			return
		}
		switch flag.Name {
		case "workers":
			projectConfig.Fuzzing.Workers, err = flags.GetInt(flag.Name)
		case "runs":
			projectConfig.Fuzzing.Runs, err = flags.GetInt(flag.Name)
		case "depth":
			projectConfig.Fuzzing.Depth, err = flags.GetInt(flag.Name)
		case "seed":
			projectConfig.Fuzzing.Seed, err = flags.GetInt64(flag.Name)
		case "timeout":
			projectConfig.Fuzzing.Timeout, err = flags.GetInt(flag.Name)
		case "fail-on-revert":
			projectConfig.Fuzzing.FailOnRevert, err = flags.GetBool(flag.Name)
		case "max-assume-rejects":
			projectConfig.Fuzzing.MaxAssumeRejects, err = flags.GetInt(flag.Name)
		case "shrink-run-limit":
			projectConfig.Fuzzing.ShrinkRunLimit, err = flags.GetInt(flag.Name)
		case "show-metrics":
			projectConfig.Fuzzing.ShowMetrics, err = flags.GetBool(flag.Name)
		case "show-solidity":
			projectConfig.Fuzzing.ShowSolidity, err = flags.GetBool(flag.Name)
		case "corpus-dir":
			projectConfig.Fuzzing.CorpusDirectory, err = flags.GetString(flag.Name)
		case "failure-dir":
			projectConfig.Fuzzing.FailureDirectory, err = flags.GetString(flag.Name)
		case "no-color":
			projectConfig.Logging.NoColor, err = flags.GetBool(flag.Name)
		}
	})
	return err
}
