package cmd

import (
	"fmt"

	"github.com/charybdis-fuzz/charybdis/fuzzing/config"
	"github.com/charybdis-fuzz/charybdis/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// initCmd writes a default project configuration file for a new project.
var initCmd = &cobra.Command{
	Use:           "init",
	Short:         "Initializes a project configuration",
	Long:          "init creates a project configuration file populated with the default settings",
	Args:          cobra.NoArgs,
	RunE:          cmdRunInit,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	initCmd.Flags().String("out", DefaultProjectConfigFilename, "path the configuration file is written to")
	initCmd.Flags().Bool("force", false, "overwrite an existing configuration file")
	rootCmd.AddCommand(initCmd)
}

// cmdRunInit executes the CLI init command.
func cmdRunInit(cmd *cobra.Command, args []string) error {
	outputPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if utils.FileExists(outputPath) && !force {
		return errors.Errorf("a configuration file already exists at %s, use --force to overwrite it", outputPath)
	}

	projectConfig := config.GetDefaultProjectConfig()
	if err = projectConfig.WriteToFile(outputPath); err != nil {
		return err
	}
	fmt.Printf("Project configuration written to %s\n", outputPath)
	return nil
}
