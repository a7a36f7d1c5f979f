package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/adaptocr/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init [file]",
	Short: "Write a configuration file with every default",
	Long: `Write adaptocr.yaml (or the given file) containing every setting with its
default value. Existing files are never overwritten.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	Annotations:  map[string]string{lenientConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := config.ConfigFileName + ".yaml"
		if len(args) == 1 {
			filename = args[0]
		}
		written, err := config.GenerateDefaultConfigFile(filename)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", written)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:          "show",
	Short:        "Print the effective configuration",
	Long:         `Print the configuration after merging defaults, the config file, environment variables and flags.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	Annotations:  map[string]string{lenientConfig: "true"},
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, err := config.MarshalYAML(*GetConfig())
		if err != nil {
			return err
		}
		if used := configLoader.GetConfigFileUsed(); used != "" {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", used)
		}
		_, err = cmd.OutOrStdout().Write(out)
		if err != nil {
			return err
		}
		if verr := GetConfig().Validate(); verr != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: configuration is invalid: %v\n", verr)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
