package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yoanbernabeu/sshinvoke/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the global configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Prints the configuration after defaults, the config file and SSHINVOKE_*
environment variables were applied.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		p, err := config.GetGlobalConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	data, err := yaml.Marshal(globalCfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Fprintln(cmd.ErrOrStderr(), mutedStyle.Render("# "+path))
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
