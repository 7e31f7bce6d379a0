package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/patchcanvas/pkg/config"
)

// configCommand creates the config inspection command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	cmd.AddCommand(c.configShowCommand())
	cmd.AddCommand(c.configPathCommand())

	return cmd
}

// configShowCommand creates the "config show" subcommand.
func (c *CLI) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := c.cfg().Encode()
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

// configPathCommand creates the "config path" subcommand.
func (c *CLI) configPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file in use and the search path",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.configPath != "" {
				printKeyValue("Loaded", c.configPath)
			} else {
				printKeyValue("Loaded", "(defaults)")
			}
			for _, p := range config.SearchPaths() {
				printFile(p)
			}
			return nil
		},
	}
}
