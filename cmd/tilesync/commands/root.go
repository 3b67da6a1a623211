// Package commands implements the tilesync CLI.
package commands

import (
	"context"

	"github.com/spf13/cobra"
)

type CLI struct {
	rootCmd *cobra.Command
}

func New() *CLI {
	rootCmd := &cobra.Command{
		Use:           "tilesync",
		Short:         "Keeps watch-face tiles in sync with pushed glucose readings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "tilesync.yaml", "Path to configuration file (YAML or JSON)")

	c := &CLI{rootCmd: rootCmd}
	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newCheckCmd())
	rootCmd.AddCommand(c.newVersionCmd())
	return c
}

func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

func configPath(cmd *cobra.Command) string {
	p, _ := cmd.Flags().GetString("config")
	return p
}
