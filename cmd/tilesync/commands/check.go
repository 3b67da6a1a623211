package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"tilesync/internal/config"
)

func (c *CLI) newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration file and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configPath(cmd)
			cfg, err := config.NewConfigManager(path).Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s: ok\n", path)
			for _, t := range cfg.Host.Tiles {
				dt := t.DataType
				if dt == "" {
					dt = "short_text"
				}
				_, _ = fmt.Fprintf(out, "  tile %d: %s (%s)\n", t.ID, t.Kind, dt)
			}
			return nil
		},
	}
}
