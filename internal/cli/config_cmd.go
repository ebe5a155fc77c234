package cli

import (
	"fmt"
	"os"

	"pass-tui/internal/config"

	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	var pathOnly bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pathOnly {
				path := app.ConfigPath
				if path == "" {
					p, err := config.Path(os.Getenv)
					if err != nil {
						return err
					}
					path = p
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			}
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			return cfg.Encode(cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&pathOnly, "path", false, "Print the config file location instead")
	return cmd
}
