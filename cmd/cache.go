package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/aiscore/internal/cache"
	"github.com/signalnine/aiscore/internal/config"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the reviewer cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached reviewer and market entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			store := cache.New(cfg.Cache.Dir, 0)
			if !store.Enabled() {
				fmt.Fprintln(cmd.OutOrStdout(), "Caching is disabled; nothing to clear")
				return nil
			}
			if err := store.Clear(); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared cache at %s\n", store.Dir())
			return nil
		},
	})
	return cmd
}
