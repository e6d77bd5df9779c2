package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"pixelarena/store"
)

// newPlayersCmd 管理可选的玩家存储；它与在线名单无关
func newPlayersCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "players",
		Short: "Inspect or prune the optional player store.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored players ordered by creation time.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			rows, err := s.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tX\tY\tCOLOR\tLAST UPDATE")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%.0f\t%.0f\t%s\t%s\n", r.ID, r.Name, r.X, r.Y, r.Color, r.LastUpdate.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: fmt.Sprintf("Delete players not updated for %s.", store.StaleAfter),
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.DeleteStale(cmd.Context(), store.StaleAfter)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d inactive players\n", n)
			return nil
		},
	})

	return cmd
}

func openStore(ctx context.Context, cfg *Config) (store.PlayerStore, error) {
	if cfg.redis != "" {
		return store.OpenRedis(ctx, cfg.redis)
	}
	if cfg.db == "" {
		return nil, fmt.Errorf("no player store configured: set --db or --redis")
	}
	return store.OpenSQLite(ctx, cfg.db)
}
