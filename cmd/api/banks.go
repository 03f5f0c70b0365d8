package main

import (
	"fmt"

	"sme-escrow/internal/adapter/bankdir"
	"sme-escrow/internal/config"
	"sme-escrow/internal/infrastructure/cache"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func newBanksCmd() *cobra.Command {
	banks := &cobra.Command{
		Use:   "banks",
		Short: "Manage the bank code directory used for payouts",
	}
	banks.AddCommand(
		&cobra.Command{
			Use:   "set NAME CODE",
			Short: "Register or replace a bank code",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDirectory(func(d *bankdir.Directory) error {
					if err := d.Set(cmd.Context(), args[0], args[1]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s => %s\n", args[0], args[1])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Add the starter bank codes that are not registered yet",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDirectory(func(d *bankdir.Directory) error {
					n, err := d.Seed(cmd.Context(), bankdir.StarterCodes)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%d bank codes added\n", n)
					return nil
				})
			},
		},
	)
	return banks
}

func withDirectory(fn func(d *bankdir.Directory) error) error {
	cfg := config.Load()
	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer func(r *redis.Client) { _ = r.Close() }(rdb)
	return fn(bankdir.New(rdb))
}
