package main

import (
	"context"
	"encoding/hex"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/zettawatt/colony/cmd/internal/appcli"
	"github.com/zettawatt/colony/vault"
)

func (c *cli) walletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage the external wallet key",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Store a wallet private key (64 hex digits), replacing any previous one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.unlocked(cmd, func(ctx context.Context, app *appcli.App, password string) error {
				key, err := c.console.readSecret("Wallet private key (hex): ")
				if err != nil {
					return err
				}
				addr, err := app.SetWallet(ctx, string(key), password)
				if err != nil {
					return err
				}
				c.printf("%s\n", addr)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the wallet address; does not need the password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *appcli.App) error {
				addr, err := app.WalletAddress(ctx)
				if err != nil {
					return err
				}
				c.printf("%s\n", addr)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "sign <message>",
		Short: "Sign the keccak256 hash of a message with the wallet key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			digest := crypto.Keccak256([]byte(args[0]))
			return c.unlocked(cmd, func(ctx context.Context, app *appcli.App, _ string) error {
				var sig []byte
				err := app.Session().WithWallet(ctx, func(w *vault.Wallet) error {
					var err error
					sig, err = w.Sign(digest)
					return err
				})
				if err != nil {
					return err
				}
				c.printf("%s\n", hex.EncodeToString(sig))
				return nil
			})
		},
	})
	return cmd
}
