package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zettawatt/colony/cmd/internal/appcli"
	"github.com/zettawatt/colony/hd"
)

func (c *cli) podCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pod",
		Short: "Manage derived pod keys",
	}

	var index int64
	add := &cobra.Command{
		Use:   "add",
		Short: "Derive the next pod key, or the one at --index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.unlocked(cmd, func(ctx context.Context, app *appcli.App, password string) error {
				var (
					i   uint64
					pub hd.PublicKey
					err error
				)
				if index >= 0 {
					i = uint64(index)
					pub, err = app.AddPodAt(ctx, i, password)
				} else {
					i, pub, err = app.AddPod(ctx, password)
				}
				if err != nil {
					return err
				}
				c.printf("%d %s\n", i, pub.Hex())
				return nil
			})
		},
	}
	add.Flags().Int64Var(&index, "index", -1, "explicit derivation index")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "import",
		Short: "Add a raw pod secret key (hex); imported pods are not indexed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.unlocked(cmd, func(ctx context.Context, app *appcli.App, password string) error {
				secret, err := c.console.readSecret("Pod secret key (hex): ")
				if err != nil {
					return err
				}
				pub, err := app.ImportPod(ctx, string(secret), password)
				if err != nil {
					return err
				}
				c.printf("%s\n", pub.Hex())
				return nil
			})
		},
	})

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded pods; does not need the password unless --all",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all {
				return c.unlocked(cmd, func(ctx context.Context, app *appcli.App, _ string) error {
					pods, err := app.KeystorePods(ctx)
					if err != nil {
						return err
					}
					for _, p := range pods {
						c.printf("%s\n", p.Hex())
					}
					return nil
				})
			}
			return c.withApp(cmd, func(ctx context.Context, app *appcli.App) error {
				pods, err := app.Pods(ctx)
				if err != nil {
					return err
				}
				for _, p := range pods {
					c.printf("%d %s\n", p.Index, p.PublicKey)
				}
				return nil
			})
		},
	}
	list.Flags().BoolVar(&all, "all", false, "list every pod in the keystore, imported ones included")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "sign <public-key> <message>",
		Short: "Sign a message with a pod key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := hd.PublicKeyFromHex(args[0])
			if err != nil {
				return err
			}
			return c.unlocked(cmd, func(ctx context.Context, app *appcli.App, _ string) error {
				var sig []byte
				err := app.Session().WithPodKey(ctx, pub, func(sk hd.SecretKey) error {
					sig = sk.Sign([]byte(args[1]))
					return nil
				})
				if err != nil {
					return err
				}
				c.printf("%s\n", hex.EncodeToString(sig))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "verify <public-key> <message> <signature>",
		Short: "Verify a pod signature",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			pub, err := hd.PublicKeyFromHex(args[0])
			if err != nil {
				return err
			}
			sig, err := hex.DecodeString(args[2])
			if err != nil {
				return fmt.Errorf("signature: %w", err)
			}
			if !pub.Verify([]byte(args[1]), sig) {
				return fmt.Errorf("signature does not verify")
			}
			c.printf("ok\n")
			return nil
		},
	})
	return cmd
}
