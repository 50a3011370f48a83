package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zettawatt/colony/cmd/colony/internal/inspect"
	"github.com/zettawatt/colony/cmd/internal/appcli"
	"github.com/zettawatt/colony/hd"
)

func (c *cli) mnemonicCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mnemonic",
		Short: "Generate or check recovery phrases without touching the keystore",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "new",
		Short: "Print a fresh 12-word recovery phrase",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			m, err := hd.NewMnemonic()
			if err != nil {
				return err
			}
			defer m.Wipe()
			c.printf("%s\n", m.String())
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Check a recovery phrase read from input",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			phrase, err := c.readPhrase()
			if err != nil {
				return err
			}
			if !hd.ValidateMnemonic(phrase) {
				return hd.ErrInvalidMnemonic
			}
			c.printf("valid\n")
			return nil
		},
	})
	return cmd
}

// readPhrase reads a recovery phrase without echo on a terminal. Phrases
// are never taken from argv.
func (c *cli) readPhrase() (string, error) {
	phrase, err := c.console.readSecret("Recovery phrase: ")
	return string(phrase), err
}

func (c *cli) initCmd() *cobra.Command {
	var (
		generate bool
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a keystore from a recovery phrase read from input, or a new one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var phrase string
			if generate {
				m, err := hd.NewMnemonic()
				if err != nil {
					return err
				}
				phrase = m.String()
				m.Wipe()
			}
			if phrase == "" {
				var err error
				if phrase, err = c.readPhrase(); err != nil {
					return err
				}
			}
			if !hd.ValidateMnemonic(phrase) {
				return hd.ErrInvalidMnemonic
			}
			return c.withApp(cmd, func(ctx context.Context, app *appcli.App) error {
				if !force && app.KeystoreExists() {
					return fmt.Errorf("%w at %s; pass --force to replace it", appcli.ErrKeystoreExists, app.KeystorePath())
				}
				password, err := c.resolvePassword(true)
				if err != nil {
					return err
				}
				if err := app.Init(ctx, phrase, password, force); err != nil {
					return err
				}
				if generate {
					c.printf("Write down this recovery phrase:\n\n  %s\n\n", phrase)
				}
				c.printf("Keystore created at %s\n", app.KeystorePath())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&generate, "generate", false, "generate a new recovery phrase")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing keystore")
	return cmd
}

func (c *cli) importKeyCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "import-key",
		Short: "Create a keystore from a raw hex master secret (no recovery phrase)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *appcli.App) error {
				if !force && app.KeystoreExists() {
					return fmt.Errorf("%w at %s; pass --force to replace it", appcli.ErrKeystoreExists, app.KeystorePath())
				}
				key, err := c.console.readSecret("Master secret (hex): ")
				if err != nil {
					return err
				}
				password, err := c.resolvePassword(true)
				if err != nil {
					return err
				}
				if err := app.ImportKey(ctx, string(key), password, force); err != nil {
					return err
				}
				c.printf("Keystore created at %s\n", app.KeystorePath())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing keystore")
	return cmd
}

func (c *cli) showMnemonicCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-mnemonic",
		Short: "Print the recovery phrase of the keystore",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.unlocked(cmd, func(ctx context.Context, app *appcli.App, _ string) error {
				phrase, err := app.Mnemonic(ctx)
				if err != nil {
					return err
				}
				c.printf("%s\n", phrase)
				return nil
			})
		},
	}
}

func (c *cli) passwdCmd() *cobra.Command {
	var newPassword string
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Re-encrypt the keystore under a new password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.unlocked(cmd, func(ctx context.Context, app *appcli.App, _ string) error {
				next := newPassword
				if next == "" {
					var err error
					if next, err = c.console.promptPassword("New keystore password", true); err != nil {
						return err
					}
				}
				if err := app.ChangePassword(ctx, next); err != nil {
					return err
				}
				c.printf("Password changed\n")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&newPassword, "new-password", "", "new keystore password (default prompt)")
	return cmd
}

func (c *cli) checkCmd() *cobra.Command {
	var repair bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare the metadata store with the keystore",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.unlocked(cmd, func(ctx context.Context, app *appcli.App, _ string) error {
				conflicts, err := app.CheckMetadata(ctx)
				if err != nil {
					return err
				}
				for _, cf := range conflicts {
					c.printf("%s: %s\n", cf.Kind, cf.Detail)
				}
				if len(conflicts) == 0 {
					c.printf("ok\n")
					return nil
				}
				if !repair {
					return fmt.Errorf("%d metadata conflicts; rerun with --repair", len(conflicts))
				}
				n, err := app.RepairMetadata(ctx)
				if err != nil {
					return err
				}
				c.printf("repaired %d\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&repair, "repair", false, "rewrite the metadata store to match the keystore")
	return cmd
}

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or write the CLI configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			state := ""
			if !ConfigExists() {
				state = " (not written; defaults and environment only)"
			}
			c.printf("config:   %s%s\nkeystore: %s\nmeta db:  %s\n", ConfigPath(), state, c.rc.KeystorePath, c.rc.MetaDBPath)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the current settings to the config file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := *c.cfg
			cfg.Keystore = c.rc.KeystorePath
			cfg.MetaDB = c.rc.MetaDBPath
			cfg.KDFMemoryMB = c.rc.KDFMemoryMB
			cfg.KDFTime = c.rc.KDFTime
			cfg.KDFThreads = c.rc.KDFThreads
			cfg.LogLevel = c.logLevel
			if err := SaveConfig(&cfg); err != nil {
				return err
			}
			c.printf("Config written to %s\n", ConfigPath())
			return nil
		},
	})
	return cmd
}

func (c *cli) inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show keystore header and metadata without the password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := inspect.Keystore(c.rc.KeystorePath)
			if err != nil {
				return err
			}
			c.printf("keystore: %s\nversion:  %d\nsize:     %d bytes\nkdf:      argon2id memory=%dMiB time=%d threads=%d\n",
				c.rc.KeystorePath, info.Version, info.Size, info.KDF.MemoryMB, info.KDF.Time, info.KDF.Threads)

			insp, err := inspect.Open(c.rc.MetaDBPath)
			if err != nil {
				c.log.WithError(err).Debug("no metadata store")
				return nil
			}
			defer func() {
				_ = insp.Close()
			}()
			s, err := insp.Summary(cmd.Context())
			if err != nil {
				return err
			}
			c.printf("vault id: %s\npods:     %d (highest index %d)\nwallet:   %s\n", s.VaultID, s.Pods, s.HighestIndex, orNone(s.WalletAddress))
			return nil
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
