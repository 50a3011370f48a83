// ABOUTME: colony manages a password-encrypted keystore of BLS pod keys and one wallet key.
// ABOUTME: Root command wiring: config file, shared flags, logging and the app lifecycle.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zettawatt/colony/cmd/internal/appcli"
)

const passwordEnv = "COLONY_PASSWORD"

type cli struct {
	cfg      *Config
	rc       appcli.RuntimeConfig
	password string
	logLevel string
	log      *logrus.Logger
	console  *console
	out      io.Writer
}

func main() {
	root := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, console: newConsole(in, errOut)}

	cfg, cfgErr := LoadConfig()
	if cfgErr == nil {
		c.cfg = cfg
		c.rc = cfg.Runtime()
		c.logLevel = cfg.LogLevel
	}

	root := &cobra.Command{
		Use:           "colony",
		Short:         "colony keystore for pod and wallet keys",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cfgErr != nil {
				return cfgErr
			}
			cmd.SetOut(out)
			cmd.SetErr(errOut)
			log := logrus.New()
			log.SetOutput(errOut)
			level, err := logrus.ParseLevel(c.logLevel)
			if err != nil {
				return fmt.Errorf("log level: %w", err)
			}
			log.SetLevel(level)
			c.log = log
			return nil
		},
	}
	c.rc.BindFlags(root.PersistentFlags())
	root.PersistentFlags().StringVar(&c.password, "password", "", "keystore password (default $"+passwordEnv+" or prompt)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", c.logLevel, "log level (debug, info, warning, error)")

	root.AddCommand(
		c.mnemonicCmd(),
		c.initCmd(),
		c.importKeyCmd(),
		c.podCmd(),
		c.walletCmd(),
		c.showMnemonicCmd(),
		c.passwdCmd(),
		c.checkCmd(),
		c.inspectCmd(),
		c.configCmd(),
	)
	return root
}

// withApp opens the app for the duration of fn.
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, app *appcli.App) error) error {
	app, err := appcli.NewApp(c.rc.Options(c.log))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			c.log.WithError(cerr).Warn("close app")
		}
	}()
	return fn(cmd.Context(), app)
}

// unlocked opens the app and unlocks the keystore before running fn. The
// password used is handed to fn so mutations can be saved under it.
func (c *cli) unlocked(cmd *cobra.Command, fn func(ctx context.Context, app *appcli.App, password string) error) error {
	return c.withApp(cmd, func(ctx context.Context, app *appcli.App) error {
		if !app.KeystoreExists() {
			return fmt.Errorf("no keystore at %s; run 'colony init' first", app.KeystorePath())
		}
		password, err := c.resolvePassword(false)
		if err != nil {
			return err
		}
		if err := app.Unlock(ctx, password); err != nil {
			return err
		}
		return fn(ctx, app, password)
	})
}

// resolvePassword takes --password, then $COLONY_PASSWORD, then a prompt.
func (c *cli) resolvePassword(confirm bool) (string, error) {
	if c.password != "" {
		return c.password, nil
	}
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}
	return c.console.promptPassword("Keystore password", confirm)
}

func (c *cli) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}
