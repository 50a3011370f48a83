// ABOUTME: Runtime glue shared by colony binaries: one session plus the metadata store.
// ABOUTME: Every mutation is written back to the keystore file before it is reported.
package appcli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/zettawatt/colony/hd"
	"github.com/zettawatt/colony/session"
	"github.com/zettawatt/colony/vault"
)

// ErrKeystoreExists is returned by Init and ImportKey when a keystore file is
// already present and overwriting was not requested.
var ErrKeystoreExists = errors.New("keystore already exists")

// Options wires shared CLI runtime bits.
type Options struct {
	KeystorePath string
	MetaDBPath   string
	KDF          vault.KDFParams
	Logger       *logrus.Logger
}

// App glues a CLI to the session and the metadata store.
type App struct {
	opts    Options
	log     *logrus.Logger
	session *session.Manager
	store   *vault.Store
}

// NewApp opens the metadata store and starts a locked session.
func NewApp(opts Options) (*App, error) {
	normalized, err := normalizeOptions(opts)
	if err != nil {
		return nil, err
	}
	store, err := vault.OpenStore(normalized.MetaDBPath)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}
	return &App{
		opts:  normalized,
		log:   normalized.Logger,
		store: store,
		session: session.New(session.Config{
			Path:   normalized.KeystorePath,
			KDF:    normalized.KDF,
			Logger: normalized.Logger,
		}),
	}, nil
}

// Close wipes the session and releases the store.
func (a *App) Close() error {
	a.session.Close()
	return a.store.Close()
}

// Session exposes the underlying manager for signing callbacks.
func (a *App) Session() *session.Manager { return a.session }

// Store exposes the metadata store.
func (a *App) Store() *vault.Store { return a.store }

// KeystorePath is the resolved keystore file location.
func (a *App) KeystorePath() string { return a.opts.KeystorePath }

// KeystoreExists reports whether a keystore file is present.
func (a *App) KeystoreExists() bool {
	_, err := os.Stat(a.opts.KeystorePath)
	return err == nil
}

// Init creates a keystore from phrase, writes it under password and resets
// the metadata store to match.
func (a *App) Init(ctx context.Context, phrase, password string, overwrite bool) error {
	if !overwrite && a.KeystoreExists() {
		return ErrKeystoreExists
	}
	if err := a.session.Create(ctx, phrase); err != nil {
		return err
	}
	return a.persistNew(ctx, password)
}

// ImportKey creates a keystore from a raw master secret.
func (a *App) ImportKey(ctx context.Context, keyHex, password string, overwrite bool) error {
	if !overwrite && a.KeystoreExists() {
		return ErrKeystoreExists
	}
	if err := a.session.Import(ctx, keyHex); err != nil {
		return err
	}
	return a.persistNew(ctx, password)
}

func (a *App) persistNew(ctx context.Context, password string) error {
	if err := a.session.Save(ctx, password); err != nil {
		return err
	}
	pods, err := a.session.Pods(ctx)
	if err != nil {
		return err
	}
	id, err := a.session.ID(ctx)
	if err != nil {
		return err
	}
	if err := a.store.Reset(ctx); err != nil {
		return err
	}
	// A fresh vault holds exactly pod 0.
	if err := a.store.RecordPod(ctx, 0, pods[0]); err != nil {
		return err
	}
	return a.store.SetState(ctx, vault.StateVaultID, id)
}

// Unlock opens the keystore and logs any drift between it and the store.
func (a *App) Unlock(ctx context.Context, password string) error {
	if err := a.session.Unlock(ctx, password); err != nil {
		return err
	}
	conflicts, err := a.CheckMetadata(ctx)
	if err != nil {
		return err
	}
	for _, c := range conflicts {
		a.log.WithFields(logrus.Fields{"kind": c.Kind, "detail": c.Detail}).Warn("metadata store out of date")
	}
	return nil
}

// Lock wipes the unlocked vault.
func (a *App) Lock(ctx context.Context) error { return a.session.Lock(ctx) }

// AddPod derives the next unused pod index, saves, and records it.
func (a *App) AddPod(ctx context.Context, password string) (uint64, hd.PublicKey, error) {
	index, err := a.store.NextPodIndex(ctx)
	if err != nil {
		return 0, hd.PublicKey{}, err
	}
	pub, err := a.AddPodAt(ctx, index, password)
	return index, pub, err
}

// AddPodAt derives the pod at an explicit index.
func (a *App) AddPodAt(ctx context.Context, index uint64, password string) (hd.PublicKey, error) {
	pub, err := a.session.AddPod(ctx, index)
	if err != nil {
		return hd.PublicKey{}, err
	}
	if err := a.session.Save(ctx, password); err != nil {
		return hd.PublicKey{}, err
	}
	if err := a.store.RecordPod(ctx, index, pub); err != nil {
		return hd.PublicKey{}, err
	}
	return pub, nil
}

// ImportPod inserts a raw pod key and saves. Imported pods have no
// derivation index, so they are not recorded in the store and Pods does not
// list them; KeystorePods does.
func (a *App) ImportPod(ctx context.Context, secretHex, password string) (hd.PublicKey, error) {
	pub, err := a.session.ImportPod(ctx, secretHex)
	if err != nil {
		return hd.PublicKey{}, err
	}
	if err := a.session.Save(ctx, password); err != nil {
		return hd.PublicKey{}, err
	}
	return pub, nil
}

// KeystorePods lists every pod held by the unlocked vault, imported ones included.
func (a *App) KeystorePods(ctx context.Context) ([]hd.PublicKey, error) {
	return a.session.Pods(ctx)
}

// Pods lists recorded pod indices. It does not need the vault unlocked.
func (a *App) Pods(ctx context.Context) ([]vault.PodRecord, error) {
	return a.store.ListPods(ctx)
}

// SetWallet replaces the wallet key, saves, and remembers the address.
func (a *App) SetWallet(ctx context.Context, keyHex, password string) (string, error) {
	addr, err := a.session.SetWallet(ctx, keyHex)
	if err != nil {
		return "", err
	}
	if err := a.session.Save(ctx, password); err != nil {
		return "", err
	}
	if err := a.store.SetState(ctx, vault.StateWalletAddress, addr); err != nil {
		return "", err
	}
	return addr, nil
}

// WalletAddress returns the last recorded wallet address, without unlocking.
func (a *App) WalletAddress(ctx context.Context) (string, error) {
	addr, err := a.store.GetState(ctx, vault.StateWalletAddress, "")
	if err != nil {
		return "", err
	}
	if addr == "" {
		return "", vault.ErrNoWallet
	}
	return addr, nil
}

// Mnemonic returns the recovery phrase of the unlocked vault.
func (a *App) Mnemonic(ctx context.Context) (string, error) {
	return a.session.Mnemonic(ctx)
}

// ChangePassword rewrites the unlocked vault under a new password.
func (a *App) ChangePassword(ctx context.Context, newPassword string) error {
	if newPassword == "" {
		return errors.New("new password must not be empty")
	}
	return a.session.Save(ctx, newPassword)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o700)
}

func normalizeOptions(opts Options) (Options, error) {
	if opts.KeystorePath == "" {
		return opts, errors.New("keystore path required")
	}
	if opts.MetaDBPath == "" {
		opts.MetaDBPath = opts.KeystorePath + ".meta.db"
	}
	if opts.KDF == (vault.KDFParams{}) {
		opts.KDF = vault.DefaultKDFParams()
	}
	if err := opts.KDF.Validate(); err != nil {
		return opts, err
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if err := ensureDir(opts.KeystorePath); err != nil {
		return opts, err
	}
	if err := ensureDir(opts.MetaDBPath); err != nil {
		return opts, err
	}
	return opts, nil
}

func formatIndex(i uint64) string { return strconv.FormatUint(i, 10) }
