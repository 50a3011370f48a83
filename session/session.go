// ABOUTME: Manager owns one vault on a single goroutine and models locking as a state, not a decoy vault.
// ABOUTME: Callers send operations as messages, so no lock is ever held across a blocking call.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/zettawatt/colony/hd"
	"github.com/zettawatt/colony/vault"
)

var (
	ErrLocked     = errors.New("keystore locked")
	ErrClosed     = errors.New("session closed")
	ErrNoMnemonic = errors.New("keystore has no mnemonic")
	ErrUnknownPod = errors.New("unknown pod")
)

// Config configures a Manager.
type Config struct {
	// Path is the keystore file used by Unlock and Save.
	Path string
	// KDF hardness for Save. Zero uses vault.DefaultKDFParams.
	KDF vault.KDFParams
	// Logger is optional; a logrus.New() logger is used when nil.
	Logger *logrus.Logger
}

// Manager serializes every vault operation onto one goroutine. The held
// state is either locked (no vault in memory) or unlocked.
type Manager struct {
	cfg  Config
	log  *logrus.Logger
	reqs chan request
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

// request runs on the loop goroutine and delivers its own result.
type request func(*state)

type result[T any] struct {
	val T
	err error
}

// state is only touched by the loop goroutine.
type state struct {
	vault *vault.Vault
}

func (s *state) unlocked() (*vault.Vault, error) {
	if s.vault == nil {
		return nil, ErrLocked
	}
	return s.vault, nil
}

func (s *state) replace(v *vault.Vault) {
	if s.vault != nil {
		s.vault.Wipe()
	}
	s.vault = v
}

// New starts a Manager in the locked state.
func New(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.KDF == (vault.KDFParams{}) {
		cfg.KDF = vault.DefaultKDFParams()
	}
	m := &Manager{
		cfg:  cfg,
		log:  cfg.Logger,
		reqs: make(chan request),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go m.loop()
	return m
}

func (m *Manager) loop() {
	defer close(m.done)
	var st state
	for {
		select {
		case req := <-m.reqs:
			req(&st)
		case <-m.quit:
			st.replace(nil)
			return
		}
	}
}

// call runs fn on the loop goroutine and returns its result. The result
// travels only through the buffered reply channel, so a caller that gives up
// on a cancelled ctx never shares memory with the running fn. An fn already
// handed to the loop still runs to completion.
func call[T any](ctx context.Context, m *Manager, fn func(*state) (T, error)) (T, error) {
	reply := make(chan result[T], 1)
	req := func(s *state) {
		val, err := fn(s)
		reply <- result[T]{val: val, err: err}
	}

	var zero T
	select {
	case m.reqs <- req:
	case <-m.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (m *Manager) do(ctx context.Context, fn func(*state) error) error {
	_, err := call(ctx, m, func(s *state) (struct{}, error) {
		return struct{}{}, fn(s)
	})
	return err
}

// within runs fn on the loop goroutine like call, but once the loop has
// accepted it the caller waits for completion regardless of ctx: fn is caller
// code that may write caller memory.
func (m *Manager) within(ctx context.Context, fn func(*state) error) error {
	reply := make(chan error, 1)
	req := func(s *state) { reply <- fn(s) }
	select {
	case m.reqs <- req:
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-reply
}

// Close wipes any unlocked vault and stops the loop. Later calls return ErrClosed.
func (m *Manager) Close() {
	m.once.Do(func() { close(m.quit) })
	<-m.done
}

// Create replaces the held vault with one built from phrase and unlocks it.
func (m *Manager) Create(ctx context.Context, phrase string) error {
	return m.do(ctx, func(s *state) error {
		v, err := vault.FromMnemonic(phrase)
		if err != nil {
			return err
		}
		s.replace(v)
		m.log.WithField("vault_id", v.ID()).Info("keystore created from mnemonic")
		return nil
	})
}

// Import replaces the held vault with one built from a raw master key.
func (m *Manager) Import(ctx context.Context, keyHex string) error {
	return m.do(ctx, func(s *state) error {
		v, err := vault.FromSecretKeyHex(keyHex)
		if err != nil {
			return err
		}
		s.replace(v)
		m.log.WithField("vault_id", v.ID()).Info("keystore created from secret key")
		return nil
	})
}

// Unlock loads the keystore file with password.
func (m *Manager) Unlock(ctx context.Context, password string) error {
	return m.do(ctx, func(s *state) error {
		v, err := vault.LoadFile(m.cfg.Path, password)
		if err != nil {
			var openErr *vault.OpenError
			if errors.As(err, &openErr) {
				m.log.WithFields(logrus.Fields{
					"path":   m.cfg.Path,
					"reason": openErr.Reason,
				}).Warn("keystore open failed")
			}
			return err
		}
		s.replace(v)
		m.log.WithFields(logrus.Fields{
			"path":     m.cfg.Path,
			"vault_id": v.ID(),
			"pods":     v.PodCount(),
		}).Info("keystore unlocked")
		return nil
	})
}

// Save writes the unlocked vault to the keystore file under password.
func (m *Manager) Save(ctx context.Context, password string) error {
	return m.do(ctx, func(s *state) error {
		v, err := s.unlocked()
		if err != nil {
			return err
		}
		if err := v.SaveFileWith(m.cfg.Path, password, m.cfg.KDF); err != nil {
			return err
		}
		m.log.WithField("path", m.cfg.Path).Info("keystore written")
		return nil
	})
}

// Lock wipes the vault from memory. Locking twice is not an error.
func (m *Manager) Lock(ctx context.Context) error {
	return m.do(ctx, func(s *state) error {
		if s.vault != nil {
			s.replace(nil)
			m.log.Info("keystore locked")
		}
		return nil
	})
}

// Locked reports whether no vault is held.
func (m *Manager) Locked(ctx context.Context) (bool, error) {
	return call(ctx, m, func(s *state) (bool, error) {
		return s.vault == nil, nil
	})
}

// ID returns the held vault's identifier.
func (m *Manager) ID(ctx context.Context) (string, error) {
	return call(ctx, m, func(s *state) (string, error) {
		v, err := s.unlocked()
		if err != nil {
			return "", err
		}
		return v.ID(), nil
	})
}

// AddPod derives and inserts the pod at index.
func (m *Manager) AddPod(ctx context.Context, index uint64) (hd.PublicKey, error) {
	return call(ctx, m, func(s *state) (hd.PublicKey, error) {
		v, err := s.unlocked()
		if err != nil {
			return hd.PublicKey{}, err
		}
		pub, _ := v.AddPod(hd.Index(index))
		m.log.WithFields(logrus.Fields{"index": index, "pod": pub.Hex()}).Debug("pod added")
		return pub, nil
	})
}

// ImportPod inserts a raw pod key that was not derived from the master.
func (m *Manager) ImportPod(ctx context.Context, secretHex string) (hd.PublicKey, error) {
	return call(ctx, m, func(s *state) (hd.PublicKey, error) {
		v, err := s.unlocked()
		if err != nil {
			return hd.PublicKey{}, err
		}
		pub, err := v.ImportPod(secretHex)
		if err != nil {
			return hd.PublicKey{}, err
		}
		m.log.WithField("pod", pub.Hex()).Debug("pod imported")
		return pub, nil
	})
}

// Pods lists the pod public keys.
func (m *Manager) Pods(ctx context.Context) ([]hd.PublicKey, error) {
	return call(ctx, m, func(s *state) ([]hd.PublicKey, error) {
		v, err := s.unlocked()
		if err != nil {
			return nil, err
		}
		return v.Pods(), nil
	})
}

// SetWallet replaces the wallet secret and returns the new address.
func (m *Manager) SetWallet(ctx context.Context, keyHex string) (string, error) {
	return call(ctx, m, func(s *state) (string, error) {
		v, err := s.unlocked()
		if err != nil {
			return "", err
		}
		if err := v.SetWallet(keyHex); err != nil {
			return "", err
		}
		addr, err := v.WalletAddress()
		if err != nil {
			return "", err
		}
		m.log.WithField("address", addr).Info("wallet set")
		return addr, nil
	})
}

// WalletAddress returns the current wallet address.
func (m *Manager) WalletAddress(ctx context.Context) (string, error) {
	return call(ctx, m, func(s *state) (string, error) {
		v, err := s.unlocked()
		if err != nil {
			return "", err
		}
		return v.WalletAddress()
	})
}

// Mnemonic returns the recovery phrase for backup display.
func (m *Manager) Mnemonic(ctx context.Context) (string, error) {
	return call(ctx, m, func(s *state) (string, error) {
		v, err := s.unlocked()
		if err != nil {
			return "", err
		}
		if !v.HasMnemonic() {
			return "", ErrNoMnemonic
		}
		return v.Mnemonic(), nil
	})
}

// WithPodKey runs fn with the secret key of pod pub on the session
// goroutine. fn must not keep the key or call back into the Manager. Once fn
// has been scheduled WithPodKey returns only after it finishes.
func (m *Manager) WithPodKey(ctx context.Context, pub hd.PublicKey, fn func(hd.SecretKey) error) error {
	return m.within(ctx, func(s *state) error {
		v, err := s.unlocked()
		if err != nil {
			return err
		}
		sk, ok := v.PodSecretKey(pub)
		if !ok {
			return fmt.Errorf("%w %s", ErrUnknownPod, pub.Hex())
		}
		defer sk.Wipe()
		return fn(sk)
	})
}

// WithWallet runs fn with the wallet handle on the session goroutine. The
// same restrictions as WithPodKey apply.
func (m *Manager) WithWallet(ctx context.Context, fn func(*vault.Wallet) error) error {
	return m.within(ctx, func(s *state) error {
		v, err := s.unlocked()
		if err != nil {
			return err
		}
		w, err := v.Wallet()
		if err != nil {
			return err
		}
		return fn(w)
	})
}
