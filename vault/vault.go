// ABOUTME: Vault holds the mnemonic, master secret, pod keys and wallet secret of one identity.
// ABOUTME: A Vault is single-owner; callers synchronize access themselves.
package vault

import (
	"fmt"
	"sort"

	"github.com/oklog/ulid/v2"

	"github.com/zettawatt/colony/hd"
)

// Vault is the in-memory secret state for one identity. The zero value is
// not usable; construct one with FromMnemonic, FromSecretKeyHex or Deserialize.
type Vault struct {
	id        ulid.ULID
	mnemonic  hd.Mnemonic
	master    hd.MasterSecret
	pods      map[hd.PublicKey]hd.SecretKey
	walletKey []byte
	wallet    *Wallet
}

// FromMnemonic validates phrase, derives the master secret and the first pod
// at index 0. The wallet is left unset; call SetWallet before using it.
func FromMnemonic(phrase string) (*Vault, error) {
	m, err := hd.ParseMnemonic(phrase)
	if err != nil {
		return nil, err
	}
	master, err := hd.MasterSecretFromMnemonic(m)
	if err != nil {
		m.Wipe()
		return nil, fmt.Errorf("derive master secret: %w", err)
	}
	return newVault(m, master), nil
}

// FromSecretKeyHex builds a vault around an imported raw master key. Such a
// vault has no mnemonic to display.
func FromSecretKeyHex(keyHex string) (*Vault, error) {
	sk, err := hd.SecretKeyFromHex(keyHex)
	if err != nil {
		return nil, err
	}
	return newVault(hd.Mnemonic{}, hd.MasterSecret(sk)), nil
}

func newVault(m hd.Mnemonic, master hd.MasterSecret) *Vault {
	v := &Vault{
		id:       ulid.Make(),
		mnemonic: m,
		master:   master,
		pods:     make(map[hd.PublicKey]hd.SecretKey),
	}
	v.AddPod(hd.Index(0))
	return v
}

// ID returns the vault's stable identifier.
func (v *Vault) ID() string { return v.id.String() }

// Mnemonic returns the recovery phrase, or "" for a vault built from a raw key.
func (v *Vault) Mnemonic() string { return v.mnemonic.String() }

// HasMnemonic reports whether the vault was built from a recovery phrase.
func (v *Vault) HasMnemonic() bool { return !v.mnemonic.IsZero() }

// MasterPublicKey returns the public key of the master secret.
func (v *Vault) MasterPublicKey() hd.PublicKey { return v.master.PublicKey() }

// AddPod derives the pod key at index and inserts it. Adding an index that is
// already present leaves the pod map unchanged.
func (v *Vault) AddPod(index hd.DerivationIndex) (hd.PublicKey, hd.SecretKey) {
	return v.insertPod(hd.DeriveChild(v.master, index))
}

// ImportPod inserts a pod key supplied as raw hex rather than derived.
func (v *Vault) ImportPod(secretHex string) (hd.PublicKey, error) {
	sk, err := hd.SecretKeyFromHex(secretHex)
	if err != nil {
		return hd.PublicKey{}, err
	}
	pub, _ := v.insertPod(sk)
	return pub, nil
}

func (v *Vault) insertPod(sk hd.SecretKey) (hd.PublicKey, hd.SecretKey) {
	pub := sk.PublicKey()
	if existing, ok := v.pods[pub]; ok {
		if existing != sk {
			panic(fmt.Sprintf("vault: two secret keys share public key %s", pub.Hex()))
		}
		return pub, existing
	}
	v.pods[pub] = sk
	return pub, sk
}

// Pods returns every pod public key in byte order.
func (v *Vault) Pods() []hd.PublicKey {
	out := make([]hd.PublicKey, 0, len(v.pods))
	for pub := range v.pods {
		out = append(out, pub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

// PodCount returns the number of pods in the vault.
func (v *Vault) PodCount() int { return len(v.pods) }

// HasPod reports whether pub belongs to a pod in the vault.
func (v *Vault) HasPod(pub hd.PublicKey) bool {
	_, ok := v.pods[pub]
	return ok
}

// PodSecretKey returns the signing key of a pod. It is meant for the one
// collaborator that signs pod updates.
func (v *Vault) PodSecretKey(pub hd.PublicKey) (hd.SecretKey, bool) {
	sk, ok := v.pods[pub]
	return sk, ok
}

// SetWallet replaces the wallet secret with keyHex, a 64-digit hex
// secp256k1 key. Any Wallet obtained earlier is wiped and must be re-fetched.
func (v *Vault) SetWallet(keyHex string) error {
	key, err := normalizeWalletKey(keyHex)
	if err != nil {
		return err
	}
	w, err := newWallet(key)
	if err != nil {
		wipe(key)
		return err
	}
	v.clearWallet()
	v.walletKey = key
	v.wallet = w
	return nil
}

func (v *Vault) clearWallet() {
	wipe(v.walletKey)
	v.walletKey = nil
	if v.wallet != nil {
		v.wallet.wipe()
		v.wallet = nil
	}
}

// HasWallet reports whether a wallet secret has been set.
func (v *Vault) HasWallet() bool { return v.wallet != nil }

// Wallet returns the current wallet handle.
func (v *Vault) Wallet() (*Wallet, error) {
	if v.wallet == nil {
		return nil, ErrNoWallet
	}
	return v.wallet, nil
}

// WalletAddress returns the checksummed address of the current wallet.
func (v *Vault) WalletAddress() (string, error) {
	w, err := v.Wallet()
	if err != nil {
		return "", err
	}
	return w.AddressHex(), nil
}

// WalletKeyHex returns the wallet secret as lower-case hex without prefix.
func (v *Vault) WalletKeyHex() (string, error) {
	if v.wallet == nil {
		return "", ErrNoWallet
	}
	return string(v.walletKey), nil
}

// Wipe overwrites every secret the vault holds. The vault is unusable afterwards.
func (v *Vault) Wipe() {
	v.mnemonic.Wipe()
	v.master.Wipe()
	for pub := range v.pods {
		v.pods[pub] = hd.SecretKey{}
		delete(v.pods, pub)
	}
	v.clearWallet()
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
