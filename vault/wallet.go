package vault

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// walletKeyHexLen is the length of a secp256k1 private key in hex digits.
const walletKeyHexLen = 64

// Wallet is the account handle built from the vault's wallet secret. The
// private key stays inside; collaborators use Address and Sign.
type Wallet struct {
	Address common.Address
	key     *ecdsa.PrivateKey
}

// AddressHex returns the EIP-55 checksummed account address.
func (w *Wallet) AddressHex() string {
	return w.Address.Hex()
}

// Sign signs a 32-byte digest with the account key.
func (w *Wallet) Sign(digest []byte) ([]byte, error) {
	if w.key == nil {
		return nil, ErrNoWallet
	}
	return crypto.Sign(digest, w.key)
}

func (w *Wallet) wipe() {
	if w.key != nil && w.key.D != nil {
		w.key.D.SetInt64(0)
	}
	w.key = nil
}

// normalizeWalletKey strips whitespace and an optional 0x prefix and checks
// the remainder is 64 hex digits. The result is lower-case.
func normalizeWalletKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	if len(s) != walletKeyHexLen {
		return nil, fmt.Errorf("%w: want %d hex digits, got %d", ErrInvalidWalletKey, walletKeyHexLen, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWalletKey, err)
	}
	return []byte(strings.ToLower(s)), nil
}

func newWallet(keyHex []byte) (*Wallet, error) {
	key, err := crypto.HexToECDSA(string(keyHex))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWalletKey, err)
	}
	return &Wallet{
		Address: crypto.PubkeyToAddress(key.PublicKey),
		key:     key,
	}, nil
}
