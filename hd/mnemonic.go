// ABOUTME: BIP39 mnemonic generation, normalization and parsing for the master seed.
// ABOUTME: Phrases are held as wipeable bytes so they can be cleared when a vault is destroyed.
package hd

import (
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

const (
	// MnemonicWords is the only accepted phrase length.
	MnemonicWords = 12

	mnemonicEntropyBits = 128
)

// Mnemonic is a validated, normalized recovery phrase.
type Mnemonic struct {
	phrase []byte
}

// NewMnemonic generates a fresh 12-word phrase.
func NewMnemonic() (Mnemonic, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
	if err != nil {
		return Mnemonic{}, fmt.Errorf("generate entropy: %w", err)
	}
	defer wipe(entropy)

	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return Mnemonic{}, fmt.Errorf("generate mnemonic: %w", err)
	}
	return Mnemonic{phrase: []byte(phrase)}, nil
}

// NormalizeMnemonic lower-cases the phrase and joins its words with single spaces.
func NormalizeMnemonic(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
}

// ValidateMnemonic reports whether phrase is a well-formed 12-word mnemonic
// with a valid checksum. It does not need a vault.
func ValidateMnemonic(phrase string) bool {
	normalized := NormalizeMnemonic(phrase)
	if len(strings.Fields(normalized)) != MnemonicWords {
		return false
	}
	return bip39.IsMnemonicValid(normalized)
}

// ParseMnemonic normalizes and validates phrase.
func ParseMnemonic(phrase string) (Mnemonic, error) {
	if !ValidateMnemonic(phrase) {
		return Mnemonic{}, ErrInvalidMnemonic
	}
	return Mnemonic{phrase: []byte(NormalizeMnemonic(phrase))}, nil
}

// String returns the phrase words separated by single spaces.
func (m Mnemonic) String() string { return string(m.phrase) }

// Bytes returns a copy of the phrase bytes for encoding; wipe it after use.
func (m Mnemonic) Bytes() []byte {
	out := make([]byte, len(m.phrase))
	copy(out, m.phrase)
	return out
}

// Words returns the individual words of the phrase.
func (m Mnemonic) Words() []string { return strings.Fields(string(m.phrase)) }

// IsZero reports whether m holds no phrase.
func (m Mnemonic) IsZero() bool { return len(m.phrase) == 0 }

// Seed returns the 64-byte BIP39 seed for m with an empty passphrase.
// The caller owns the returned slice and should wipe it after use.
func (m Mnemonic) Seed() []byte {
	return bip39.NewSeed(string(m.phrase), "")
}

// Wipe overwrites the phrase bytes. m is unusable afterwards.
func (m *Mnemonic) Wipe() {
	wipe(m.phrase)
	m.phrase = nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
