// ABOUTME: Tests for 12-word BIP39 mnemonic generation, normalization and parsing.
// ABOUTME: Includes the all-abandon test vector seed.
package hd

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

const abandonMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestNewMnemonic(t *testing.T) {
	m, err := NewMnemonic()
	if err != nil {
		t.Fatalf("NewMnemonic failed: %v", err)
	}
	if got := len(m.Words()); got != MnemonicWords {
		t.Fatalf("expected %d words, got %d", MnemonicWords, got)
	}
	if !ValidateMnemonic(m.String()) {
		t.Fatalf("generated mnemonic does not validate: %q", m.String())
	}
	if seed := m.Seed(); len(seed) != 64 {
		t.Fatalf("expected 64 byte seed, got %d", len(seed))
	}
}

func TestAbandonSeedVector(t *testing.T) {
	m, err := ParseMnemonic(abandonMnemonic)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := "5eb00bbddcf069084889a8ab9155568165f5c453ccb85e70811aaed6f6da5fc1" +
		"9a5ac40b389cd370d086206dec8aa6c43daea6690f20ad3d8d48b2d2ce9e38e4"
	if got := hex.EncodeToString(m.Seed()); got != want {
		t.Fatalf("seed = %s, want %s", got, want)
	}
}

func TestNormalizeMnemonic(t *testing.T) {
	messy := "  ABANDON abandon\tabandon abandon  abandon abandon\nabandon abandon abandon Abandon abandon ABOUT "
	if got := NormalizeMnemonic(messy); got != abandonMnemonic {
		t.Fatalf("NormalizeMnemonic = %q", got)
	}

	a, err := ParseMnemonic(messy)
	if err != nil {
		t.Fatalf("parse messy: %v", err)
	}
	b, err := ParseMnemonic(abandonMnemonic)
	if err != nil {
		t.Fatalf("parse clean: %v", err)
	}
	if a.String() != b.String() {
		t.Fatalf("normalized phrases differ: %q vs %q", a.String(), b.String())
	}
	if string(a.Seed()) != string(b.Seed()) {
		t.Fatal("normalized phrases yield different seeds")
	}
}

func TestParseMnemonicInvalid(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"not words":    "invalid words here",
		"bad checksum": strings.Repeat("abandon ", 12),
		"unknown word": strings.Replace(abandonMnemonic, "about", "aboutt", 1),
		"24 words":     strings.Repeat("abandon ", 23) + "art",
	}
	for name, phrase := range cases {
		t.Run(name, func(t *testing.T) {
			if ValidateMnemonic(phrase) {
				t.Fatalf("ValidateMnemonic(%q) = true", phrase)
			}
			if _, err := ParseMnemonic(phrase); !errors.Is(err, ErrInvalidMnemonic) {
				t.Fatalf("expected ErrInvalidMnemonic, got %v", err)
			}
		})
	}
}

func TestMnemonicWipe(t *testing.T) {
	m, err := ParseMnemonic(abandonMnemonic)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	backing := m.phrase
	m.Wipe()
	if !m.IsZero() {
		t.Fatal("mnemonic still set after wipe")
	}
	for i, c := range backing {
		if c != 0 {
			t.Fatalf("byte %d not wiped", i)
		}
	}
}
