package hd

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"pgregory.net/rapid"
)

// EIP-2333 test case 0.
const (
	eip2333Seed   = "c55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c81b2f001698e7463b04"
	eip2333Master = "6083874454709270928345386274498605044986640685124978867557563392430687146096"
	eip2333Child0 = "20397789859736650942317412262472558107875392172444076792671091975210932703118"
)

func TestEIP2333Vector(t *testing.T) {
	seed, err := hex.DecodeString(eip2333Seed)
	if err != nil {
		t.Fatalf("decode seed: %v", err)
	}
	master, err := MasterSecretFromSeed(seed)
	if err != nil {
		t.Fatalf("master: %v", err)
	}
	if got := new(big.Int).SetBytes(master[:]).String(); got != eip2333Master {
		t.Fatalf("master = %s, want %s", got, eip2333Master)
	}

	child := DeriveChild(master, Index(0))
	if got := new(big.Int).SetBytes(child[:]).String(); got != eip2333Child0 {
		t.Fatalf("child = %s, want %s", got, eip2333Child0)
	}
}

func TestMasterSecretFromSeedShort(t *testing.T) {
	_, err := MasterSecretFromSeed(make([]byte, MinSeedLength-1))
	if !errors.Is(err, ErrInvalidSeedLength) {
		t.Fatalf("expected ErrInvalidSeedLength, got %v", err)
	}
}

func TestMasterSecretDeterministic(t *testing.T) {
	m, err := ParseMnemonic(abandonMnemonic)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	a, err := MasterSecretFromMnemonic(m)
	if err != nil {
		t.Fatalf("master a: %v", err)
	}
	b, err := MasterSecretFromMnemonic(m)
	if err != nil {
		t.Fatalf("master b: %v", err)
	}
	if a != b {
		t.Fatal("master secret not deterministic")
	}
	if a.IsZero() {
		t.Fatal("master secret is zero")
	}
}

func TestDeriveChildUnique(t *testing.T) {
	m, err := ParseMnemonic(abandonMnemonic)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	master, err := MasterSecretFromMnemonic(m)
	if err != nil {
		t.Fatalf("master: %v", err)
	}

	indices := []uint64{0, 1, 2, 3, 4, 5, 6, 7, wideBranch - 1, wideBranch, wideBranch + 1, 1 << 32, 1<<32 + 1, 1 << 40, 1<<64 - 1}
	seen := make(map[SecretKey]uint64, len(indices))
	for _, i := range indices {
		sk := DeriveChild(master, Index(i))
		if prev, ok := seen[sk]; ok {
			t.Fatalf("index %d collides with index %d", i, prev)
		}
		seen[sk] = i
		if SecretKey(master) == sk {
			t.Fatalf("child %d equals master", i)
		}
	}
}

func TestWideIndexKeysAreIsolated(t *testing.T) {
	m, err := ParseMnemonic(abandonMnemonic)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	master, err := MasterSecretFromMnemonic(m)
	if err != nil {
		t.Fatalf("master: %v", err)
	}
	scalar := func(sk SecretKey) *big.Int { return new(big.Int).SetBytes(sk[:]) }
	root := new(big.Int).SetBytes(master[:])

	for _, i := range []uint64{wideBranch, 1 << 32, 1<<32 + 5, 1 << 33, 1<<64 - 1} {
		got := DeriveChild(master, Index(i))

		// Holding the single-step pod named by the high word must not
		// yield the wide pod.
		hi, lo := uint32(i>>32), uint32(i)
		if hi < wideBranch {
			pod := DeriveChild(master, Index(uint64(hi)))
			leaked := scalarBytes(deriveStep(scalar(pod), lo))
			if bytes.Equal(leaked, got[:]) {
				t.Fatalf("index %d derivable from pod %d", i, hi)
			}
		}

		j := i - wideBranch
		want := deriveStep(deriveStep(deriveStep(root, wideBranch), uint32(j>>32)), uint32(j))
		if !bytes.Equal(scalarBytes(want), got[:]) {
			t.Fatalf("index %d not under the reserved branch", i)
		}
	}

	below := DeriveChild(master, Index(wideBranch-1))
	if want := scalarBytes(deriveStep(root, wideBranch-1)); !bytes.Equal(want, below[:]) {
		t.Fatal("index below the branch must take one step")
	}
}

func TestDeriveChildDeterministicProperty(t *testing.T) {
	m, err := ParseMnemonic(abandonMnemonic)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	master, err := MasterSecretFromMnemonic(m)
	if err != nil {
		t.Fatalf("master: %v", err)
	}

	rapid.Check(t, func(t *rapid.T) {
		i := rapid.Uint64().Draw(t, "index")
		a := DeriveChild(master, Index(i))
		b := DeriveChild(master, Index(i))
		if a != b {
			t.Fatalf("DeriveChild(%d) not deterministic", i)
		}
		if a.PublicKey() != b.PublicKey() {
			t.Fatalf("public keys differ for index %d", i)
		}
	})
}

func TestDerivationIndexBytes(t *testing.T) {
	idx := Index(0x0102030405060708)
	b := idx.Bytes()
	if len(b) != IndexSize {
		t.Fatalf("len = %d", len(b))
	}
	if b[0] != 0x08 || b[7] != 0x01 {
		t.Fatalf("unexpected byte order: %x", b[:8])
	}
	for i, c := range b[8:] {
		if c != 0 {
			t.Fatalf("padding byte %d = %x", i+8, c)
		}
	}

	back, err := DerivationIndexFromBytes(b)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if back != idx || back.Uint64() != 0x0102030405060708 {
		t.Fatalf("round trip mismatch: %v", back)
	}

	b[20] = 1
	if _, err := DerivationIndexFromBytes(b); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("expected ErrInvalidIndex for padding, got %v", err)
	}
	if _, err := DerivationIndexFromBytes(b[:8]); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("expected ErrInvalidIndex for length, got %v", err)
	}
}
