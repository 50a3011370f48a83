package hd

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync"

	e2types "github.com/wealdtech/go-eth2-types/v2"
)

const (
	// SecretKeySize is the length of a big-endian BLS12-381 scalar.
	SecretKeySize = 32
	// PublicKeySize is the length of a compressed G1 point.
	PublicKeySize = 48
)

// curveOrder is the order r of the BLS12-381 prime subgroup.
var curveOrder, _ = new(big.Int).SetString("73eda753299d7d483339d80809a1d80553bda402fffe5bfeffffffff00000001", 16)

var blsOnce sync.Once

func initBLS() {
	blsOnce.Do(func() {
		if err := e2types.InitBLS(); err != nil {
			panic(fmt.Sprintf("hd: init bls: %v", err))
		}
	})
}

// SecretKey is a pod signing scalar.
type SecretKey [SecretKeySize]byte

// MasterSecret is the root scalar of the derivation tree.
type MasterSecret [SecretKeySize]byte

// PublicKey is the compressed G1 point of a SecretKey. It is comparable and
// used as the identity of a pod.
type PublicKey [PublicKeySize]byte

// SecretKeyFromBytes validates b as a non-zero scalar below the group order.
func SecretKeyFromBytes(b []byte) (SecretKey, error) {
	if err := checkScalar(b); err != nil {
		return SecretKey{}, err
	}
	var sk SecretKey
	copy(sk[:], b)
	return sk, nil
}

// SecretKeyFromHex parses a hex scalar, with or without a 0x prefix.
func SecretKeyFromHex(s string) (SecretKey, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return SecretKey{}, fmt.Errorf("%w: %v", ErrInvalidSecretKey, err)
	}
	defer wipe(b)
	return SecretKeyFromBytes(b)
}

// MasterSecretFromBytes validates b the same way as SecretKeyFromBytes.
func MasterSecretFromBytes(b []byte) (MasterSecret, error) {
	sk, err := SecretKeyFromBytes(b)
	if err != nil {
		return MasterSecret{}, err
	}
	defer sk.Wipe()
	return MasterSecret(sk), nil
}

func checkScalar(b []byte) error {
	if len(b) != SecretKeySize {
		return fmt.Errorf("%w: length %d", ErrInvalidSecretKey, len(b))
	}
	n := new(big.Int).SetBytes(b)
	if n.Sign() == 0 {
		return fmt.Errorf("%w: zero scalar", ErrInvalidSecretKey)
	}
	if n.Cmp(curveOrder) >= 0 {
		return fmt.Errorf("%w: scalar not below group order", ErrInvalidSecretKey)
	}
	return nil
}

// Bytes returns a copy of the scalar.
func (sk SecretKey) Bytes() []byte {
	out := make([]byte, SecretKeySize)
	copy(out, sk[:])
	return out
}

// Hex returns the scalar as lower-case hex.
func (sk SecretKey) Hex() string { return hex.EncodeToString(sk[:]) }

// IsZero reports whether sk has been wiped or never set.
func (sk SecretKey) IsZero() bool { return sk == SecretKey{} }

// PublicKey computes the G1 point for sk.
func (sk SecretKey) PublicKey() PublicKey {
	priv := sk.bls()
	var pub PublicKey
	copy(pub[:], priv.PublicKey().Marshal())
	return pub
}

// Sign produces a BLS signature over msg.
func (sk SecretKey) Sign(msg []byte) []byte {
	return sk.bls().Sign(msg).Marshal()
}

// Wipe zeroes the scalar in place.
func (sk *SecretKey) Wipe() { *sk = SecretKey{} }

func (sk SecretKey) bls() *e2types.BLSPrivateKey {
	initBLS()
	priv, err := e2types.BLSPrivateKeyFromBytes(sk[:])
	if err != nil {
		// Every SecretKey is range-checked on construction.
		panic(fmt.Sprintf("hd: secret key rejected by curve library: %v", err))
	}
	return priv
}

// Bytes returns a copy of the scalar.
func (m MasterSecret) Bytes() []byte { return SecretKey(m).Bytes() }

// PublicKey computes the G1 point for the master scalar.
func (m MasterSecret) PublicKey() PublicKey { return SecretKey(m).PublicKey() }

// Wipe zeroes the scalar in place.
func (m *MasterSecret) Wipe() { *m = MasterSecret{} }

// IsZero reports whether m has been wiped or never set.
func (m MasterSecret) IsZero() bool { return m == MasterSecret{} }

// PublicKeyFromBytes validates b as a compressed G1 point.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	if len(b) != PublicKeySize {
		return PublicKey{}, fmt.Errorf("%w: length %d", ErrInvalidPublicKey, len(b))
	}
	initBLS()
	if _, err := e2types.BLSPublicKeyFromBytes(b); err != nil {
		return PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	var pub PublicKey
	copy(pub[:], b)
	return pub, nil
}

// PublicKeyFromHex parses a hex-encoded compressed point.
func PublicKeyFromHex(s string) (PublicKey, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return PublicKeyFromBytes(b)
}

// Bytes returns a copy of the compressed point.
func (p PublicKey) Bytes() []byte {
	out := make([]byte, PublicKeySize)
	copy(out, p[:])
	return out
}

// Hex returns the compressed point as lower-case hex.
func (p PublicKey) Hex() string { return hex.EncodeToString(p[:]) }

func (p PublicKey) String() string { return p.Hex() }

// Compare orders public keys bytewise.
func (p PublicKey) Compare(other PublicKey) int { return bytes.Compare(p[:], other[:]) }

// Verify checks a signature produced by SecretKey.Sign.
func (p PublicKey) Verify(msg, sig []byte) bool {
	initBLS()
	pub, err := e2types.BLSPublicKeyFromBytes(p[:])
	if err != nil {
		return false
	}
	s, err := e2types.BLSSignatureFromBytes(sig)
	if err != nil {
		return false
	}
	return s.Verify(msg, pub)
}
