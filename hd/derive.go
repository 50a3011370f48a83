// ABOUTME: EIP-2333 master and child key derivation over BLS12-381.
// ABOUTME: Pure functions; safe to call from any goroutine.
package hd

import (
	"fmt"
	"math/big"

	util "github.com/wealdtech/go-eth2-util"
)

// MinSeedLength is the shortest seed EIP-2333 master derivation accepts.
const MinSeedLength = 32

// MasterSecretFromMnemonic derives the master secret from an already
// validated phrase: BIP39 seed with an empty passphrase, then derive_master_SK.
func MasterSecretFromMnemonic(m Mnemonic) (MasterSecret, error) {
	seed := m.Seed()
	defer wipe(seed)
	return MasterSecretFromSeed(seed)
}

// MasterSecretFromSeed runs derive_master_SK on seed.
func MasterSecretFromSeed(seed []byte) (MasterSecret, error) {
	if len(seed) < MinSeedLength {
		return MasterSecret{}, fmt.Errorf("%w: got %d bytes, need %d", ErrInvalidSeedLength, len(seed), MinSeedLength)
	}
	sk, err := util.DeriveMasterSK(seed)
	if err != nil {
		return MasterSecret{}, fmt.Errorf("derive master key: %w", err)
	}
	defer sk.SetInt64(0)

	buf := scalarBytes(sk)
	defer wipe(buf)
	return MasterSecretFromBytes(buf)
}

// wideBranch is the child of the master reserved as the root of every index
// that does not fit a single step. It is never itself a pod key.
const wideBranch = 1<<32 - 1

// DeriveChild derives the pod secret for index below master. Indices below
// wideBranch take one derive_child_SK step. Every larger index i takes three:
// wideBranch, then the high and low words of i-wideBranch. No pod key is an
// ancestor of another pod key.
func DeriveChild(master MasterSecret, index DerivationIndex) SecretKey {
	parent := new(big.Int).SetBytes(master[:])
	defer parent.SetInt64(0)

	i := index.Uint64()
	if i >= wideBranch {
		j := i - wideBranch
		branch := deriveStep(parent, wideBranch)
		defer branch.SetInt64(0)
		mid := deriveStep(branch, uint32(j>>32))
		defer mid.SetInt64(0)
		parent = mid
		i = j
	}
	child := deriveStep(parent, uint32(i))
	defer child.SetInt64(0)

	buf := scalarBytes(child)
	defer wipe(buf)
	sk, err := SecretKeyFromBytes(buf)
	if err != nil {
		panic(fmt.Sprintf("hd: derived child key out of range: %v", err))
	}
	return sk
}

func deriveStep(parent *big.Int, index uint32) *big.Int {
	child, err := util.DeriveChildSK(parent, index)
	if err != nil {
		panic(fmt.Sprintf("hd: derive child %d: %v", index, err))
	}
	return child
}

func scalarBytes(n *big.Int) []byte {
	return n.FillBytes(make([]byte, SecretKeySize))
}
