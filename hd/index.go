package hd

import (
	"encoding/binary"
	"fmt"
)

// IndexSize is the byte length of a DerivationIndex.
const IndexSize = 32

// DerivationIndex selects one child key below a master secret. The first
// eight bytes hold a little-endian uint64, the remaining bytes are zero.
type DerivationIndex struct {
	b [IndexSize]byte
}

// Index builds the DerivationIndex for i.
func Index(i uint64) DerivationIndex {
	var idx DerivationIndex
	binary.LittleEndian.PutUint64(idx.b[:8], i)
	return idx
}

// DerivationIndexFromBytes parses a 32-byte index, rejecting non-zero padding.
func DerivationIndexFromBytes(b []byte) (DerivationIndex, error) {
	if len(b) != IndexSize {
		return DerivationIndex{}, fmt.Errorf("%w: length %d", ErrInvalidIndex, len(b))
	}
	for _, c := range b[8:] {
		if c != 0 {
			return DerivationIndex{}, fmt.Errorf("%w: non-zero padding", ErrInvalidIndex)
		}
	}
	var idx DerivationIndex
	copy(idx.b[:], b)
	return idx, nil
}

// Uint64 returns the numeric index.
func (d DerivationIndex) Uint64() uint64 {
	return binary.LittleEndian.Uint64(d.b[:8])
}

// Bytes returns a copy of the 32-byte representation.
func (d DerivationIndex) Bytes() []byte {
	out := make([]byte, IndexSize)
	copy(out, d.b[:])
	return out
}

func (d DerivationIndex) String() string {
	return fmt.Sprintf("%d", d.Uint64())
}
