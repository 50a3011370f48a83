package vault

import "fmt"

// KDFParams configures Argon2id hardness values for the keystore password.
type KDFParams struct {
	MemoryMB uint32
	Time     uint32
	Threads  uint8
}

// DefaultKDFParams returns defaults reasonable for desktops/laptops.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		MemoryMB: 64,
		Time:     3,
		Threads:  4,
	}
}

// Bounds applied to parameters read back from a file header.
const (
	maxKDFMemoryMB = 4096
	maxKDFTime     = 64
	maxKDFThreads  = 64
)

// Validate rejects parameters that are zero or too expensive to honor.
func (p KDFParams) Validate() error {
	switch {
	case p.MemoryMB == 0 || p.MemoryMB > maxKDFMemoryMB:
		return fmt.Errorf("kdf memory %d MB out of range [1, %d]", p.MemoryMB, maxKDFMemoryMB)
	case p.Time == 0 || p.Time > maxKDFTime:
		return fmt.Errorf("kdf time %d out of range [1, %d]", p.Time, maxKDFTime)
	case p.Threads == 0 || p.Threads > maxKDFThreads:
		return fmt.Errorf("kdf threads %d out of range [1, %d]", p.Threads, maxKDFThreads)
	}
	return nil
}
