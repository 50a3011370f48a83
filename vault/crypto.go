package vault

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Sealed layout:
//
//	magic[8] | version[1] | time[4] | memoryMB[4] | threads[1] | salt[16] | nonce[24] | ciphertext
//
// The header is bound to the ciphertext as additional data.
const (
	fileMagic   = "CLNYVLT\x00"
	fileVersion = 1
	saltSize    = 16
	headerSize  = len(fileMagic) + 1 + 4 + 4 + 1 + saltSize + chacha20poly1305.NonceSizeX
)

type header struct {
	params KDFParams
	salt   [saltSize]byte
	nonce  [chacha20poly1305.NonceSizeX]byte
}

func (h header) marshal() []byte {
	b := make([]byte, 0, headerSize)
	b = append(b, fileMagic...)
	b = append(b, fileVersion)
	b = binary.BigEndian.AppendUint32(b, h.params.Time)
	b = binary.BigEndian.AppendUint32(b, h.params.MemoryMB)
	b = append(b, h.params.Threads)
	b = append(b, h.salt[:]...)
	b = append(b, h.nonce[:]...)
	return b
}

func parseHeader(b []byte) (header, error) {
	if len(b) < headerSize {
		return header{}, &OpenError{Reason: "too short"}
	}
	if string(b[:len(fileMagic)]) != fileMagic {
		return header{}, &OpenError{Reason: "bad magic"}
	}
	b = b[len(fileMagic):]
	if b[0] != fileVersion {
		return header{}, &OpenError{Reason: fmt.Sprintf("unsupported version %d", b[0])}
	}
	b = b[1:]

	var h header
	h.params.Time = binary.BigEndian.Uint32(b[0:4])
	h.params.MemoryMB = binary.BigEndian.Uint32(b[4:8])
	h.params.Threads = b[8]
	b = b[9:]
	if err := h.params.Validate(); err != nil {
		return header{}, &OpenError{Reason: "kdf params", Cause: err}
	}
	copy(h.salt[:], b[:saltSize])
	copy(h.nonce[:], b[saltSize:saltSize+chacha20poly1305.NonceSizeX])
	return h, nil
}

// fileKey stretches password with Argon2id into an XChaCha20-Poly1305 key.
func fileKey(password string, salt []byte, p KDFParams) []byte {
	pw := []byte(password)
	defer wipe(pw)
	return argon2.IDKey(pw, salt, p.Time, p.MemoryMB*1024, p.Threads, chacha20poly1305.KeySize)
}

// seal encrypts plaintext under password with a fresh salt and nonce.
func seal(plaintext []byte, password string, params KDFParams) ([]byte, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	h := header{params: params}
	if _, err := rand.Read(h.salt[:]); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if _, err := rand.Read(h.nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	key := fileKey(password, h.salt[:], params)
	defer wipe(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}

	hdr := h.marshal()
	out := make([]byte, len(hdr), len(hdr)+len(plaintext)+aead.Overhead())
	copy(out, hdr)
	return aead.Seal(out, h.nonce[:], plaintext, hdr), nil
}

// open reverses seal. Every failure is an *OpenError.
func open(blob []byte, password string) ([]byte, error) {
	if len(blob) < headerSize+chacha20poly1305.Overhead {
		return nil, &OpenError{Reason: "too short"}
	}
	h, err := parseHeader(blob[:headerSize])
	if err != nil {
		return nil, err
	}

	key := fileKey(password, h.salt[:], h.params)
	defer wipe(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, &OpenError{Reason: "cipher", Cause: err}
	}
	plain, err := aead.Open(nil, h.nonce[:], blob[headerSize:], blob[:headerSize])
	if err != nil {
		return nil, &OpenError{Reason: "authentication failed", Cause: err}
	}
	return plain, nil
}
