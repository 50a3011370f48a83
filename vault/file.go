// ABOUTME: Encrypted persistence of a Vault to streams and files.
// ABOUTME: Files are replaced atomically so an interrupted save never leaves a truncated keystore.
package vault

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/google/renameio/v2"
)

// maxSealedSize bounds how much Deserialize reads before giving up.
const maxSealedSize = 16 << 20

// Serialize encrypts the vault under password with DefaultKDFParams and
// writes it to w.
func (v *Vault) Serialize(w io.Writer, password string) error {
	return v.SerializeWith(w, password, DefaultKDFParams())
}

// SerializeWith is Serialize with explicit Argon2id parameters.
func (v *Vault) SerializeWith(w io.Writer, password string, params KDFParams) error {
	plain := v.marshalRecord()
	defer wipe(plain)

	blob, err := seal(plain, password, params)
	if err != nil {
		return err
	}
	if _, err := w.Write(blob); err != nil {
		return &IOError{Op: "write", Err: err}
	}
	return nil
}

// FileInfo is the non-secret part of a sealed keystore header.
type FileInfo struct {
	Version int
	KDF     KDFParams
	Size    int64
}

// ReadFileInfo parses the header of a sealed keystore without the password.
func ReadFileInfo(r io.Reader) (FileInfo, error) {
	buf := make([]byte, headerSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FileInfo{}, &IOError{Op: "read", Err: err}
	}
	h, err := parseHeader(buf[:n])
	if err != nil {
		return FileInfo{}, err
	}
	rest, err := io.Copy(io.Discard, r)
	if err != nil {
		return FileInfo{}, &IOError{Op: "read", Err: err}
	}
	return FileInfo{Version: fileVersion, KDF: h.params, Size: int64(n) + rest}, nil
}

// Deserialize reads a sealed vault from r and opens it with password.
func Deserialize(r io.Reader, password string) (*Vault, error) {
	blob, err := io.ReadAll(io.LimitReader(r, maxSealedSize+1))
	if err != nil {
		return nil, &IOError{Op: "read", Err: err}
	}
	if len(blob) > maxSealedSize {
		return nil, &OpenError{Reason: "too large"}
	}

	plain, err := open(blob, password)
	if err != nil {
		return nil, err
	}
	defer wipe(plain)

	rec, err := unmarshalRecord(plain)
	if err != nil {
		return nil, err
	}
	return rec.build()
}

// SaveFile writes the sealed vault to path with DefaultKDFParams.
func (v *Vault) SaveFile(path, password string) error {
	return v.SaveFileWith(path, password, DefaultKDFParams())
}

// SaveFileWith writes the sealed vault to a temporary file next to path and
// renames it into place. The file is readable by the owner only.
func (v *Vault) SaveFileWith(path, password string, params KDFParams) error {
	var buf bytes.Buffer
	if err := v.SerializeWith(&buf, password, params); err != nil {
		return err
	}
	if err := renameio.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// LoadFile opens the sealed vault stored at path.
func LoadFile(path, password string) (*Vault, error) {
	// #nosec G304 -- the keystore path comes from the caller's configuration
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer func() {
		_ = f.Close()
	}()

	v, err := Deserialize(f, password)
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		ioErr.Path = path
	}
	return v, err
}
