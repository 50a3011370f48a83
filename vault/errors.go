// ABOUTME: Typed errors for keystore operations.
// ABOUTME: Enables programmatic error handling with errors.Is() and errors.As().
package vault

import (
	"errors"
	"fmt"

	"github.com/zettawatt/colony/hd"
)

// Sentinel errors for programmatic handling.
var (
	ErrInvalidMnemonic        = hd.ErrInvalidMnemonic
	ErrInvalidSecretKey       = hd.ErrInvalidSecretKey
	ErrInvalidWalletKey       = errors.New("invalid wallet key")
	ErrNoWallet               = errors.New("wallet not set")
	ErrWrongPasswordOrCorrupt = errors.New("wrong password or corrupt keystore file")
	ErrMalformedVaultData     = errors.New("malformed keystore data")
	ErrIO                     = errors.New("keystore i/o failure")
)

// OpenError reports why a sealed keystore could not be opened. Its message
// never says whether the password or the file was at fault; Reason is for logs.
type OpenError struct {
	Reason string // "too short", "bad magic", "authentication failed", ...
	Cause  error
}

func (e *OpenError) Error() string {
	return ErrWrongPasswordOrCorrupt.Error()
}

func (e *OpenError) Unwrap() error {
	return e.Cause
}

func (e *OpenError) Is(target error) bool {
	return target == ErrWrongPasswordOrCorrupt
}

// IOError wraps a stream or filesystem failure with the operation that hit it.
type IOError struct {
	Op   string // "read", "write", "open"
	Path string // empty for plain streams
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("keystore %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("keystore %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedVaultData, fmt.Sprintf(format, args...))
}
