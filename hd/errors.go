package hd

import "errors"

var (
	ErrInvalidMnemonic   = errors.New("invalid mnemonic phrase")
	ErrInvalidSeedLength = errors.New("seed shorter than key derivation minimum")
	ErrInvalidSecretKey  = errors.New("invalid secret key")
	ErrInvalidPublicKey  = errors.New("invalid public key")
	ErrInvalidIndex      = errors.New("invalid derivation index")
)
