// Package wallet verifies Solana wallet-signature sign-in proofs. A wallet
// address is the base58 encoding of an ed25519 public key; the client proves
// control of the key by signing the sign-in message with it.
package wallet

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

var (
	ErrInvalidAddress   = errors.New("invalid wallet address")
	ErrInvalidSignature = errors.New("invalid wallet signature")
)

// DecodeAddress converts a base58 wallet address into an ed25519 public key.
func DecodeAddress(address string) (ed25519.PublicKey, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddress, ed25519.PublicKeySize, len(raw))
	}

	return ed25519.PublicKey(raw), nil
}

// VerifySignature checks that signature was produced over message by the key
// behind the wallet address.
func VerifySignature(address string, message, signature []byte) error {
	publicKey, err := DecodeAddress(address)
	if err != nil {
		return err
	}

	if len(signature) != ed25519.SignatureSize {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, ed25519.SignatureSize, len(signature))
	}

	if !ed25519.Verify(publicKey, message, signature) {
		return ErrInvalidSignature
	}

	return nil
}
