package chain

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrSignerUnavailable is returned when an operation needs a signing key
// and none is configured (dry-run configs may legitimately omit one).
var ErrSignerUnavailable = errors.New("signer unavailable: no private key configured")

// Signer manages the secp256k1 key pair used to sign every on-chain
// transaction the bot sends.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// FromPrivateKeyHex creates a Signer from a hex-encoded private key.
// Format: "0x1234..." or "1234..." (64 hex chars).
func FromPrivateKeyHex(hexKey string) (*Signer, error) {
	if hexKey == "" {
		return nil, ErrSignerUnavailable
	}
	hexKey = strings.TrimPrefix(hexKey, "0x")
	privateKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return &Signer{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

// DeriveSigner computes a deterministic child key from a master key and a
// derivation path label. Registry-assigned bots all share one master key;
// the path keeps their on-chain identities separate. Only the derived
// address may be logged, never any key material.
func DeriveSigner(masterHex, path string) (*Signer, error) {
	if masterHex == "" {
		return nil, ErrSignerUnavailable
	}
	masterHex = strings.TrimPrefix(masterHex, "0x")
	master, err := crypto.HexToECDSA(masterHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse master key: %w", err)
	}

	// child = keccak256(master_key_bytes || path); the (astronomically
	// unlikely) draws of zero or >= N are rejected by re-hashing.
	seed := crypto.Keccak256(append(crypto.FromECDSA(master), []byte(path)...))
	for {
		child, err := crypto.ToECDSA(seed)
		if err == nil {
			return &Signer{
				privateKey: child,
				address:    crypto.PubkeyToAddress(child.PublicKey),
			}, nil
		}
		seed = crypto.Keccak256(seed)
	}
}

// Address returns the Ethereum address derived from the public key.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignTx signs a transaction for chainID using the EIP-155 / EIP-1559
// signer appropriate to the tx type.
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if s == nil || s.privateKey == nil {
		return nil, ErrSignerUnavailable
	}
	signer := types.LatestSignerForChainID(chainID)
	return types.SignTx(tx, signer, s.privateKey)
}
