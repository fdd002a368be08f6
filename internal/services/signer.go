package services

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// SigningError reports a missing or broken signing key. It is fatal for the
// request; nothing retries it.
type SigningError struct {
	Address common.Address
	Err     error
}

func (e *SigningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("signing failed for %s: %v", e.Address.Hex(), e.Err)
	}
	return fmt.Sprintf("no signer found for %s", e.Address.Hex())
}

func (e *SigningError) Unwrap() error { return e.Err }

// Signer signs transactions for a single account.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// KeySelector picks the signer for a requested sender address. Deployments
// carry one configured key today; the interface is the seam where a multi-key
// selection policy plugs in later.
type KeySelector interface {
	Select(from common.Address) (Signer, error)
}

type privateKeySigner struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

// NewPrivateKeySigner parses a hex-encoded private key, with or without the
// 0x prefix.
func NewPrivateKeySigner(hexKey string) (Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, &SigningError{Err: fmt.Errorf("invalid signing key: %w", err)}
	}
	return &privateKeySigner{
		key:  key,
		addr: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (s *privateKeySigner) Address() common.Address { return s.addr }

func (s *privateKeySigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}

// SingleKeySelector serves exactly one key and refuses callers that do not
// match its address.
type SingleKeySelector struct {
	signer Signer
}

func NewSingleKeySelector(signer Signer) *SingleKeySelector {
	return &SingleKeySelector{signer: signer}
}

func (s *SingleKeySelector) Select(from common.Address) (Signer, error) {
	if from != s.signer.Address() {
		return nil, &SigningError{Address: from}
	}
	return s.signer, nil
}
