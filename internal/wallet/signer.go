package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrBadSignature is returned for signatures that cannot be recovered.
var ErrBadSignature = errors.New("malformed signature")

// Signer holds the key of one account for the length of a request.
type Signer struct {
	address common.Address
	key     *ecdsa.PrivateKey
}

// Address is the account the signer signs for.
func (s *Signer) Address() common.Address { return s.address }

// SignTx signs tx for chainID and returns it with its raw encoding for
// eth_sendRawTransaction.
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, []byte, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return nil, nil, fmt.Errorf("signing transaction: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("encoding transaction: %w", err)
	}
	return signed, raw, nil
}

// SignText signs msg the way personal_sign does: the EIP-191 text hash, with
// the recovery id in the last byte as 27 or 28.
func (s *Signer) SignText(msg []byte) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(msg), s.key)
	if err != nil {
		return nil, fmt.Errorf("signing message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// RecoverText returns the address that produced sig over msg with
// personal_sign. Recovery ids 0/1 and 27/28 are both accepted.
func RecoverText(msg, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: %d bytes", ErrBadSignature, len(sig))
	}
	rsv := make([]byte, len(sig))
	copy(rsv, sig)
	switch v := rsv[crypto.RecoveryIDOffset]; v {
	case 0, 1:
	case 27, 28:
		rsv[crypto.RecoveryIDOffset] = v - 27
	default:
		return common.Address{}, fmt.Errorf("%w: recovery id %d", ErrBadSignature, v)
	}
	pub, err := crypto.SigToPub(accounts.TextHash(msg), rsv)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
