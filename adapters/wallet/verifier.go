package wallet

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// NonceBytes is the entropy of a challenge nonce.
const NonceBytes = 32

// Verifier implements the SignatureVerifier port for Ethereum wallets using
// EIP-191 personal_sign semantics: the challenge message is prefix-hashed
// and the signer recovered from the signature.
type Verifier struct{}

// NewVerifier creates an Ethereum signature verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// ValidAddress reports whether address is a structurally valid hex address.
func (v *Verifier) ValidAddress(address string) bool {
	return common.IsHexAddress(address)
}

// Verify recovers the signer of message from signature and compares it
// case-insensitively to address. Any recovery failure yields false.
func (v *Verifier) Verify(message, signature, address string) bool {
	if !common.IsHexAddress(address) {
		return false
	}

	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return false
	}

	// Wallets emit V as 27/28; go-ethereum recovery wants 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pubKey, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return false
	}

	recovered := crypto.PubkeyToAddress(*pubKey)
	return strings.EqualFold(recovered.Hex(), address)
}

// Nonce returns a cryptographically random hex-encoded challenge value.
func (v *Verifier) Nonce() (string, error) {
	buf := make([]byte, NonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
