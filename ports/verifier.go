package ports

// SignatureVerifier checks that a signature over a challenge message was
// produced by the claimed address's private key. Chain-specific cryptography
// stays behind this interface so the core can be tested with fakes.
type SignatureVerifier interface {
	// ValidAddress is a structural check against the chain's address format.
	ValidAddress(address string) bool

	// Verify recovers the signer of (message, signature) and compares it
	// case-insensitively to address. Malformed input yields false, never
	// an error.
	Verify(message, signature, address string) bool

	// Nonce returns a cryptographically random hex-encoded challenge value.
	Nonce() (string, error)
}
