package crypto

import (
	"crypto/ed25519"
	"encoding/hex"
)

// VerifyDetached checks an Ed25519 detached signature against a canonical
// payload. It returns false on any malformed input rather than an error, so
// callers have one uniform failure path.
func VerifyDetached(publicKey, payload, signature []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize {
		return false
	}
	if len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(publicKey, payload, signature)
}

// VerifyDetachedHex is VerifyDetached with a hex-encoded signature, the form
// carried in X-Signature headers and action envelopes.
func VerifyDetachedHex(publicKey, payload []byte, signatureHex string) bool {
	signature, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}
	return VerifyDetached(publicKey, payload, signature)
}
