package anonymize

import (
	"crypto/hmac"
	"crypto/sha256"
)

// MaxLen is the maximum length accepted for any rule's generated output,
// matching the config DSL's length cap.
const MaxLen = 32

// DeriveCode computes HMAC-SHA256(secret, token) and maps the first
// length bytes of the digest (length capped at MaxLen) into [low, high].
// The mapping is modulo-biased, which is acceptable here: the alphabet is
// small (at most 256 symbols) and uniformity is not the security
// property being relied upon — preimage resistance of HMAC is.
func DeriveCode(token, secret []byte, length int, low, high byte) []byte {
	if length > MaxLen {
		length = MaxLen
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(token)
	digest := mac.Sum(nil)

	span := int(high-low) + 1
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		out[i] = byte(int(digest[i])%span) + low
	}
	return out
}
