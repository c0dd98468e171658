package crypto

import (
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/uhyunpark/polyperp/pkg/sdkerr"
)

var (
	addressPattern    = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	sessionKeyPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)
)

// IsValidAddress reports whether s is 0x followed by 40 hex characters.
// Checksum casing is not enforced.
func IsValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// ValidateAddress returns a validation error for a malformed wallet address
func ValidateAddress(s string) error {
	if !IsValidAddress(s) {
		return sdkerr.New(sdkerr.KindValidation, "Invalid wallet address format",
			map[string]any{"walletAddress": s})
	}
	return nil
}

// IsValidSessionKey reports whether s is 0x followed by 64 hex characters
func IsValidSessionKey(s string) bool {
	return sessionKeyPattern.MatchString(s)
}

// ValidateSessionKey returns a validation error for a malformed session key.
// The key never appears in the error.
func ValidateSessionKey(s string) error {
	if !IsValidSessionKey(s) {
		return sdkerr.New(sdkerr.KindValidation, "Invalid session key format",
			map[string]any{"sessionKey": sdkerr.Redacted})
	}
	return nil
}

// ChecksumAddress returns the EIP-55 form of a valid address, or "" if s is
// not an address.
func ChecksumAddress(s string) string {
	if !IsValidAddress(s) {
		return ""
	}
	raw, err := hex.DecodeString(s[2:])
	if err != nil {
		return ""
	}
	return EIP55(raw)
}

// AddressFromUncompressedPub expects 65-byte uncompressed secp256k1 pubkey (0x04 || X || Y).
// Returns EIP-55 checksummed hex string like 0xABCD...
func AddressFromUncompressedPub(pub []byte) string {
	if len(pub) != 65 || pub[0] != 0x04 {
		return ""
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(pub[1:])
	sum := h.Sum(nil)
	return EIP55(sum[12:]) // last 20 bytes
}

// EIP55 computes the checksummed hex address string from 20-byte raw address.
func EIP55(addr20 []byte) string {
	lower := hex.EncodeToString(addr20)
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	hash := h.Sum(nil)

	var b strings.Builder
	b.Grow(2 + len(lower))
	b.WriteString("0x")
	for i, c := range []byte(lower) {
		// each hex char maps to a nibble of the hash; high nibble for even i
		nibble := hash[i>>1] & 0x0f
		if i%2 == 0 {
			nibble = hash[i>>1] >> 4
		}
		if c >= 'a' && nibble >= 8 {
			c -= 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}
