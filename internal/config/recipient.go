package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ChecksumAddress implements EIP-55 mixed-case checksum encoding.
func ChecksumAddress(addr string) string {
	lower := strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X"))

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	hash := hex.EncodeToString(h.Sum(nil))

	var result strings.Builder
	result.WriteString("0x")
	for i, c := range lower {
		if c >= 'a' && c <= 'f' && hash[i] >= '8' {
			result.WriteByte(byte(c - 32))
			continue
		}
		result.WriteByte(byte(c))
	}
	return result.String()
}

// VerifyRecipientChecksum reports whether RecipientAddress carries a valid
// EIP-55 checksum. The recipient has shipped in two casings; both resolve to
// the same account, but a mixed-case literal that fails the checksum would
// point at a typo rather than a casing difference.
func VerifyRecipientChecksum() error {
	want := ChecksumAddress(RecipientAddress)
	if want != RecipientAddress {
		return fmt.Errorf("recipient %s fails EIP-55 checksum (expected %s)", RecipientAddress, want)
	}
	return nil
}
