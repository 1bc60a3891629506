package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefix for content-addressed query identity.
// Version suffix enables future algorithm migration.
const DomainQuery = "sqlopt/query/v1"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes the content-addressed identity of a compiled query.
// Identical SQL text with identical ordered parameters always produces the
// same fingerprint, independent of process or platform.
func Fingerprint(sql string, params []Value) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"sql":    sql,
		"params": params,
	})
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainQuery, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(sql string, params []Value) string {
	fp, err := Fingerprint(sql, params)
	if err != nil {
		panic(err)
	}
	return fp
}
