package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for digests. The version suffix leaves room to change
// the encoding later without colliding with old digests.
const (
	DomainTrace    = "ripple/trace/v1"
	DomainScenario = "ripple/scenario/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data). The null byte keeps
// the boundary between domain and data unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest returns the hex SHA-256 digest of the canonical encoding of v
// under domain.
func Digest(domain string, v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", domain, err)
	}
	return hashWithDomain(domain, data), nil
}
