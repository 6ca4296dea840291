package clicks

import (
	"crypto/sha256"
	"encoding/hex"
)

// VisitorHash identifies a unique visitor for rollup purposes: a SHA-256
// digest of the client IP and the resolved user-agent hash. No salt is
// kept, so the same pair hashes the same on every day; rollups use it only
// as a same-day dedup key.
func VisitorHash(ip, userAgentHash string) string {
	sum := sha256.Sum256([]byte(ip + "|" + userAgentHash))
	return hex.EncodeToString(sum[:])
}
