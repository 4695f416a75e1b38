// Package fingerprint derives deterministic content hashes used as natural
// keys for deduplication.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

const separator = "|"

// Digest concatenates the string form of each part with a "|" separator and
// returns the MD5 hex digest. Order-sensitive and deterministic; the 128-bit
// collision risk is acceptable because the hash is a dedup key, not a
// security boundary.
func Digest(parts ...any) string {
	strs := make([]string, len(parts))
	for i, part := range parts {
		strs[i] = fmt.Sprint(part)
	}
	sum := md5.Sum([]byte(strings.Join(strs, separator)))
	return hex.EncodeToString(sum[:])
}
