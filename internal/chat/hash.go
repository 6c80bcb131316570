package chat

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContentHash is the sha256 of content lower-cased with whitespace runs
// collapsed, so formatting-only differences hash the same.
func ContentHash(content string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(content)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
