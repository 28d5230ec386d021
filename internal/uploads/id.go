package uploads

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
)

// FileIDLength is the number of characters in a generated file id.
const FileIDLength = 12

var idEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewFileID returns a 12-character identifier over the alphabet a-z2-7
// carrying 60 random bits.
func NewFileID() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return strings.ToLower(idEncoding.EncodeToString(buf[:]))[:FileIDLength], nil
}

// ValidFileID reports whether s has the shape of a generated id. Used to
// reject path tricks before touching storage.
func ValidFileID(s string) bool {
	if len(s) != FileIDLength {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '2' || r > '7') {
			return false
		}
	}
	return true
}
