package apikey

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/aquawatch/notification-service/pkg/bcryptutil"
)

const Prefix = "aqw"

// GenerateKey creates a key of the form {prefix}_{48 hex chars} and the hash to store in config.
func GenerateKey(prefix string, hasher bcryptutil.Hasher) (key string, hash string, err error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	key = fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(raw))

	hash, err = hasher.Hash(key)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash api key: %w", err)
	}
	return key, hash, nil
}

// ValidateKeyFormat checks the key carries the expected prefix.
func ValidateKeyFormat(key, expectedPrefix string) bool {
	return strings.HasPrefix(key, expectedPrefix+"_")
}

// Verifier checks presented keys against the configured hashes.
type Verifier struct {
	hashes []string
	hasher bcryptutil.Hasher
}

func NewVerifier(hashes []string, hasher bcryptutil.Hasher) *Verifier {
	return &Verifier{hashes: hashes, hasher: hasher}
}

func (v *Verifier) Verify(key string) bool {
	if !ValidateKeyFormat(key, Prefix) {
		return false
	}
	for _, h := range v.hashes {
		if v.hasher.Matches(key, h) {
			return true
		}
	}
	return false
}
