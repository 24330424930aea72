package bcryptutil

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes secrets for storage and verifies presented values against them.
type Hasher interface {
	Hash(secret string) (string, error)
	Matches(secret, hash string) bool
}

// BcryptHasher is a Hasher backed by bcrypt at Cost.
type BcryptHasher struct {
	Cost int
}

func New() *BcryptHasher {
	return &BcryptHasher{Cost: bcrypt.DefaultCost}
}

func (b *BcryptHasher) Hash(secret string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (b *BcryptHasher) Matches(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
