package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

// Password hashing parameters: PBKDF2-HMAC-SHA256.
const (
	PasswordIterations = 100_000
	PasswordSaltSize   = 16
	PasswordKeySize    = 32
	RefreshTokenSize   = 64
)

// HashPassword derives a key from password with a fresh random salt.
func HashPassword(password string) (hash, salt []byte, err error) {
	salt = make([]byte, PasswordSaltSize)
	if _, err = rand.Read(salt); err != nil {
		return nil, nil, err
	}
	return derive(password, salt), salt, nil
}

func derive(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, PasswordIterations, PasswordKeySize, sha256.New)
}

// CheckPasswordHash compares password against a stored hash and salt in constant time.
func CheckPasswordHash(password string, hash, salt []byte) bool {
	if len(hash) == 0 || len(salt) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(derive(password, salt), hash) == 1
}

// RandomToken returns RefreshTokenSize random bytes, base64 encoded.
func RandomToken() (string, error) {
	buf := make([]byte, RefreshTokenSize)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// HashToken returns the hex SHA-256 digest of an opaque token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
