package crypto

import (
	"errors"
	"fmt"
	"strings"
)

// MaxPasswordBytes is the longest password accepted for hashing. bcrypt ignores input past
// 72 bytes, so longer passwords are rejected for every algorithm instead of being truncated.
const MaxPasswordBytes = 72

var (
	ErrEmptyPassword     = errors.New("password must not be empty")
	ErrPasswordTooLong   = fmt.Errorf("password must be at most %d bytes", MaxPasswordBytes)
	ErrUnsupportedHasher = errors.New("unsupported password hasher")
)

// Hasher turns plaintext passwords into self-describing hashes and checks candidates
// against them.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) bool
}

// PasswordHasher hashes with one configured algorithm and verifies hashes produced by any
// supported algorithm, chosen by the hash prefix.
type PasswordHasher struct {
	primary Hasher
	argon2  *Argon2Hasher
	bcrypt  *BcryptHasher
}

// NewPasswordHasher returns a hasher that produces "argon2id" or "bcrypt" hashes.
func NewPasswordHasher(algorithm string, bcryptCost int) (*PasswordHasher, error) {
	h := &PasswordHasher{
		argon2: NewArgon2Hasher(DefaultHashParams()),
		bcrypt: NewBcryptHasher(bcryptCost),
	}

	switch algorithm {
	case "argon2id":
		h.primary = h.argon2
	case "bcrypt":
		h.primary = h.bcrypt
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedHasher, algorithm)
	}

	return h, nil
}

// Hash hashes password with the configured algorithm.
func (h *PasswordHasher) Hash(password string) (string, error) {
	return h.primary.Hash(password)
}

// Verify reports whether password matches encodedHash. Unknown formats never match.
func (h *PasswordHasher) Verify(password, encodedHash string) bool {
	switch {
	case strings.HasPrefix(encodedHash, argon2Prefix):
		return h.argon2.Verify(password, encodedHash)
	case strings.HasPrefix(encodedHash, "$2"):
		return h.bcrypt.Verify(password, encodedHash)
	default:
		return false
	}
}

func checkLength(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if len(password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}
