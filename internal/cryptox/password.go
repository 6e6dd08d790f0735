// Package cryptox hashes and verifies account passwords.
//
// New hashes are argon2id in PHC string form. bcrypt hashes ("$2a$", "$2b$",
// "$2y$") from older deployments still verify; NeedsRehash tells the caller
// to replace them after a successful login.
package cryptox

import (
	"errors"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// ErrUnknownHashFormat is returned for stored hashes of an unsupported scheme.
var ErrUnknownHashFormat = errors.New("unknown password hash format")

// Params used for new hashes. Tests may lower them.
var Params = argon2id.DefaultParams

// HashPassword returns an argon2id hash of password.
func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, Params)
}

// VerifyPassword reports whether password matches hash. A mismatch is not
// an error; a malformed hash is.
func VerifyPassword(password, hash string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, "$argon2id$"):
		return argon2id.ComparePasswordAndHash(password, hash)
	case isBcrypt(hash):
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, ErrUnknownHashFormat
	}
}

// NeedsRehash reports whether hash uses a legacy scheme.
func NeedsRehash(hash string) bool {
	return !strings.HasPrefix(hash, "$argon2id$")
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}
