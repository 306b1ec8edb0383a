// Package resumecode issues and verifies the codes applicants use to return
// to a saved draft. Codes are shown once at creation; only a bcrypt hash is
// stored.
package resumecode

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	dErrors "intake/pkg/domain-errors"
)

// alphabet avoids characters applicants confuse when reading a code back
// (0/O, 1/I/L).
const alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const codeLength = 12

// Generate creates a random resume code formatted in groups of four,
// e.g. "K7PM-Q2XW-9RTF".
func Generate() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate resume code: %w", err)
	}

	var b strings.Builder
	for i, c := range buf {
		if i > 0 && i%4 == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(alphabet[int(c)%len(alphabet)])
	}
	return b.String(), nil
}

// Hash creates a bcrypt hash of the code for storage.
func Hash(code string) (string, error) {
	if code == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "resume code cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(normalize(code)), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "resume code is too long")
		}
		return "", fmt.Errorf("could not hash resume code: %w", err)
	}
	return string(hashed), nil
}

// Verify checks a code an applicant typed against the stored hash. Case and
// dashes are forgiven; the code itself is not.
func Verify(code, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(normalize(code)))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeUnauthorized, "invalid resume code")
		}
		return fmt.Errorf("could not verify resume code: %w", err)
	}
	return nil
}

func normalize(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), "-", ""))
}
