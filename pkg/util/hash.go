package util

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the bcrypt cost parameter used for stored passcodes.
var BcryptCost = 12

// HashPasscode returns a bcrypt hash of the given plaintext passcode.
// The result already includes its salt and is safe to store.
func HashPasscode(passcode string) (string, error) {
	if passcode == "" {
		return "", errors.New("passcode is empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(passcode), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePasscode returns nil if the plaintext passcode matches the bcrypt hash.
func ComparePasscode(hashed, passcode string) error {
	if hashed == "" || passcode == "" {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(passcode))
}

// ComparePlainPasscode returns nil if stored, a plaintext passcode left by
// older data files, equals passcode. The comparison is constant time.
func ComparePlainPasscode(stored, passcode string) error {
	if stored == "" || passcode == "" {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(passcode)) != 1 {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return nil
}

// IsPasscodeHash reports whether s looks like a bcrypt hash rather than a
// plaintext passcode.
func IsPasscodeHash(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}

// IsPasscode reports whether s is exactly four ASCII digits.
func IsPasscode(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
