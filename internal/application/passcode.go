package application

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasscodeCost is the bcrypt cost used for company passcodes.
var PasscodeCost = bcrypt.DefaultCost

func hashPasscode(passcode string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), PasscodeCost)
	if err != nil {
		return "", fmt.Errorf("hash passcode: %w", err)
	}
	return string(hash), nil
}

// verifyPasscode returns ErrInvalidPasscode when passcode does not match hash.
func verifyPasscode(hash, passcode string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(passcode))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrInvalidPasscode
	default:
		return fmt.Errorf("verify passcode: %w", err)
	}
}
