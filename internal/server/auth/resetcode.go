package auth

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// ResetCodeDigits is the length of a password reset code.
const ResetCodeDigits = 6

var (
	resetCodeMin   = big.NewInt(100000)
	resetCodeRange = big.NewInt(900000)
)

// GenerateResetCode returns a uniformly random six-digit code in
// [100000, 999999] read from crypto/rand.
func GenerateResetCode() (string, error) {
	return generateResetCode(rand.Reader)
}

func generateResetCode(r io.Reader) (string, error) {
	n, err := rand.Int(r, resetCodeRange)
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	return n.Add(n, resetCodeMin).String(), nil
}
