package utils

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

// ==================== CONFIRMATION CODE ====================

// no 0/O/1/I so codes survive being read out over the phone
const confirmationAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const ConfirmationCodeLength = 6

// GenerateConfirmationCode returns a random PNR-style code, e.g. "K7QH2M".
func GenerateConfirmationCode() (string, error) {
	max := big.NewInt(int64(len(confirmationAlphabet)))
	code := make([]byte, ConfirmationCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = confirmationAlphabet[n.Int64()]
	}
	return string(code), nil
}

// ParseInt converts string to int with default value
func ParseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}

	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	if result < 1 {
		return defaultValue
	}

	return result
}

// ParseBool accepts the strconv forms plus "yes"; anything else is false
func ParseBool(value string) bool {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return value == "yes"
	}
	return b
}
