package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateConfirmationCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := GenerateConfirmationCode()
		require.NoError(t, err)
		assert.Len(t, code, ConfirmationCodeLength)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(confirmationAlphabet, c), "unexpected rune %q", c)
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestParseInt(t *testing.T) {
	tests := map[string]int{"": 10, "3": 3, "0": 10, "-2": 10, "x": 10}
	for in, want := range tests {
		assert.Equal(t, want, ParseInt(in, 10), "input %q", in)
	}
}

func TestParseBool(t *testing.T) {
	for _, in := range []string{"true", "1", "TRUE", "yes"} {
		assert.True(t, ParseBool(in), in)
	}
	for _, in := range []string{"", "no", "0", "nah"} {
		assert.False(t, ParseBool(in), in)
	}
}
