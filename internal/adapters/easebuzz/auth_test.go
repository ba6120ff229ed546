package easebuzz

import (
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculatePayoutHash(t *testing.T) {
	got := CalculatePayoutHash("MERCHANTKEY", "14-03-2025", "SALT")

	sum := sha512.Sum512([]byte("MERCHANTKEY||14-03-2025|SALT"))
	assert.Equal(t, hex.EncodeToString(sum[:]), got)

	// SHA-512 hex is 128 characters
	assert.Len(t, got, 128)
	assert.Regexp(t, "^[0-9a-f]{128}$", got)
}

func TestCalculatePayoutHash_DifferentInputs(t *testing.T) {
	base := CalculatePayoutHash("KEY", "14-03-2025", "SALT")

	assert.NotEqual(t, base, CalculatePayoutHash("KEY", "15-03-2025", "SALT"), "date must change the hash")
	assert.NotEqual(t, base, CalculatePayoutHash("KEY", "14-03-2025", "OTHER"), "salt must change the hash")
	assert.NotEqual(t, base, CalculatePayoutHash("KEY2", "14-03-2025", "SALT"), "key must change the hash")
}

func TestValidatePayoutHash(t *testing.T) {
	hash := CalculatePayoutHash("KEY", "14-03-2025", "SALT")

	assert.True(t, ValidatePayoutHash("KEY", "14-03-2025", "SALT", hash))
	assert.False(t, ValidatePayoutHash("KEY", "14-03-2025", "WRONG", hash))
	assert.False(t, ValidatePayoutHash("KEY", "14-03-2025", "SALT", ""))
}
