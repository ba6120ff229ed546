package easebuzz

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
)

// PayoutDateLayout is the DD-MM-YYYY layout the payout API expects
const PayoutDateLayout = "02-01-2006"

// CalculatePayoutHash calculates the request hash for the payout retrieval API
// Hash = SHA512(key || "|" || merchant_email || "|" || payout_date || "|" || salt)
// merchant_email is sent empty, which yields "key||date|salt".
func CalculatePayoutHash(key, payoutDate, salt string) string {
	sum := sha512.Sum512([]byte(key + "||" + payoutDate + "|" + salt))
	return hex.EncodeToString(sum[:])
}

// ValidatePayoutHash compares a hash against the expected value in constant time
func ValidatePayoutHash(key, payoutDate, salt, hash string) bool {
	expected := CalculatePayoutHash(key, payoutDate, salt)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(hash)) == 1
}
