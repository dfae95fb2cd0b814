package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const resetSecretSize = 32

// NewOTP returns a numeric one-time code with the requested digit count.
// Each digit is drawn independently from crypto/rand so leading zeros are
// as likely as any other digit.
func NewOTP(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	otp := b.String()
	if len(otp) != digits {
		return "", fmt.Errorf("invalid otp generation length")
	}
	return otp, nil
}

// NewResetToken returns a 256-bit random reset token encoded as unpadded
// base64url, together with the SHA-256 digest that is stored in its place.
// The plaintext is handed to the caller exactly once and never persisted.
func NewResetToken() (string, [32]byte, error) {
	var secret [resetSecretSize]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return "", [32]byte{}, err
	}

	token := base64.RawURLEncoding.EncodeToString(secret[:])
	return token, sha256.Sum256([]byte(token)), nil
}

// HashResetToken digests a candidate reset token for comparison against the
// stored hash.
func HashResetToken(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}
