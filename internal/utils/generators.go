package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// NewID returns a random UUID v4 used as primary key.
func NewID() string {
	return uuid.NewString()
}

// NewCheckinToken returns the opaque token encoded in ticket QR codes.
func NewCheckinToken() string {
	return uuid.NewString()
}

// GenerateCompanyCode returns a random 5 or 6 digit numeric code.
func GenerateCompanyCode() string {
	length := 5
	if n, err := rand.Int(rand.Reader, big.NewInt(2)); err == nil && n.Int64() == 1 {
		length = 6
	}
	max := big.NewInt(1)
	for i := 0; i < length; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return fmt.Sprintf("%0*d", length, 0)
	}
	return fmt.Sprintf("%0*d", length, n.Int64())
}
