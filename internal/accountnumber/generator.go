// Package accountnumber generates formatted account numbers. Numbers are
// random rather than sequential so they cannot be guessed; uniqueness is
// enforced by the accounts table constraint, with the provisioner retrying
// the astronomically rare collision.
package accountnumber

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// digits in a generated account number, NUBAN-style
const length = 10

// Random generates ten-digit account numbers from crypto/rand.
type Random struct{}

func NewRandom() *Random {
	return &Random{}
}

// Generate returns a new account number candidate.
func (Random) Generate() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < length; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate account number: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
