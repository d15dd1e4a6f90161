package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxBytes is the longest input bcrypt accepts.
const MaxBytes = 72

var ErrMismatch = errors.New("password mismatch")

func Hash(plain string) (string, error) {
	return HashWithCost(plain, bcrypt.DefaultCost)
}

func HashWithCost(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare checks plain against hash in constant time. A wrong password yields
// ErrMismatch; anything else means the stored hash is unusable.
func Compare(hash, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}
