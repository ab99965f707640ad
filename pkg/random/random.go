package random

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// DefaultCharset is the alphabet token strings are drawn from.
const DefaultCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var ErrInvalidRange = errors.New("invalid length range")

// String returns a cryptographically random string over charset with a length
// drawn uniformly from [minLength, maxLength]. Randomizing the length makes
// issued tokens harder to fingerprint by size.
func String(charset string, minLength, maxLength int) (string, error) {
	if charset == "" {
		charset = DefaultCharset
	}
	if minLength <= 0 || maxLength < minLength {
		return "", ErrInvalidRange
	}

	length := minLength
	if maxLength > minLength {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(maxLength-minLength+1)))
		if err != nil {
			return "", err
		}
		length = minLength + int(n.Int64())
	}

	out := make([]byte, length)
	max := big.NewInt(int64(len(charset)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = charset[n.Int64()]
	}

	return string(out), nil
}
