package random

import (
	"crypto/rand"
	"math/big"
)

// Random is the source for lobby codes, syllable prompts and bot word picks
type Random interface {
	// Intn returns an int in [0, n), or 0 when n <= 0
	Intn(n int) int

	// String builds a string of length characters drawn from alphabet
	String(length int, alphabet string) string
}

// CryptoRandom draws from crypto/rand so lobby codes are not guessable
type CryptoRandom struct{}

func New() *CryptoRandom {
	return &CryptoRandom{}
}

func (CryptoRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

func (r CryptoRandom) String(length int, alphabet string) string {
	if length <= 0 || alphabet == "" {
		return ""
	}
	out := make([]byte, length)
	for i := range out {
		out[i] = alphabet[r.Intn(len(alphabet))]
	}
	return string(out)
}

// Pick returns a uniformly chosen element of items, or "" when items is empty
func Pick(r Random, items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[r.Intn(len(items))]
}
