package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// base32 alphabet without padding, uppercase. Matches the ticket number
// suffix charset.
const ticketAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// IndexPicker selects a single index from [0, n). Implementations must treat
// every index as equally likely.
type IndexPicker interface {
	PickIndex(n int) (int, error)
}

// CryptoPicker draws indexes from crypto/rand.
type CryptoPicker struct{}

// PickIndex returns a uniform index in [0, n).
func (CryptoPicker) PickIndex(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("pick index: n must be positive, got %d", n)
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("pick index: %w", err)
	}
	return int(v.Int64()), nil
}

// TicketSuffix returns length uppercase base32 characters from crypto/rand.
func TicketSuffix(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("ticket suffix: length must be positive, got %d", length)
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("ticket suffix: %w", err)
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = ticketAlphabet[int(b)%len(ticketAlphabet)]
	}
	return string(out), nil
}
