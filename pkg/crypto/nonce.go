package crypto

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"sync/atomic"

	"github.com/uhyunpark/polyperp/pkg/util"
)

// NonceSource yields order nonces as base-10 strings
type NonceSource interface {
	Next() (string, error)
}

// MillisNonce issues the current unix time in milliseconds. Within one
// process it never repeats and never goes backwards: a call landing in the
// same millisecond as the previous one gets last+1.
type MillisNonce struct {
	clock util.Clock
	last  atomic.Int64
}

// NewMillisNonce returns a MillisNonce reading time from clock
func NewMillisNonce(clock util.Clock) *MillisNonce {
	if clock == nil {
		clock = util.RealClock{}
	}
	return &MillisNonce{clock: clock}
}

func (m *MillisNonce) Next() (string, error) {
	now := m.clock.Now().UnixMilli()
	for {
		prev := m.last.Load()
		next := max(now, prev+1)
		if m.last.CompareAndSwap(prev, next) {
			return strconv.FormatInt(next, 10), nil
		}
	}
}

var maxUint256 = new(big.Int).Lsh(big.NewInt(1), 256)

// RandomNonce issues uniformly random 256-bit nonces
type RandomNonce struct{}

func (RandomNonce) Next() (string, error) {
	n, err := rand.Int(rand.Reader, maxUint256)
	if err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return n.String(), nil
}
