package crypto

import (
	"math/big"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/uhyunpark/polyperp/pkg/util"
)

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func TestMillisNonceSameMillisecond(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	n := NewMillisNonce(util.FixedClock{At: at})

	for i := int64(0); i < 3; i++ {
		got, err := n.Next()
		if err != nil {
			t.Fatal(err)
		}
		if want := strconv.FormatInt(at.UnixMilli()+i, 10); got != want {
			t.Errorf("nonce %d = %s, want %s", i, got, want)
		}
	}
}

func TestMillisNonceNeverGoesBackwards(t *testing.T) {
	clock := &stepClock{t: time.UnixMilli(2000)}
	n := NewMillisNonce(clock)

	first, _ := n.Next()
	clock.set(time.UnixMilli(1000)) // wall clock stepped back
	second, _ := n.Next()
	clock.set(time.UnixMilli(5000))
	third, _ := n.Next()

	if first != "2000" || second != "2001" || third != "5000" {
		t.Errorf("nonces = %s, %s, %s; want 2000, 2001, 5000", first, second, third)
	}
}

func TestMillisNonceConcurrentUnique(t *testing.T) {
	n := NewMillisNonce(util.FixedClock{At: time.UnixMilli(1)})

	const workers, each = 16, 200
	var (
		mu   sync.Mutex
		seen = make(map[string]bool, workers*each)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				v, err := n.Next()
				if err != nil {
					t.Error(err)
					return
				}
				mu.Lock()
				if seen[v] {
					t.Errorf("duplicate nonce %s", v)
				}
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*each {
		t.Errorf("got %d nonces, want %d", len(seen), workers*each)
	}
}

func TestRandomNonce(t *testing.T) {
	var src NonceSource = RandomNonce{}
	a, err := src.Next()
	if err != nil {
		t.Fatalf("failed to generate nonce: %v", err)
	}
	b, err := src.Next()
	if err != nil {
		t.Fatalf("failed to generate second nonce: %v", err)
	}
	if a == b {
		t.Error("generated identical 256-bit nonces")
	}

	v, ok := new(big.Int).SetString(a, 10)
	if !ok || v.Sign() < 0 || v.BitLen() > 256 {
		t.Errorf("nonce %s is not a uint256", a)
	}
}
