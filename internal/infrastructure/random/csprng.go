package random

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"
	"time"
)

// CSPRNG implements ports.RandomSource on top of crypto/rand, never
// math/rand, since the Coordinator's split ratios and delays must not be
// predictable to an observer correlating deposits with withdrawals.
type CSPRNG struct{}

// New returns a CSPRNG random source.
func New() *CSPRNG {
	return &CSPRNG{}
}

func (*CSPRNG) Float64() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("random: entropy source failed: " + err.Error())
	}
	// 53 bits of entropy, matching math/rand's Float64 precision.
	v := binary.BigEndian.Uint64(buf[:]) >> 11
	return float64(v) / float64(uint64(1)<<53)
}

func (c *CSPRNG) UniformFloat(lo, hi float64) float64 {
	return lo + c.Float64()*(hi-lo)
}

func (c *CSPRNG) UniformDuration(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	span := int64(hi - lo)
	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		panic("random: entropy source failed: " + err.Error())
	}
	return lo + time.Duration(n.Int64())
}

func (*CSPRNG) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("random: entropy source failed: " + err.Error())
	}
	return int(v.Int64())
}

// Shuffle runs Fisher-Yates using this source for each draw.
func (c *CSPRNG) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := c.IntN(i + 1)
		swap(i, j)
	}
}
