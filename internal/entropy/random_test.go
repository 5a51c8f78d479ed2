package entropy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeedNonNegative(t *testing.T) {
	seen := make(map[int64]bool)
	for i := 0; i < 64; i++ {
		s := Seed()
		assert.GreaterOrEqual(t, s, int64(0))
		seen[s] = true
	}
	assert.Greater(t, len(seen), 60)
}
