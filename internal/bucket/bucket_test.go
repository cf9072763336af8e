package bucket

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		b := Bucket(fmt.Sprintf("checkout_v2:%d", i))
		require.GreaterOrEqual(t, b, 0)
		require.Less(t, b, 100)
	}
}

func TestBucketKnownValues(t *testing.T) {
	// Precomputed SHA-256 buckets; any client hashing the same seed must
	// land on the same value regardless of implementation.
	assert.Equal(t, 35, Bucket("new_dashboard:42"))
	assert.Equal(t, 2, Bucket("new_dashboard:variant:42"))
	assert.Equal(t, 56, Bucket("checkout_v2:user-7"))

	assert.Equal(t, 35, Bucket(EnablementSeed("new_dashboard", "42")))
	assert.Equal(t, 2, Bucket(VariantSeed("new_dashboard", "42")))
}

func TestBucketDeterminism(t *testing.T) {
	for i := 0; i < 100; i++ {
		seed := fmt.Sprintf("new_dashboard:user-%d", i)
		assert.Equal(t, Bucket(seed), Bucket(seed))
	}
}

func TestBucketDistribution(t *testing.T) {
	counts := make(map[int]int)
	const samples = 20000
	for i := 0; i < samples; i++ {
		counts[Bucket(fmt.Sprintf("perks:%d", i))]++
	}

	// Every bucket should be hit, roughly uniformly.
	for b := 0; b < 100; b++ {
		assert.Greater(t, counts[b], samples/100/2, "bucket %d underpopulated", b)
		assert.Less(t, counts[b], samples/100*2, "bucket %d overpopulated", b)
	}
}

func TestVariantSeedIndependentFromEnablementSeed(t *testing.T) {
	assert.NotEqual(t, EnablementSeed("checkout_v2", "42"), VariantSeed("checkout_v2", "42"))

	// The two decisions for the same user must not be perfectly correlated.
	differs := 0
	for i := 0; i < 1000; i++ {
		user := fmt.Sprintf("%d", i)
		if Bucket(EnablementSeed("checkout_v2", user)) != Bucket(VariantSeed("checkout_v2", user)) {
			differs++
		}
	}
	assert.Greater(t, differs, 900)
}
