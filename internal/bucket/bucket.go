// Package bucket maps identity strings to stable percentage buckets.
//
// The same seed must land in the same bucket across restarts, instances and
// reimplementations, so the reduction is pinned to SHA-256 interpreted as a
// big-endian unsigned integer modulo 100.
package bucket

import (
	"crypto/sha256"
	"math/big"
)

var hundred = big.NewInt(100)

// Bucket returns an integer in [0,100) derived from seed.
func Bucket(seed string) int {
	digest := sha256.Sum256([]byte(seed))
	n := new(big.Int).SetBytes(digest[:])
	return int(n.Mod(n, hundred).Int64())
}

// EnablementSeed is the seed for a flag's percentage-rollout decision.
func EnablementSeed(flagName, userID string) string {
	return flagName + ":" + userID
}

// VariantSeed is the seed for variant selection, independent of
// EnablementSeed so the two decisions hash independently for the same user.
func VariantSeed(flagName, userID string) string {
	return flagName + ":variant:" + userID
}
