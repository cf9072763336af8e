package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestEvaluator() *Evaluator {
	return NewEvaluator(zap.NewNop())
}

func TestIncludesEquality(t *testing.T) {
	e := newTestEvaluator()

	assert.True(t, e.Includes("role == 'vip'", map[string]any{"role": "vip"}))
	assert.False(t, e.Includes("role == 'vip'", map[string]any{"role": "guest"}))
	assert.False(t, e.Includes("role == 'vip'", map[string]any{}))
}

func TestIncludesBuiltins(t *testing.T) {
	e := newTestEvaluator()
	attrs := map[string]any{
		"email":    "dev@example.com",
		"username": "beta_tester",
	}

	assert.True(t, e.Includes("ends_with(email, '@example.com')", attrs))
	assert.False(t, e.Includes("ends_with(email, '@other.com')", attrs))
	assert.True(t, e.Includes("starts_with(username, 'beta_')", attrs))
	assert.True(t, e.Includes("contains(username, 'tester')", attrs))
}

func TestIncludesNormalizesNumericAttributes(t *testing.T) {
	e := newTestEvaluator()

	// Integer-typed ids compare like the float64 values JSON decoding yields.
	assert.True(t, e.Includes("id == `42`", map[string]any{"id": 42}))
	assert.True(t, e.Includes("id == `42`", map[string]any{"id": int64(42)}))
	assert.True(t, e.Includes("id == `42`", map[string]any{"id": float64(42)}))
}

func TestIncludesStringifiesUnknownTypes(t *testing.T) {
	e := newTestEvaluator()

	type custom struct{}
	assert.True(t, e.Includes("not_null(extra)", map[string]any{"extra": custom{}}))
}

func TestIncludesFailsClosed(t *testing.T) {
	e := newTestEvaluator()
	attrs := map[string]any{"role": "vip"}

	// Malformed definitions or evaluation-time type errors never escape.
	assert.False(t, e.Includes("role == ", attrs))
	assert.False(t, e.Includes("ends_with(role)", attrs))
	assert.False(t, e.Includes("", attrs))
}

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(nil))
	assert.True(t, Truthy(true))
	assert.False(t, Truthy(false))
	assert.False(t, Truthy(""))
	assert.True(t, Truthy("x"))
	assert.False(t, Truthy(float64(0)))
	assert.True(t, Truthy(float64(0.5)))
	assert.False(t, Truthy([]any{}))
	assert.True(t, Truthy([]any{"a"}))
	assert.False(t, Truthy(map[string]any{}))
	assert.True(t, Truthy(map[string]any{"a": 1}))
}
