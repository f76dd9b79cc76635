package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSentinel = NewStd("sentinel")

func TestBuilder_PreservesChain(t *testing.T) {
	err := New(fmt.Errorf("wrapped: %w", errSentinel)).
		Component("schedule").
		Category(CategoryDatabase).
		Context("kind", 3).
		Build()

	require.Error(t, err)
	assert.True(t, Is(err, errSentinel))
	assert.Equal(t, "wrapped: sentinel", err.Error())

	var ee *EnhancedError
	require.True(t, As(err, &ee))
	assert.Equal(t, "schedule", ee.Component())
	assert.Equal(t, CategoryDatabase, ee.Category())
	assert.Equal(t, map[string]any{"kind": 3}, ee.Context())
}

func TestNewf_WrapVerb(t *testing.T) {
	err := Newf("lookup %d: %w", 9, errSentinel).Category(CategoryNotFound).Build()
	assert.True(t, Is(err, errSentinel))
	assert.Equal(t, CategoryNotFound, CategoryOf(err))
	assert.Equal(t, CategoryGeneric, CategoryOf(errSentinel))
}

func TestReporter(t *testing.T) {
	var got []*EnhancedError
	SetReporter(func(e *EnhancedError) { got = append(got, e) })
	t.Cleanup(func() { SetReporter(nil) })

	_ = Newf("first").Component("registry").Build()
	_ = Newf("second").Build()

	require.Len(t, got, 2)
	assert.Equal(t, "registry", got[0].Component())
	assert.Equal(t, CategoryGeneric, got[1].Category())
}

func TestContext_ReturnsCopy(t *testing.T) {
	err := Newf("x").Context("a", 1).Build()
	var ee *EnhancedError
	require.True(t, As(err, &ee))
	ctx := ee.Context()
	ctx["a"] = 2
	assert.Equal(t, 1, ee.Context()["a"])
}
