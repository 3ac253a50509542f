package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	got, err := Generate("book")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "book-"))
	// prefix + "-" + 21-char NanoID
	assert.Len(t, got, len("book-")+21)
}

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for range 100 {
		id, err := Generate("user")
		require.NoError(t, err)

		_, dup := seen[id]
		require.False(t, dup, "generated duplicate ID %s", id)
		seen[id] = struct{}{}
	}
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		id := MustGenerate("test")
		assert.NotEmpty(t, id)
	})
}
