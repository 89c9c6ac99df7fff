package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomBytes(t *testing.T) {
	b1, err := GenerateRandomBytes(32)
	require.NoError(t, err)
	assert.Len(t, b1, 32)

	b2, err := GenerateRandomBytes(32)
	require.NoError(t, err)
	assert.NotEqual(t, b1, b2)
}
