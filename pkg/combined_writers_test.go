package pkg

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type faultyWriter struct{}

func (fw *faultyWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestCombinedWriter_Write(t *testing.T) {
	sb1 := &strings.Builder{}
	sb2 := &strings.Builder{}

	cw := NewCombinedWriter(sb1, sb2)
	require.NotNil(t, cw)
	assert.Len(t, cw.Writers, 2)

	msg1 := "a message"
	msg2 := "another message here"
	n, err := cw.Write([]byte(msg1))
	require.NoError(t, err)
	assert.Equal(t, len(msg1)*len(cw.Writers), n)
	n, err = cw.Write([]byte(msg2))
	require.NoError(t, err)
	assert.Equal(t, len(msg2)*len(cw.Writers), n)

	assert.Equal(t, msg1+msg2, sb1.String())
	assert.Equal(t, msg1+msg2, sb2.String())
}

func TestCombinedWriter_Write_WithError(t *testing.T) {
	fw := &faultyWriter{}
	sb := &strings.Builder{}

	cw := NewCombinedWriter(fw, sb)
	require.NotNil(t, cw)

	msg := "a message"
	n, err := cw.Write([]byte(msg))
	assert.Error(t, err)
	// healthy writer still written to
	assert.Equal(t, len(msg), n)
	assert.Equal(t, msg, sb.String())
}
