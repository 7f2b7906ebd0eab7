package auth

import (
	"bytes"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateResetCode_SixDigits(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GenerateResetCode()
		require.NoError(t, err)
		require.Len(t, code, ResetCodeDigits)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestGenerateResetCode_LowerBound(t *testing.T) {
	code, err := generateResetCode(bytes.NewReader(make([]byte, 64)))
	require.NoError(t, err)
	assert.Equal(t, "100000", code)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGenerateResetCode_ReaderError(t *testing.T) {
	_, err := generateResetCode(failingReader{})
	assert.ErrorContains(t, err, "entropy exhausted")
}
