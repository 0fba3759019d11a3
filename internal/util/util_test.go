package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRandomString(t *testing.T) {
	s := GenerateRandomString(16)
	assert.Len(t, s, 16)
	for _, c := range s {
		assert.True(t, strings.ContainsRune(letterBytes, c), "unexpected rune %q", c)
	}

	assert.Empty(t, GenerateRandomString(0))
	assert.Empty(t, GenerateRandomString(-3))
}
