package anonymize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveCodeDeterministic(t *testing.T) {
	a := DeriveCode([]byte("alice"), []byte("secret"), 10, 'a', 'z')
	b := DeriveCode([]byte("alice"), []byte("secret"), 10, 'a', 'z')
	assert.Equal(t, a, b)
}

func TestDeriveCodeDiffersByToken(t *testing.T) {
	a := DeriveCode([]byte("alice"), []byte("secret"), 10, 'a', 'z')
	b := DeriveCode([]byte("bob"), []byte("secret"), 10, 'a', 'z')
	assert.NotEqual(t, a, b)
}

func TestDeriveCodeRespectsRange(t *testing.T) {
	out := DeriveCode([]byte("x"), []byte("secret"), 32, '1', '9')
	for _, b := range out {
		assert.GreaterOrEqual(t, b, byte('1'))
		assert.LessOrEqual(t, b, byte('9'))
	}
}

func TestDeriveCodeCapsLengthAtMax(t *testing.T) {
	out := DeriveCode([]byte("x"), []byte("secret"), 1000, 'a', 'z')
	assert.Len(t, out, MaxLen)
}
