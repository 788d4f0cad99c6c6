package anonymize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTakeCharsASCII(t *testing.T) {
	assert.Equal(t, "hello", string(TakeChars([]byte("hello world"), 5)))
}

func TestTakeCharsCountsMultiByteAsOneChar(t *testing.T) {
	src := []byte("héllo")
	out := TakeChars(src, 2)
	assert.Equal(t, "hé", string(out))
}

func TestTakeCharsCountsEscapeAsOneChar(t *testing.T) {
	src := []byte(`a\nb`)
	out := TakeChars(src, 2)
	assert.Equal(t, `a\n`, string(out))
}

func TestTakeCharsStopsOnTruncatedSequence(t *testing.T) {
	src := []byte{'a', 0xE2, 0x82}
	out := TakeChars(src, 5)
	assert.Equal(t, []byte{'a'}, out)
}

func TestTakeCharsNeverExceedsInputLength(t *testing.T) {
	out := TakeChars([]byte("hi"), 100)
	assert.Equal(t, "hi", string(out))
}
