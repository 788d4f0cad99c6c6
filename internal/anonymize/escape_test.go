package anonymize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMySQLDoublesQuotesAndBackslashes(t *testing.T) {
	assert.Equal(t, `it''s a \\test`, string(EscapeMySQL(`it's a \test`)))
}

func TestRemoveQuotesStripsOnePair(t *testing.T) {
	assert.Equal(t, "abc", string(RemoveQuotes([]byte("'abc'"))))
	assert.Equal(t, "abc", string(RemoveQuotes([]byte("abc"))))
	assert.Equal(t, "", string(RemoveQuotes([]byte("''"))))
}

func TestRemoveQuotesEmptyInput(t *testing.T) {
	assert.Nil(t, RemoveQuotes(nil))
}
