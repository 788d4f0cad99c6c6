package jsonval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveSQLBackslash(t *testing.T) {
	assert.Equal(t, "hello", RemoveSQLBackslash(`hello`))
	assert.Equal(t, `a"b`, RemoveSQLBackslash(`a\"b`))
	assert.Equal(t, `a\b`, RemoveSQLBackslash(`a\\b`))
	assert.Equal(t, `end\`, RemoveSQLBackslash(`end\\`))
}

func TestAddSQLBackslash(t *testing.T) {
	assert.Equal(t, "hello", AddSQLBackslash("hello"))
	assert.Equal(t, `a\"b`, AddSQLBackslash(`a"b`))
	assert.Equal(t, `a\\b`, AddSQLBackslash(`a\b`))
}
