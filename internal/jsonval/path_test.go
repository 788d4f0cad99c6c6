package jsonval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlanon/internal/config"
)

func TestGetStringAtPath(t *testing.T) {
	v := Parse(`{"email":"test@test.com","name":"John"}`)
	require.NotNil(t, v)

	s, ok := GetString(v, "email")
	assert.True(t, ok)
	assert.Equal(t, "test@test.com", s)

	s, ok = GetString(v, "name")
	assert.True(t, ok)
	assert.Equal(t, "John", s)

	_, ok = GetString(v, "missing")
	assert.False(t, ok)
}

func TestReplaceValueAtPath(t *testing.T) {
	v := Parse(`{"email":"test@test.com","name":"John"}`)
	require.NotNil(t, v)

	ok := Replace(v, "name", "anon")
	assert.True(t, ok)
	s, _ := GetString(v, "name")
	assert.Equal(t, "anon", s)
}

func TestHasWildcards(t *testing.T) {
	assert.True(t, HasWildcards("items[]"))
	assert.True(t, HasWildcards("email_changes[][]"))
	assert.True(t, HasWildcards("[]"))
	assert.False(t, HasWildcards("email"))
	assert.False(t, HasWildcards("contact.email"))
}

func TestReplaceWithArrayWildcard(t *testing.T) {
	v := Parse(`{"items":[{"name":"a"},{"name":"b"}]}`)
	require.NotNil(t, v)
	ok := Replace(v, "items[].name", "x")
	assert.True(t, ok)
	assert.Equal(t, `{"items":[{"name":"x"},{"name":"x"}]}`, Serialize(v))
}

func TestReplaceWithFixedIndex(t *testing.T) {
	v := Parse(`{"items":["a","b","c"]}`)
	require.NotNil(t, v)
	ok := Replace(v, "items[1]", "x")
	assert.True(t, ok)
	assert.Equal(t, `{"items":["a","x","c"]}`, Serialize(v))
}

func TestAnonymizeAtPathAppliesRule(t *testing.T) {
	v := Parse(`{"name":"Alice","email":"alice@example.com"}`)
	require.NotNil(t, v)

	rule := &config.AnonRule{Kind: config.KindTextHash, Length: 6}
	ok := Anonymize(v, "name", rule, []byte("secret"))
	assert.True(t, ok)
	s, _ := GetString(v, "name")
	assert.Len(t, s, 6)
	assert.NotEqual(t, "Alice", s)
}

func TestAnonymizeAtPathFixedSetsValueDirectly(t *testing.T) {
	v := Parse(`{"name":"Alice"}`)
	require.NotNil(t, v)

	rule := &config.AnonRule{Kind: config.KindFixed, FixedValue: "REDACTED"}
	ok := Anonymize(v, "name", rule, []byte("secret"))
	assert.True(t, ok)
	s, _ := GetString(v, "name")
	assert.Equal(t, "REDACTED", s)
}

func TestAnonymizeAtPathWithWildcard(t *testing.T) {
	v := Parse(`{"tags":["a","b"]}`)
	require.NotNil(t, v)

	rule := &config.AnonRule{Kind: config.KindFixed, FixedValue: "x"}
	ok := Anonymize(v, "tags[]", rule, []byte("secret"))
	assert.True(t, ok)
	assert.Equal(t, `{"tags":["x","x"]}`, Serialize(v))
}

func TestAnonymizeAtPathWithFixedIndex(t *testing.T) {
	v := Parse(`{"tags":["a","b","c"]}`)
	require.NotNil(t, v)

	rule := &config.AnonRule{Kind: config.KindFixed, FixedValue: "x"}
	ok := Anonymize(v, "tags[1]", rule, []byte("secret"))
	assert.True(t, ok)
	assert.Equal(t, `{"tags":["a","x","c"]}`, Serialize(v))
}

func TestAnonymizeAtPathWithNestedFixedIndex(t *testing.T) {
	v := Parse(`{"items":[{"tags":["a","b"]},{"tags":["c","d"]}]}`)
	require.NotNil(t, v)

	rule := &config.AnonRule{Kind: config.KindFixed, FixedValue: "x"}
	ok := Anonymize(v, "items[].tags[1]", rule, []byte("secret"))
	assert.True(t, ok)
	assert.Equal(t, `{"items":[{"tags":["a","x"]},{"tags":["c","x"]}]}`, Serialize(v))
}
