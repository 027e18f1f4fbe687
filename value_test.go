package sitegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentPreservesMappingOrder(t *testing.T) {
	doc, err := ParseDocument("zebra: 1\napple: 2\nmango: 3\n")
	require.NoError(t, err)
	require.Equal(t, KindMapping, doc.Kind)
	assert.Equal(t, []string{"zebra", "apple", "mango"}, doc.Mapping.Keys())
}

func TestParseDocumentScalars(t *testing.T) {
	doc, err := ParseDocument("42")
	require.NoError(t, err)
	assert.Equal(t, KindInt, doc.Kind)
	assert.Equal(t, int64(42), doc.Int)

	doc, err = ParseDocument("true")
	require.NoError(t, err)
	assert.Equal(t, KindBool, doc.Kind)
	assert.True(t, doc.Bool)

	doc, err = ParseDocument("null")
	require.NoError(t, err)
	assert.Equal(t, KindNull, doc.Kind)
}

func TestOrderedMapExtendDoesNotMutateParent(t *testing.T) {
	base := NewOrderedMap()
	base.Set("a", IntValue(1))

	extended := base.Extend("b", IntValue(2))

	assert.False(t, base.Has("b"))
	assert.True(t, extended.Has("b"))
	assert.True(t, extended.Has("a"))
}

func TestLookupFieldAndIndexAccess(t *testing.T) {
	params := NewOrderedMap()
	inner := NewOrderedMap()
	inner.Set("name", StringValue("camille"))
	params.Set("person", MappingValue(inner))
	params.Set("numbers", SequenceValue([]Value{IntValue(10), IntValue(20), IntValue(30)}))

	v, err := Lookup(ValuePath{Base: "person", Accesses: []Access{FieldAccess{Name: "name"}}}, params)
	require.NoError(t, err)
	assert.Equal(t, "camille", v.Str)

	v, err = Lookup(ValuePath{Base: "numbers", Accesses: []Access{IndexAccess{N: 1}}}, params)
	require.NoError(t, err)
	assert.Equal(t, int64(20), v.Int)
}

func TestLookupMissingKeyIsLookupShaped(t *testing.T) {
	params := NewOrderedMap()
	_, err := Lookup(ValuePath{Base: "missing"}, params)
	require.Error(t, err)
	assert.True(t, IsLookupShaped(err))

	var lookupErr *LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, KeyNotPresent, lookupErr.Kind)
}

func TestLookupIndexOutOfBoundsIsLookupShaped(t *testing.T) {
	params := NewOrderedMap()
	params.Set("numbers", SequenceValue([]Value{IntValue(1)}))
	_, err := Lookup(ValuePath{Base: "numbers", Accesses: []Access{IndexAccess{N: 5}}}, params)
	require.Error(t, err)
	assert.True(t, IsLookupShaped(err))
}

func TestLookupIndexAtResolvesInnerPath(t *testing.T) {
	params := NewOrderedMap()
	params.Set("idx", IntValue(1))
	params.Set("numbers", SequenceValue([]Value{IntValue(10), IntValue(20), IntValue(30)}))

	v, err := Lookup(ValuePath{Base: "numbers", Accesses: []Access{IndexAtAccess{Path: ValuePath{Base: "idx"}}}}, params)
	require.NoError(t, err)
	assert.Equal(t, int64(20), v.Int)
}

func TestToStringScalars(t *testing.T) {
	s, err := ToString(StringValue("hi"))
	require.NoError(t, err)
	assert.Equal(t, "hi", s)

	s, err = ToString(IntValue(7))
	require.NoError(t, err)
	assert.Equal(t, "7", s)

	s, err = ToString(BoolValue(true))
	require.NoError(t, err)
	assert.Equal(t, "true", s)

	s, err = ToString(Null())
	require.NoError(t, err)
	assert.Equal(t, "null", s)
}

func TestToStringSequenceIsFrozenDocumentForm(t *testing.T) {
	s, err := ToString(SequenceValue([]Value{IntValue(99), IntValue(88), IntValue(77)}))
	require.NoError(t, err)
	assert.Equal(t, "---\n- 99\n- 88\n- 77", s)
}

func TestToIterableRejectsNonSequence(t *testing.T) {
	_, err := ToIterable("somepath", StringValue("not a list"))
	require.Error(t, err)
	var forErr *ForOnUnindexableError
	require.ErrorAs(t, err, &forErr)
	assert.Equal(t, "somepath", forErr.Location)
}
