package sitegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandBuildPageIsPassthrough(t *testing.T) {
	params := NewOrderedMap()
	params.Set("title", StringValue("hi"))
	action := BuildPageAction{Input: "in.tmpl", Output: "out.html", Params: params}

	expanded, err := Expand(action, NewPipeRegistry(), testIO(t), TemplateContext{})
	require.NoError(t, err)
	require.Len(t, expanded, 1)
	page, ok := expanded[0].(ExpandedBuildPage)
	require.True(t, ok)
	assert.Equal(t, "in.tmpl", page.Input)
	assert.Equal(t, "out.html", page.Output)
	assert.Nil(t, page.Source)
}

func TestExpandCopyFilesIsPassthrough(t *testing.T) {
	action := CopyFilesAction{From: "assets", To: "static"}
	expanded, err := Expand(action, NewPipeRegistry(), testIO(t), TemplateContext{})
	require.NoError(t, err)
	require.Len(t, expanded, 1)
	copyAction, ok := expanded[0].(ExpandedCopyFiles)
	require.True(t, ok)
	assert.Equal(t, "assets", copyAction.From)
	assert.Equal(t, "static", copyAction.To)
}

func TestExpandMultiplePagesFromInlineParams(t *testing.T) {
	mapping := NewOrderedMap()
	mapping.Set("output", StringValue("post-{{slug}}.html"))
	mapping.Set("input", StringValue("post.tmpl"))

	entryOne := NewOrderedMap()
	entryOne.Set("slug", StringValue("one"))
	entryTwo := NewOrderedMap()
	entryTwo.Set("slug", StringValue("two"))

	action := BuildMultiplePagesAction{
		DefaultParams: NewOrderedMap(),
		Groupings: []MatrixGrouping{
			{Params: []*OrderedMap{entryOne, entryTwo}, Mapping: mapping},
		},
	}

	expanded, err := Expand(action, NewPipeRegistry(), testIO(t), TemplateContext{})
	require.NoError(t, err)
	require.Len(t, expanded, 2)

	first := expanded[0].(ExpandedBuildPage)
	assert.Equal(t, "post-one.html", first.Output)
	assert.Equal(t, "post.tmpl", first.Input)
	assert.Equal(t, 0, first.Source.Index)

	second := expanded[1].(ExpandedBuildPage)
	assert.Equal(t, "post-two.html", second.Output)
	assert.Equal(t, 1, second.Source.Index)
}

func TestExpandMultiplePagesFromFileEntries(t *testing.T) {
	io := testIO(t)
	require.NoError(t, io.Write("entries.yaml", "- slug: alpha\n- slug: beta\n"))

	mapping := NewOrderedMap()
	mapping.Set("output", StringValue("{{slug}}.html"))
	mapping.Set("input", StringValue("post.tmpl"))

	action := BuildMultiplePagesAction{
		DefaultParams: NewOrderedMap(),
		Groupings: []MatrixGrouping{
			{Files: []string{"entries.yaml"}, Mapping: mapping},
		},
	}

	expanded, err := Expand(action, NewPipeRegistry(), io, TemplateContext{})
	require.NoError(t, err)
	require.Len(t, expanded, 2)
	assert.Equal(t, "alpha.html", expanded[0].(ExpandedBuildPage).Output)
	assert.Equal(t, "beta.html", expanded[1].(ExpandedBuildPage).Output)
}

func TestExpandMultiplePagesFileNotArrayFails(t *testing.T) {
	io := testIO(t)
	require.NoError(t, io.Write("entries.yaml", "slug: not-an-array\n"))

	action := BuildMultiplePagesAction{
		DefaultParams: NewOrderedMap(),
		Groupings:     []MatrixGrouping{{Files: []string{"entries.yaml"}}},
	}

	_, err := Expand(action, NewPipeRegistry(), io, TemplateContext{})
	require.Error(t, err)
	var sourced *BMSourcedError
	require.ErrorAs(t, err, &sourced)
	var fileErr *BMFIsntArrayError
	require.ErrorAs(t, err, &fileErr)
}

func TestExpandMultiplePagesFlattenExplodesArrayField(t *testing.T) {
	mapping := NewOrderedMap()
	mapping.Set("output", StringValue("out{{flat}}.txt"))
	mapping.Set("input", StringValue("page.tmpl"))

	entry := NewOrderedMap()
	entry.Set("flat", SequenceValue([]Value{IntValue(99), IntValue(88), IntValue(77)}))
	flattenKey := "flat"

	action := BuildMultiplePagesAction{
		DefaultParams: NewOrderedMap(),
		Groupings: []MatrixGrouping{
			{Params: []*OrderedMap{entry}, Mapping: mapping, Flatten: &flattenKey},
		},
	}

	expanded, err := Expand(action, NewPipeRegistry(), testIO(t), TemplateContext{})
	require.NoError(t, err)
	require.Len(t, expanded, 3)
	assert.Equal(t, "out99.txt", expanded[0].(ExpandedBuildPage).Output)
	assert.Equal(t, "out88.txt", expanded[1].(ExpandedBuildPage).Output)
	assert.Equal(t, "out77.txt", expanded[2].(ExpandedBuildPage).Output)
	assert.Equal(t, 0, *expanded[0].(ExpandedBuildPage).Source.FlattenIndex)
}

func TestExpandMultiplePagesIncludeExcludeGating(t *testing.T) {
	mapping := NewOrderedMap()
	mapping.Set("output", StringValue("{{slug}}.html"))
	mapping.Set("input", StringValue("page.tmpl"))

	keep := NewOrderedMap()
	keep.Set("slug", StringValue("keep"))
	keep.Set("publish", BoolValue(true))
	drop := NewOrderedMap()
	drop.Set("slug", StringValue("drop"))

	include := "publish"
	action := BuildMultiplePagesAction{
		DefaultParams: NewOrderedMap(),
		Groupings: []MatrixGrouping{
			{Params: []*OrderedMap{keep, drop}, Mapping: mapping},
		},
		Include: &include,
	}

	expanded, err := Expand(action, NewPipeRegistry(), testIO(t), TemplateContext{})
	require.NoError(t, err)
	require.Len(t, expanded, 1)
	assert.Equal(t, "keep.html", expanded[0].(ExpandedBuildPage).Output)
}

func TestExpandMultiplePagesMissingOutputFails(t *testing.T) {
	mapping := NewOrderedMap()
	mapping.Set("input", StringValue("page.tmpl"))

	entry := NewOrderedMap()
	action := BuildMultiplePagesAction{
		DefaultParams: NewOrderedMap(),
		Groupings:     []MatrixGrouping{{Params: []*OrderedMap{entry}, Mapping: mapping}},
	}

	_, err := Expand(action, NewPipeRegistry(), testIO(t), TemplateContext{})
	require.Error(t, err)
	var outErr *BMOutputNotSpecifiedError
	require.ErrorAs(t, err, &outErr)
}
