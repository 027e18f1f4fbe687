package sitegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemplatePlainText(t *testing.T) {
	nodes, err := ParseTemplate("hello world")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	text, ok := nodes[0].(PlainTextNode)
	require.True(t, ok)
	assert.Equal(t, "hello world", text.Text)
}

func TestParseTemplateReplaceWithPipes(t *testing.T) {
	nodes, err := ParseTemplate(`{{ name | upper | $ }}`)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	replace, ok := nodes[0].(ReplaceNode)
	require.True(t, ok)
	assert.Equal(t, "name", replace.Path.Base)
	require.Len(t, replace.Pipes, 2)
	assert.Equal(t, "upper", replace.Pipes[0].Name)
	assert.True(t, replace.Pipes[1].IsTemplate)
}

func TestParseTemplateValuePathAccesses(t *testing.T) {
	nodes, err := ParseTemplate(`{{ person.name }}`)
	require.NoError(t, err)
	replace := nodes[0].(ReplaceNode)
	require.Len(t, replace.Path.Accesses, 1)
	field, ok := replace.Path.Accesses[0].(FieldAccess)
	require.True(t, ok)
	assert.Equal(t, "name", field.Name)
}

func TestParseTemplateIfExists(t *testing.T) {
	nodes, err := ParseTemplate(`{% if-exists title %}yes{% else %}no{% endif %}`)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	n, ok := nodes[0].(IfExistsNode)
	require.True(t, ok)
	assert.Equal(t, "title", n.Path.Base)
	require.Len(t, n.Then, 1)
	require.Len(t, n.Else, 1)
}

func TestParseTemplateForWithMultipleGroupingsAndSort(t *testing.T) {
	nodes, err := ParseTemplate(`{% for it in numbers, morenumbers in-file entry1.yaml in-file-at loc sort it %}{{it}}{% sep %}, {% endfor %}`)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	n, ok := nodes[0].(ForNode)
	require.True(t, ok)
	assert.Equal(t, "it", n.Bind)
	require.Len(t, n.Groupings, 1)
	grouping := n.Groupings[0]
	require.Len(t, grouping.Values, 2)
	assert.Equal(t, "numbers", grouping.Values[0].Path.Base)
	assert.Equal(t, "morenumbers", grouping.Values[1].Path.Base)
	require.Len(t, grouping.Filenames, 1)
	assert.Equal(t, "entry1.yaml", grouping.Filenames[0])
	require.Len(t, grouping.FilesAt, 1)
	assert.Equal(t, "loc", grouping.FilesAt[0].Base)
	require.NotNil(t, n.Sort.SortKey)
	assert.Equal(t, "it", n.Sort.SortKey.Base)
	require.Len(t, n.Sep, 1)
}

func TestParseTemplateForSemicolonSeparatedGroupings(t *testing.T) {
	nodes, err := ParseTemplate(`{% for it in a; in-file b.yaml %}{{it}}{% endfor %}`)
	require.NoError(t, err)
	n := nodes[0].(ForNode)
	require.Len(t, n.Groupings, 2)
	assert.Equal(t, "a", n.Groupings[0].Values[0].Path.Base)
	assert.Equal(t, "b.yaml", n.Groupings[1].Filenames[0])
}

func TestParseTemplateFileAtWithDoubleColonSplit(t *testing.T) {
	nodes, err := ParseTemplate(`{% file @name | slugify :: upper %}`)
	require.NoError(t, err)
	n, ok := nodes[0].(FileAtNode)
	require.True(t, ok)
	assert.Equal(t, "name", n.Path.Base)
	require.Len(t, n.ValuePipes, 1)
	assert.Equal(t, "slugify", n.ValuePipes[0].Name)
	require.Len(t, n.ContentsPipes, 1)
	assert.Equal(t, "upper", n.ContentsPipes[0].Name)
}

func TestParseTemplateInto(t *testing.T) {
	nodes, err := ParseTemplate(`{% into author %}{{name}}{% endinto %}`)
	require.NoError(t, err)
	n, ok := nodes[0].(IntoNode)
	require.True(t, ok)
	assert.Equal(t, "author", n.Path.Base)
	require.Len(t, n.Body, 1)
}

func TestParseTemplateLookupCatcher(t *testing.T) {
	nodes, err := ParseTemplate(`{%?%}{{primary}}{&%}{{fallback}}{?%}`)
	require.NoError(t, err)
	n, ok := nodes[0].(LookupCatcherNode)
	require.True(t, ok)
	require.Len(t, n.Alternatives, 2)
}

func TestParseTemplateUnterminatedTagIsParseError(t *testing.T) {
	_, err := ParseTemplate(`{% if-exists title %}yes`)
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}
