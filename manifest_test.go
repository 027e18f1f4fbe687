package sitegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeManifestCopyAction(t *testing.T) {
	doc, err := ParseDocument(`
- type: copy
  from: assets
  to: static
`)
	require.NoError(t, err)

	actions, err := DecodeManifest(doc)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	copyAction, ok := actions[0].(CopyFilesAction)
	require.True(t, ok)
	assert.Equal(t, "assets", copyAction.From)
	assert.Equal(t, "static", copyAction.To)
}

func TestDecodeManifestBuildAction(t *testing.T) {
	doc, err := ParseDocument(`
- type: build
  input: index.tmpl
  output: index.html
  params:
    title: Home
`)
	require.NoError(t, err)

	actions, err := DecodeManifest(doc)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	buildAction, ok := actions[0].(BuildPageAction)
	require.True(t, ok)
	assert.Equal(t, "index.tmpl", buildAction.Input)
	assert.Equal(t, "index.html", buildAction.Output)
	title, ok := buildAction.Params.Get("title")
	require.True(t, ok)
	assert.Equal(t, "Home", title.Str)
}

func TestDecodeManifestBuildMultipleAction(t *testing.T) {
	doc, err := ParseDocument(`
- type: build-multiple
  description: posts
  default:
    layout: post
  with:
    - params:
        - slug: one
        - slug: two
      mapping:
        output: "{{slug}}.html"
        input: post.tmpl
  include: publish
  exclude: draft
`)
	require.NoError(t, err)

	actions, err := DecodeManifest(doc)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	multi, ok := actions[0].(BuildMultiplePagesAction)
	require.True(t, ok)
	require.Len(t, multi.Groupings, 1)
	require.Len(t, multi.Groupings[0].Params, 2)
	require.NotNil(t, multi.Include)
	assert.Equal(t, "publish", *multi.Include)
	require.NotNil(t, multi.Exclude)
	assert.Equal(t, "draft", *multi.Exclude)
}

func TestDecodeManifestMissingTypeField(t *testing.T) {
	doc, err := ParseDocument(`
- from: a
  to: b
`)
	require.NoError(t, err)

	_, err = DecodeManifest(doc)
	require.Error(t, err)
	var atEntry *ManifestAtEntryError
	require.ErrorAs(t, err, &atEntry)
	var missing *ManifestMissingKeyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "type", missing.Key)
}

func TestDecodeManifestUnknownTypeField(t *testing.T) {
	doc, err := ParseDocument(`
- type: delete
`)
	require.NoError(t, err)

	_, err = DecodeManifest(doc)
	require.Error(t, err)
	var unexpected *ManifestUnexpectedTypeError
	require.ErrorAs(t, err, &unexpected)
	assert.Equal(t, "delete", unexpected.Value)
}

func TestDecodeManifestMissingRequiredStringField(t *testing.T) {
	doc, err := ParseDocument(`
- type: copy
  from: assets
`)
	require.NoError(t, err)

	_, err = DecodeManifest(doc)
	require.Error(t, err)
	var missing *ManifestMissingKeyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "to", missing.Key)
}
