package sitegen

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineRunBuildsAndCopiesFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "index.tmpl", []byte("Welcome, {{name}}!"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "assets/logo.svg", []byte("<svg/>"), 0o644))

	manifestDoc, err := ParseDocument(`
- type: build
  input: index.tmpl
  output: index.html
  params:
    name: visitor
- type: copy
  from: assets
  to: assets
`)
	require.NoError(t, err)

	engine := NewEngine(fs, NewPipeRegistry(), WithOutputFolder("build/"))
	results, err := engine.Run(manifestDoc)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}

	written, err := afero.ReadFile(fs, "build/index.html")
	require.NoError(t, err)
	assert.Equal(t, "Welcome, visitor!", string(written))

	copied, err := afero.ReadFile(fs, "build/assets/logo.svg")
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", string(copied))
}

func TestEngineRunContinuesPastPerActionFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "ok.tmpl", []byte("fine"), 0o644))

	manifestDoc, err := ParseDocument(`
- type: build
  input: missing.tmpl
  output: broken.html
  params: {}
- type: build
  input: ok.tmpl
  output: ok.html
  params: {}
`)
	require.NoError(t, err)

	engine := NewEngine(fs, NewPipeRegistry(), WithOutputFolder("build/"))
	results, err := engine.Run(manifestDoc)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)

	written, err := afero.ReadFile(fs, "build/ok.html")
	require.NoError(t, err)
	assert.Equal(t, "fine", string(written))
}

func TestEngineDryRunWritesNothing(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "index.tmpl", []byte("hi"), 0o644))

	manifestDoc, err := ParseDocument(`
- type: build
  input: index.tmpl
  output: index.html
  params: {}
`)
	require.NoError(t, err)

	engine := NewEngine(fs, NewPipeRegistry(), WithOutputFolder("build/"), WithDryRun(true))
	results, err := engine.Run(manifestDoc)
	require.NoError(t, err)
	assert.NoError(t, results[0].Err)

	exists, err := afero.Exists(fs, "build/index.html")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSummaryCountsOkAndFailed(t *testing.T) {
	results := []ActionResult{{Index: 0}, {Index: 1, Err: assertError{}}}
	assert.Equal(t, "2 action(s): 1 ok, 1 failed", Summary(results))
}

type assertError struct{}

func (assertError) Error() string { return "boom" }
