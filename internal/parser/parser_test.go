package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html>
<head>
	<title>Example Title</title>
	<meta name="description" content="An example page">
	<script>console.log("skip me")</script>
</head>
<body>
	<h1>Heading One</h1>
	<h2>Heading Two</h2>
	<p>First paragraph of body text.</p>
	<div>Second chunk of body text.</div>
</body>
</html>`

func TestParseExtractsFields(t *testing.T) {
	p := New()
	rec := p.Parse([]byte(samplePage))
	require.NotNil(t, rec)

	assert.Equal(t, "Example Title", rec.Title)
	assert.Equal(t, "An example page", rec.MetaDescription)
	assert.Equal(t, []string{"Heading One", "Heading Two"}, rec.Headers)
	assert.Contains(t, rec.BodyText, "First paragraph of body text.")
	assert.Contains(t, rec.BodyText, "Second chunk of body text.")
	assert.NotContains(t, rec.BodyText, "skip me")
}

func TestParseFallsBackToH1ForTitle(t *testing.T) {
	p := New()
	rec := p.Parse([]byte(`<html><body><h1>Fallback Title</h1><p>body</p></body></html>`))
	require.NotNil(t, rec)
	assert.Equal(t, "Fallback Title", rec.Title)
}

func TestParseDefaultsToUntitled(t *testing.T) {
	p := New()
	rec := p.Parse([]byte(`<html><body><p>no headings here</p></body></html>`))
	require.NotNil(t, rec)
	assert.Equal(t, "Untitled", rec.Title)
}

func TestParseEmptyInputIsNil(t *testing.T) {
	p := New()
	assert.Nil(t, p.Parse(nil))
	assert.Nil(t, p.Parse([]byte{}))
}

func TestParseIsMemoized(t *testing.T) {
	p := New()
	raw := []byte(samplePage)

	first := p.Parse(raw)
	second := p.Parse(raw)

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Same(t, first, second)
}

func TestParseDropsScriptStyleIframeNoscript(t *testing.T) {
	p := New()
	rec := p.Parse([]byte(`<html><body>
		<style>.a{color:red}</style>
		<iframe src="https://ads.example.com"></iframe>
		<noscript>fallback</noscript>
		<p>Visible text</p>
	</body></html>`))
	require.NotNil(t, rec)
	assert.Equal(t, "Visible text", rec.BodyText)
}
