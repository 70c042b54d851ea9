package urlnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLowercasesSchemeAndHost(t *testing.T) {
	got, err := Normalize("HTTPS://Example.COM/Path")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/Path", got)
}

func TestNormalizeStripsDefaultPort(t *testing.T) {
	got, err := Normalize("https://example.com:443/path")
	require.NoError(t, err)
	assert.NotContains(t, got, ":443")
}

func TestNormalizeStripsFragment(t *testing.T) {
	got, err := Normalize("https://example.com/path#section")
	require.NoError(t, err)
	assert.NotContains(t, got, "#section")
}

func TestNormalizeEquivalentURLsMatch(t *testing.T) {
	a, err := Normalize("https://example.com/page")
	require.NoError(t, err)
	b, err := Normalize("HTTPS://EXAMPLE.COM:443/page#frag")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalizeRejectsMalformedURL(t *testing.T) {
	_, err := Normalize("ht!tp://")
	assert.Error(t, err)
}

func TestResolveRelativeLink(t *testing.T) {
	got, err := Resolve("https://example.com/dir/page.html", "other.html")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/dir/other.html", got)
}

func TestResolveAbsoluteLink(t *testing.T) {
	got, err := Resolve("https://example.com/dir/page.html", "https://other.example.com/x")
	require.NoError(t, err)
	assert.Equal(t, "https://other.example.com/x", got)
}

func TestResolveRootRelativeLink(t *testing.T) {
	got, err := Resolve("https://example.com/dir/page.html", "/top")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/top", got)
}

func TestHostReturnsLowercasedHost(t *testing.T) {
	h, err := Host("https://Example.COM/path")
	require.NoError(t, err)
	assert.Equal(t, "example.com", h)
}

func TestSameHostTrue(t *testing.T) {
	assert.True(t, SameHost("https://example.com/a", "http://EXAMPLE.com/b"))
}

func TestSameHostFalse(t *testing.T) {
	assert.False(t, SameHost("https://example.com/a", "https://other.com/b"))
}

func TestSameHostInvalidURL(t *testing.T) {
	assert.False(t, SameHost("not a url", "https://example.com"))
}
