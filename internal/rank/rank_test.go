package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internal/searchcrawl/internal/parser"
)

func TestMatchAndRankNoMatchReturnsNil(t *testing.T) {
	page := &parser.PageRecord{Title: "Foo", BodyText: "the quick brown fox"}
	assert.Nil(t, MatchAndRank("https://example.com", "golang", page))
}

func TestMatchAndRankNilPageOrEmptyQuery(t *testing.T) {
	assert.Nil(t, MatchAndRank("https://example.com", "golang", nil))

	page := &parser.PageRecord{BodyText: "golang rocks"}
	assert.Nil(t, MatchAndRank("https://example.com", "", page))
}

func TestMatchAndRankCountsOccurrences(t *testing.T) {
	page := &parser.PageRecord{
		Title:    "About Go",
		BodyText: "go is great. go is fast. go is simple.",
	}
	result := MatchAndRank("https://example.com/go", "go", page)
	require.NotNil(t, result)
	assert.Equal(t, 3, result.Count)
	assert.Equal(t, "https://example.com/go", result.URL)
	assert.Equal(t, "About Go", result.Title)
}

func TestMatchAndRankIsCaseInsensitive(t *testing.T) {
	page := &parser.PageRecord{BodyText: "GoLang is a language"}
	result := MatchAndRank("https://example.com", "golang", page)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Count)
}

// TestRelevanceMonotonicityOnTitleMatch verifies that a query appearing in
// the title scores higher than the same body-only match without it.
func TestRelevanceMonotonicityOnTitleMatch(t *testing.T) {
	withTitle := &parser.PageRecord{
		Title:    "Learning Go Programming",
		BodyText: "this article explains go in depth",
	}
	withoutTitle := &parser.PageRecord{
		Title:    "Learning Programming",
		BodyText: "this article explains go in depth",
	}

	rWith := MatchAndRank("https://a", "go", withTitle)
	rWithout := MatchAndRank("https://b", "go", withoutTitle)

	require.NotNil(t, rWith)
	require.NotNil(t, rWithout)
	assert.Greater(t, rWith.Relevance, rWithout.Relevance)
}

// TestRelevanceMonotonicityOnHeaderMatch verifies a query present in a
// header boosts relevance over an identical body with no such header.
func TestRelevanceMonotonicityOnHeaderMatch(t *testing.T) {
	withHeader := &parser.PageRecord{
		Headers:  []string{"Go Tutorial"},
		BodyText: "go makes concurrency easy",
	}
	withoutHeader := &parser.PageRecord{
		Headers:  []string{"Tutorial"},
		BodyText: "go makes concurrency easy",
	}

	rWith := MatchAndRank("https://a", "go", withHeader)
	rWithout := MatchAndRank("https://b", "go", withoutHeader)

	require.NotNil(t, rWith)
	require.NotNil(t, rWithout)
	assert.Greater(t, rWith.Relevance, rWithout.Relevance)
}

// TestRelevanceEarlierPositionScoresNoLower checks that an earlier match in
// the body does not score lower than a later one. The position component
// uses each match's rank among the page's matches, not its offset, so with
// one match apiece both pages score the same.
func TestRelevanceEarlierPositionScoresNoLower(t *testing.T) {
	early := &parser.PageRecord{BodyText: "go appears right away, and then lots of padding follows to push length out."}
	late := &parser.PageRecord{BodyText: "lots of padding precedes the match so that go appears near the very end of this text."}

	rEarly := MatchAndRank("https://a", "go", early)
	rLate := MatchAndRank("https://b", "go", late)

	require.NotNil(t, rEarly)
	require.NotNil(t, rLate)
	assert.GreaterOrEqual(t, rEarly.Relevance, rLate.Relevance)
}

func TestMatchAndRankContextWindow(t *testing.T) {
	body := "prefix " + stringsRepeat("pad ", 40) + "golang" + " " + stringsRepeat("pad ", 40) + "suffix"
	page := &parser.PageRecord{BodyText: body}
	result := MatchAndRank("https://example.com", "golang", page)
	require.NotNil(t, result)
	assert.Contains(t, result.Context, "golang")
	assert.LessOrEqual(t, len(result.Context), len("golang")+2*contextWindow)
}

func stringsRepeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
