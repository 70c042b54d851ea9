// Package rank locates query occurrences in a page record and scores
// relevance, per spec §4.5.
package rank

import (
	"strings"

	"github.com/internal/searchcrawl/internal/parser"
)

const contextWindow = 100

// component weights for the five-part relevance sum
const (
	weightTitle    = 3.0
	weightMeta     = 2.0
	weightHeaders  = 1.5
	weightContent  = 1.0
	weightPosition = 0.5
)

// Match is a single occurrence of the query in a page's body text.
type Match struct {
	Position   int
	Context    string
	LocalScore float64
}

// SearchResult is produced for a URL with at least one match.
type SearchResult struct {
	URL       string
	Title     string
	Context   string
	Count     int
	Relevance float64
}

// MatchAndRank scans page for non-overlapping case-folded occurrences of
// query and, if any exist, returns a scored SearchResult. A page with zero
// matches yields (nil).
func MatchAndRank(url, query string, page *parser.PageRecord) *SearchResult {
	if page == nil || query == "" {
		return nil
	}

	matches := findMatches(query, page)
	if len(matches) == 0 {
		return nil
	}

	best := matches[0]
	for _, m := range matches[1:] {
		if m.LocalScore > best.LocalScore {
			best = m
		}
	}

	relevance := relevance(query, page, matches)

	return &SearchResult{
		URL:       url,
		Title:     page.Title,
		Context:   best.Context,
		Count:     len(matches),
		Relevance: relevance,
	}
}

func findMatches(query string, page *parser.PageRecord) []Match {
	body := page.BodyText
	lowerBody := strings.ToLower(body)
	lowerQuery := strings.ToLower(query)
	if lowerQuery == "" {
		return nil
	}

	lowerHeaders := strings.ToLower(strings.Join(page.Headers, " "))
	containsInHeaders := strings.Contains(lowerHeaders, lowerQuery)

	var matches []Match
	bodyLen := len(lowerBody)
	start := 0
	for {
		idx := strings.Index(lowerBody[start:], lowerQuery)
		if idx < 0 {
			break
		}
		pos := start + idx

		ctxStart := max(0, pos-contextWindow)
		ctxEnd := min(bodyLen, pos+len(lowerQuery)+contextWindow)
		context := lowerBody[ctxStart:ctxEnd]

		positionFactor := 1.0
		if bodyLen > 0 {
			positionFactor = 1 - float64(pos)/float64(bodyLen)
		}
		headerFactor := 1.0
		if containsInHeaders {
			headerFactor = 1.5
		}

		matches = append(matches, Match{
			Position:   pos,
			Context:    context,
			LocalScore: 1 * (1 + positionFactor) * headerFactor,
		})

		start = pos + len(lowerQuery)
		if start >= bodyLen {
			break
		}
	}

	return matches
}

func relevance(query string, page *parser.PageRecord, matches []Match) float64 {
	searchWords := tokenize(query)

	titleScore := fieldScore(query, searchWords, page.Title)
	metaScore := fieldScore(query, searchWords, page.MetaDescription)

	headerScore := 0.0
	for _, h := range page.Headers {
		s := fieldScore(query, searchWords, h)
		if s > headerScore {
			headerScore = s
		}
	}

	contentScore := contentScoreFor(query, searchWords, matches)
	positionScore := positionScoreFor(matches)

	return titleScore*weightTitle +
		metaScore*weightMeta +
		headerScore*weightHeaders +
		contentScore*weightContent +
		positionScore*weightPosition
}

// fieldScore is 1.0 when the full query appears in field (case-folded),
// else the Jaccard-style overlap between the query's and field's tokens.
func fieldScore(query string, searchWords []string, field string) float64 {
	if field == "" {
		return 0
	}
	if strings.Contains(strings.ToLower(field), strings.ToLower(query)) {
		return 1.0
	}
	return overlapRatio(searchWords, tokenize(field))
}

func contentScoreFor(query string, searchWords []string, matches []Match) float64 {
	if len(matches) == 0 {
		return 0
	}
	lowerQuery := strings.ToLower(query)
	var sum float64
	for _, m := range matches {
		if strings.Contains(strings.ToLower(m.Context), lowerQuery) {
			sum += 1.0
		} else {
			sum += overlapRatio(searchWords, tokenize(m.Context))
		}
	}
	mean := sum / float64(len(matches))
	if mean > 1 {
		mean = 1
	}
	return mean
}

func positionScoreFor(matches []Match) float64 {
	if len(matches) == 0 {
		return 0
	}
	ordered := make([]Match, len(matches))
	copy(ordered, matches)
	// matches are already discovered in position order
	var sum float64
	for i := range ordered {
		sum += 1.0 / float64(i+1)
	}
	return sum / float64(len(ordered))
}

func overlapRatio(searchWords, fieldWords []string) float64 {
	if len(searchWords) == 0 {
		return 0
	}
	fieldSet := make(map[string]struct{}, len(fieldWords))
	for _, w := range fieldWords {
		fieldSet[strings.ToLower(w)] = struct{}{}
	}
	var hits int
	for _, w := range searchWords {
		if _, ok := fieldSet[strings.ToLower(w)]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(searchWords))
}

func tokenize(s string) []string {
	return strings.Fields(s)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
