// Package parser turns raw HTML into a structured PageRecord (spec §4.3).
package parser

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/cespare/xxhash/v2"
)

// dropSelectors are the subtrees removed entirely before extraction.
const dropSelectors = "script, style, iframe, noscript"

// bodySelectors are the elements whose text makes up body_text.
const bodySelectors = "p, div, article, section"

// PageRecord is the structured result of parsing one page's HTML.
type PageRecord struct {
	Title           string
	MetaDescription string
	Headers         []string
	BodyText        string
	RawHTML         string
}

// Parser memoizes parses by a stable content fingerprint (spec §9), so
// re-parsing byte-identical HTML is free.
type Parser struct {
	mu   sync.RWMutex
	memo map[uint64]*PageRecord
}

// New creates a Parser with an empty memoization table.
func New() *Parser {
	return &Parser{memo: make(map[uint64]*PageRecord)}
}

// Parse extracts a PageRecord from raw HTML bytes. A malformed document
// yields a nil record (contained ParseError, per spec §7).
func (p *Parser) Parse(raw []byte) *PageRecord {
	if len(raw) == 0 {
		return nil
	}

	fp := xxhash.Sum64(raw)

	p.mu.RLock()
	if rec, ok := p.memo[fp]; ok {
		p.mu.RUnlock()
		return rec
	}
	p.mu.RUnlock()

	rec := parse(raw)
	if rec == nil {
		return nil
	}

	p.mu.Lock()
	p.memo[fp] = rec // last-writer-wins on a rare fingerprint collision
	p.mu.Unlock()

	return rec
}

func parse(raw []byte) *PageRecord {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	if err != nil {
		return nil
	}

	doc.Find(dropSelectors).Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if title == "" {
		title = "Untitled"
	}

	metaDescription, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	metaDescription = strings.TrimSpace(metaDescription)

	var headers []string
	doc.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			headers = append(headers, text)
		}
	})

	var bodyParts []string
	doc.Find(bodySelectors).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			bodyParts = append(bodyParts, text)
		}
	})

	return &PageRecord{
		Title:           title,
		MetaDescription: metaDescription,
		Headers:         headers,
		BodyText:        strings.Join(bodyParts, " "),
		RawHTML:         string(raw),
	}
}
