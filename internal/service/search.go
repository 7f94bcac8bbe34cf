package service

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	sfuzzy "github.com/sahilm/fuzzy"

	"github.com/mmcdole/murmur/internal/domain"
)

// AuthorPrefix switches a query from body search to author search
const AuthorPrefix = "@"

// SearchResult is a match against the loaded comments
type SearchResult struct {
	Index          int   // Position in the list's index space
	MatchedIndexes []int // Matched character positions in the body (body search only)
	Score          int
}

// commentIndex implements sahilm/fuzzy.Source over lowercased comment bodies
type commentIndex struct {
	bodies []string
}

func (idx commentIndex) String(i int) string { return idx.bodies[i] }
func (idx commentIndex) Len() int            { return len(idx.bodies) }

// SearchComments matches query against the given comments. Plain queries
// rank bodies by fuzzy score (best first); "@name" queries match authors and
// keep list order. Results index into comments, so callers can jump to a
// match without filtering the list.
func SearchComments(comments []domain.Comment, query string) []SearchResult {
	query = strings.TrimSpace(query)
	if query == "" || len(comments) == 0 {
		return nil
	}

	if strings.HasPrefix(query, AuthorPrefix) {
		return searchAuthors(comments, strings.TrimPrefix(query, AuthorPrefix))
	}

	idx := commentIndex{bodies: make([]string, len(comments))}
	for i, c := range comments {
		idx.bodies[i] = strings.ToLower(c.Body)
	}

	matches := sfuzzy.FindFrom(strings.ToLower(query), idx)
	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		results[i] = SearchResult{Index: m.Index, MatchedIndexes: m.MatchedIndexes, Score: m.Score}
	}
	return results
}

func searchAuthors(comments []domain.Comment, name string) []SearchResult {
	if name == "" {
		return nil
	}
	var results []SearchResult
	for i, c := range comments {
		if fuzzy.MatchNormalizedFold(name, c.Author) {
			results = append(results, SearchResult{
				Index: i,
				Score: -fuzzy.LevenshteinDistance(strings.ToLower(name), strings.ToLower(c.Author)),
			})
		}
	}
	return results
}
