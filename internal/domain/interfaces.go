package domain

import "context"

// PageFetcher produces one page of comments.
// It returns at most pageSize items; fewer (including none) means the source
// is exhausted. Latency and content generation are the fetcher's concern.
type PageFetcher interface {
	FetchPage(ctx context.Context, page, pageSize int) ([]Comment, error)
}

// PageFetcherFunc adapts a function to PageFetcher
type PageFetcherFunc func(ctx context.Context, page, pageSize int) ([]Comment, error)

// FetchPage calls f
func (f PageFetcherFunc) FetchPage(ctx context.Context, page, pageSize int) ([]Comment, error) {
	return f(ctx, page, pageSize)
}
