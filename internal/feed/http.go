package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/murmur/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "murmur/1.0"
	commentsPath   = "/api/comments"
)

// pageResponse is the JSON body of a comments page
type pageResponse struct {
	Comments []domain.Comment `json:"comments"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// HTTPFetcher implements domain.PageFetcher against a comments endpoint
type HTTPFetcher struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPFetcher creates a fetcher for baseURL (e.g. http://localhost:8080)
func NewHTTPFetcher(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchPage requests one page and validates every comment in it
func (f *HTTPFetcher) FetchPage(ctx context.Context, page, pageSize int) ([]domain.Comment, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))
	reqURL := fmt.Sprintf("%s%s?%s", f.baseURL, commentsPath, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	f.logger.Debug("comments request", "url", reqURL)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		f.logger.Error("comments request error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("%w: unexpected status code %d", domain.ErrFetchFailed, resp.StatusCode)
	}

	var parsed pageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		f.logger.Error("JSON parse error", "error", err, "bodyLen", len(body))
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	for _, c := range parsed.Comments {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	if parsed.Comments == nil {
		parsed.Comments = []domain.Comment{}
	}
	return parsed.Comments, nil
}
