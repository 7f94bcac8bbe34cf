package feed

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mmcdole/murmur/internal/domain"
	"github.com/mmcdole/murmur/internal/metrics"
)

// MaxServedPageSize caps page_size on the comments endpoint
const MaxServedPageSize = 100

// Server serves comment pages from a PageFetcher over HTTP
type Server struct {
	source  domain.PageFetcher
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// NewServer creates a server backed by source. metrics may be nil.
func NewServer(source domain.PageFetcher, rec *metrics.Recorder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{source: source, metrics: rec, logger: logger}
}

// Routes builds the gin engine
func (s *Server) Routes() http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/healthz", s.handleHealthz)
	engine.GET("/api/comments", s.handleComments)
	if s.metrics != nil {
		engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	return engine
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleComments(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(domain.DefaultPageSize)))
	if err != nil || pageSize <= 0 || pageSize > MaxServedPageSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page_size"})
		return
	}

	items, err := s.source.FetchPage(c.Request.Context(), page, pageSize)
	if err != nil {
		if errors.Is(c.Request.Context().Err(), context.Canceled) {
			return
		}
		s.logger.Warn("page fetch failed", "page", page, "error", err)
		s.metrics.ObserveServed(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	s.metrics.ObserveServed(nil)
	c.JSON(http.StatusOK, pageResponse{
		Comments: items,
		Page:     page,
		PageSize: pageSize,
	})
}
