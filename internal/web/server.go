package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/russross/blackfriday/v2"
	"github.com/spacesedan/tweetsense/internal/analysis"
	"github.com/spacesedan/tweetsense/internal/clients"
	"github.com/spacesedan/tweetsense/internal/feed"
	"github.com/spacesedan/tweetsense/internal/models"
	"github.com/spacesedan/tweetsense/internal/monitoring"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed setup.md
var setupMarkdown []byte

const (
	recentOnPage = 10

	// One full rate-limit wait must fit in a request, and the handler has to
	// give up before the server stops accepting its response.
	handlerTimeout = clients.MAX_BACKOFF + time.Minute
	writeTimeout   = handlerTimeout + 30*time.Second
)

type Server struct {
	svc      *analysis.Service
	health   *monitoring.Registry
	maxCount int
	setup    template.HTML
}

// NewRouter wires the HTML pages and the JSON API onto a gin engine. health
// may be nil.
func NewRouter(svc *analysis.Service, health *monitoring.Registry, maxCount int) *gin.Engine {
	s := &Server{
		svc:      svc,
		health:   health,
		maxCount: maxCount,
		setup:    template.HTML(blackfriday.Run(setupMarkdown)),
	}

	router := gin.New()
	router.Use(requestLogger(), gin.Recovery(), requestDeadline(handlerTimeout))
	router.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))

	router.GET("/", s.index)
	router.POST("/analyze/text", s.analyzeTextForm)
	router.POST("/analyze/user", s.analyzeUserForm)
	router.GET("/healthz", s.healthz)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/sentiment", s.analyzeTextJSON)
		v1.GET("/users/:username/sentiment", s.analyzeUserJSON)
		v1.GET("/analyses/recent", s.recentJSON)
	}

	return router
}

// NewHTTPServer applies the timeouts used in every environment.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
	}
}

// requestDeadline cancels the request context after d so outbound calls and
// rate-limit waits stop before the write deadline.
func requestDeadline(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("error", c.Errors.String()))
			slog.Error("[Web] Request failed", attrs...)
			return
		}
		slog.Info("[Web] Request", attrs...)
	}
}

func (s *Server) healthz(c *gin.Context) {
	backends := map[string]bool{}
	if s.health != nil {
		backends = s.health.Snapshot()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"engine":       s.svc.Engine(),
		"feed_enabled": s.svc.FeedEnabled(),
		"backends":     backends,
	})
}

func (s *Server) recent(ctx context.Context) []models.Analysis {
	if !s.svc.HistoryEnabled() {
		return nil
	}
	analyses, err := s.svc.Recent(ctx, recentOnPage)
	if err != nil {
		slog.Warn("[Web] Failed to load recent analyses", slog.String("error", err.Error()))
		return nil
	}
	return analyses
}

func isInputError(err error) bool {
	return errors.Is(err, analysis.ErrEmptyText) || errors.Is(err, analysis.ErrEmptyUsername)
}

// isFetchError matches every failure the feed reports as a user message.
func isFetchError(err error) bool {
	var fe *feed.FetchError
	return errors.Is(err, feed.ErrUserNotFound) || errors.As(err, &fe)
}
