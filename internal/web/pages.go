package web

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/spacesedan/tweetsense/config"
	"github.com/spacesedan/tweetsense/internal/analysis"
	"github.com/spacesedan/tweetsense/internal/feed"
	"github.com/spacesedan/tweetsense/internal/models"
	"github.com/spacesedan/tweetsense/internal/sentiment"
)

const (
	modeText = "text"
	modeUser = "user"
)

type card struct {
	Text  string
	Label string
	Color string
}

type pageData struct {
	Mode        string
	Engine      string
	FeedEnabled bool
	SetupHTML   template.HTML
	MaxCount    int

	Text     string
	Username string
	Count    int

	Success string
	Warning string
	Error   string
	Cards   []card
	Recent  []models.Analysis
}

func (s *Server) page(c *gin.Context, mode string) pageData {
	if mode != modeUser {
		mode = modeText
	}
	return pageData{
		Mode:        mode,
		Engine:      s.svc.Engine(),
		FeedEnabled: s.svc.FeedEnabled(),
		SetupHTML:   s.setup,
		MaxCount:    s.maxCount,
		Count:       config.DefaultPostCount,
		Recent:      s.recent(c.Request.Context()),
	}
}

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", s.page(c, c.DefaultQuery("mode", modeText)))
}

func (s *Server) analyzeTextForm(c *gin.Context) {
	data := s.page(c, modeText)
	data.Text = c.PostForm("text")

	a, err := s.svc.AnalyzeText(c.Request.Context(), data.Text)
	switch {
	case isInputError(err):
		data.Warning = err.Error()
	case err != nil:
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "classification failed: %s", err)
		return
	default:
		data.Success = fmt.Sprintf("Sentiment: %s", a.Label)
		data.Recent = s.recent(c.Request.Context())
	}
	c.HTML(http.StatusOK, "index.html", data)
}

// parseCount bounds the form slider value to 1..maxCount.
func parseCount(raw string, maxCount int) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return config.DefaultPostCount
	}
	if n < 1 {
		return 1
	}
	if n > maxCount {
		return maxCount
	}
	return n
}

func (s *Server) analyzeUserForm(c *gin.Context) {
	data := s.page(c, modeUser)
	data.Username = c.PostForm("username")
	data.Count = parseCount(c.PostForm("count"), s.maxCount)

	if !s.svc.FeedEnabled() {
		c.HTML(http.StatusOK, "index.html", data)
		return
	}

	report, err := s.svc.AnalyzeUser(c.Request.Context(), data.Username, data.Count)
	switch {
	case isInputError(err):
		data.Warning = err.Error()
	case errors.Is(err, feed.ErrNoPosts):
		data.Error = fmt.Sprintf("No tweets found for @%s.", report.Username)
	case isFetchError(err), errors.Is(err, analysis.ErrFeedDisabled):
		data.Error = err.Error()
	case err != nil:
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "classification failed: %s", err)
		return
	default:
		data.Success = fmt.Sprintf("Found %d tweets", len(report.Posts))
		for _, p := range report.Posts {
			label := sentiment.Negative
			if p.Analysis.Label == sentiment.Positive.String() {
				label = sentiment.Positive
			}
			data.Cards = append(data.Cards, card{Text: p.Post.Text, Label: label.String(), Color: label.Color()})
		}
		data.Recent = s.recent(c.Request.Context())
	}
	c.HTML(http.StatusOK, "index.html", data)
}
