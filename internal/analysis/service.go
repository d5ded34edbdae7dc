package analysis

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/spacesedan/tweetsense/internal/feed"
	"github.com/spacesedan/tweetsense/internal/models"
	"github.com/spacesedan/tweetsense/internal/sentiment"
)

var (
	ErrEmptyText     = errors.New("Please enter some text to analyze.")
	ErrEmptyUsername = errors.New("Please enter a username.")
	ErrFeedDisabled  = errors.New("Twitter API not configured!")
)

// Recorder receives every batch of analyses produced by a request.
type Recorder interface {
	Record(ctx context.Context, analyses []models.Analysis) error
}

// History serves the most recent analyses, newest first.
type History interface {
	Recent(ctx context.Context, n int) ([]models.Analysis, error)
}

type Service struct {
	classifier sentiment.Classifier
	fetcher    *feed.Fetcher
	recorders  []Recorder
	history    History
}

type Option func(*Service)

// WithFetcher enables the fetch-from-API path.
func WithFetcher(f *feed.Fetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorders = append(s.recorders, r) }
}

func WithHistory(h History) Option {
	return func(s *Service) { s.history = h }
}

func NewService(classifier sentiment.Classifier, opts ...Option) *Service {
	s := &Service{classifier: classifier}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) FeedEnabled() bool { return s.fetcher != nil }

func (s *Service) HistoryEnabled() bool { return s.history != nil }

// MaxPosts is the per-request cap, zero when the feed is disabled.
func (s *Service) MaxPosts() int {
	if s.fetcher == nil {
		return 0
	}
	return s.fetcher.MaxPosts()
}

func (s *Service) Engine() string { return s.classifier.Engine() }

func (s *Service) AnalyzeText(ctx context.Context, text string) (models.Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return models.Analysis{}, ErrEmptyText
	}

	label, err := s.classifier.Classify(text)
	if err != nil {
		return models.Analysis{}, err
	}

	a := models.NewAnalysis(models.SourceText, text, label.String(), s.classifier.Engine())
	s.record(ctx, []models.Analysis{a})
	return a, nil
}

// AnalyzeUser fetches up to count posts and classifies them in order. Fetch
// errors are returned unchanged; feed.ErrNoPosts comes back with an empty
// report.
func (s *Service) AnalyzeUser(ctx context.Context, username string, count int) (*models.UserReport, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil, ErrEmptyUsername
	}
	if s.fetcher == nil {
		return nil, ErrFeedDisabled
	}

	count = feed.ClampCount(count, s.fetcher.MaxPosts())
	start := time.Now()

	posts, err := s.fetcher.FetchPosts(ctx, username, count)
	if err != nil {
		if errors.Is(err, feed.ErrNoPosts) {
			return &models.UserReport{Username: username, Requested: count, Posts: []models.AnalyzedPost{}}, err
		}
		return nil, err
	}

	report := &models.UserReport{
		Username:  username,
		Requested: count,
		Posts:     make([]models.AnalyzedPost, 0, len(posts)),
	}
	analyses := make([]models.Analysis, 0, len(posts))

	for _, post := range posts {
		label, err := s.classifier.Classify(post.Text)
		if err != nil {
			return nil, err
		}

		a := models.NewAnalysis(models.SourceTwitter, post.Text, label.String(), s.classifier.Engine())
		a.Username = username
		a.PostID = post.ID

		if label == sentiment.Positive {
			report.Positive++
		} else {
			report.Negative++
		}
		report.Posts = append(report.Posts, models.AnalyzedPost{Post: post, Analysis: a})
		analyses = append(analyses, a)
	}

	slog.Info("[Analysis] Classified user posts",
		slog.String("username", username),
		slog.Int("posts", len(posts)),
		slog.Int("positive", report.Positive),
		slog.Duration("elapsed", time.Since(start)))

	s.record(ctx, analyses)
	return report, nil
}

// Recent returns nothing when no history store is configured.
func (s *Service) Recent(ctx context.Context, n int) ([]models.Analysis, error) {
	if s.history == nil {
		return []models.Analysis{}, nil
	}
	return s.history.Recent(ctx, n)
}

func (s *Service) record(ctx context.Context, analyses []models.Analysis) {
	for _, r := range s.recorders {
		if err := r.Record(ctx, analyses); err != nil {
			slog.Warn("[Analysis] Failed to record analyses",
				slog.Int("count", len(analyses)),
				slog.String("error", err.Error()))
		}
	}
}
