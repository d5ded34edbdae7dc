package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spacesedan/tweetsense/internal/feed"
	"github.com/spacesedan/tweetsense/internal/models"
	"github.com/spacesedan/tweetsense/internal/sentiment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type keywordClassifier struct {
	err error
}

func (k keywordClassifier) Classify(text string) (sentiment.Label, error) {
	if k.err != nil {
		return sentiment.Negative, k.err
	}
	if strings.Contains(strings.ToLower(text), "love") {
		return sentiment.Positive, nil
	}
	return sentiment.Negative, nil
}

func (k keywordClassifier) Engine() string { return "keyword" }

type fakeSource struct {
	posts []models.Post
}

func (f fakeSource) LookupUser(ctx context.Context, username string) (*models.TwitterUser, error) {
	if username != "gopher" {
		return nil, nil
	}
	return &models.TwitterUser{ID: "1", Username: username}, nil
}

func (f fakeSource) UserPosts(ctx context.Context, userID string, maxResults int) ([]models.Post, error) {
	if len(f.posts) > maxResults {
		return f.posts[:maxResults], nil
	}
	return f.posts, nil
}

type memoryRecorder struct {
	batches [][]models.Analysis
	err     error
}

func (m *memoryRecorder) Record(ctx context.Context, analyses []models.Analysis) error {
	m.batches = append(m.batches, analyses)
	return m.err
}

func (m *memoryRecorder) Recent(ctx context.Context, n int) ([]models.Analysis, error) {
	var out []models.Analysis
	for i := len(m.batches) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.batches[i]...)
	}
	return out, nil
}

func TestAnalyzeText(t *testing.T) {
	t.Parallel()
	rec := &memoryRecorder{}
	svc := NewService(keywordClassifier{}, WithRecorder(rec))

	a, err := svc.AnalyzeText(context.Background(), "I love this")
	require.NoError(t, err)
	assert.Equal(t, "Positive", a.Label)
	assert.Equal(t, models.SourceText, a.Source)
	assert.Equal(t, "keyword", a.Engine)
	assert.NotEmpty(t, a.ID)
	require.Len(t, rec.batches, 1)
	assert.Equal(t, a, rec.batches[0][0])
}

func TestAnalyzeText_Blank(t *testing.T) {
	t.Parallel()
	rec := &memoryRecorder{}
	svc := NewService(keywordClassifier{}, WithRecorder(rec))

	_, err := svc.AnalyzeText(context.Background(), " \n\t ")
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Empty(t, rec.batches)
}

func TestAnalyzeText_ClassifierErrorPropagates(t *testing.T) {
	t.Parallel()
	boom := errors.New("vectorizer exploded")
	svc := NewService(keywordClassifier{err: boom})

	_, err := svc.AnalyzeText(context.Background(), "anything")
	assert.ErrorIs(t, err, boom)
}

func TestAnalyzeText_RecorderFailureIgnored(t *testing.T) {
	t.Parallel()
	svc := NewService(keywordClassifier{}, WithRecorder(&memoryRecorder{err: errors.New("down")}))

	a, err := svc.AnalyzeText(context.Background(), "meh")
	require.NoError(t, err)
	assert.Equal(t, "Negative", a.Label)
}

func TestAnalyzeUser(t *testing.T) {
	t.Parallel()
	posts := []models.Post{{ID: "a", Text: "love it"}, {ID: "b", Text: "nope"}, {ID: "c", Text: "LOVE"}}
	rec := &memoryRecorder{}
	svc := NewService(keywordClassifier{},
		WithFetcher(feed.NewFetcher(fakeSource{posts: posts}, 100)),
		WithRecorder(rec))

	report, err := svc.AnalyzeUser(context.Background(), "@gopher", 5)
	require.NoError(t, err)
	assert.Equal(t, "gopher", report.Username)
	assert.Equal(t, 5, report.Requested)
	require.Len(t, report.Posts, 3)
	assert.Equal(t, 2, report.Positive)
	assert.Equal(t, 1, report.Negative)
	assert.Equal(t, "b", report.Posts[1].Analysis.PostID)
	assert.Equal(t, models.SourceTwitter, report.Posts[1].Analysis.Source)

	require.Len(t, rec.batches, 1)
	assert.Len(t, rec.batches[0], 3)
}

func TestAnalyzeUser_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	disabled := NewService(keywordClassifier{})
	_, err := disabled.AnalyzeUser(ctx, "gopher", 5)
	assert.ErrorIs(t, err, ErrFeedDisabled)
	assert.False(t, disabled.FeedEnabled())

	svc := NewService(keywordClassifier{}, WithFetcher(feed.NewFetcher(fakeSource{}, 100)))
	_, err = svc.AnalyzeUser(ctx, "  ", 5)
	assert.ErrorIs(t, err, ErrEmptyUsername)

	_, err = svc.AnalyzeUser(ctx, "ghost", 5)
	assert.ErrorIs(t, err, feed.ErrUserNotFound)

	report, err := svc.AnalyzeUser(ctx, "gopher", 5)
	assert.ErrorIs(t, err, feed.ErrNoPosts)
	require.NotNil(t, report)
	assert.Empty(t, report.Posts)
}

func TestAnalyzeUser_ClassifierErrorAbortsReport(t *testing.T) {
	t.Parallel()
	boom := errors.New("model failure")
	rec := &memoryRecorder{}
	svc := NewService(keywordClassifier{err: boom},
		WithFetcher(feed.NewFetcher(fakeSource{posts: []models.Post{{ID: "a", Text: "x"}}}, 100)),
		WithRecorder(rec))

	report, err := svc.AnalyzeUser(context.Background(), "gopher", 5)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, rec.batches)
}

func TestRecent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	none, err := NewService(keywordClassifier{}).Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	rec := &memoryRecorder{}
	svc := NewService(keywordClassifier{}, WithRecorder(rec), WithHistory(rec))
	_, err = svc.AnalyzeText(ctx, "first")
	require.NoError(t, err)
	_, err = svc.AnalyzeText(ctx, "second love")
	require.NoError(t, err)

	recent, err := svc.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "second love", recent[0].Text)
	assert.True(t, svc.HistoryEnabled())
}
