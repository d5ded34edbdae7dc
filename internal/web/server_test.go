package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spacesedan/tweetsense/internal/analysis"
	"github.com/spacesedan/tweetsense/internal/clients"
	"github.com/spacesedan/tweetsense/internal/feed"
	"github.com/spacesedan/tweetsense/internal/models"
	"github.com/spacesedan/tweetsense/internal/monitoring"
	"github.com/spacesedan/tweetsense/internal/sentiment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type keywordClassifier struct{ err error }

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
	posts    []models.Post
	postsErr error
}

func (f fakeSource) LookupUser(ctx context.Context, username string) (*models.TwitterUser, error) {
	if username == "ghost" {
		return nil, nil
	}
	return &models.TwitterUser{ID: "1", Username: username}, nil
}

func (f fakeSource) UserPosts(ctx context.Context, userID string, maxResults int) ([]models.Post, error) {
	return f.posts, f.postsErr
}

func newRouter(t *testing.T, classifier sentiment.Classifier, src feed.Source) *gin.Engine {
	t.Helper()
	opts := []analysis.Option{}
	if src != nil {
		opts = append(opts, analysis.WithFetcher(feed.NewFetcher(src, 100)))
	}
	return NewRouter(analysis.NewService(classifier, opts...), monitoring.NewRegistry(), 20)
}

func postForm(router http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestIndex(t *testing.T) {
	t.Parallel()
	router := newRouter(t, keywordClassifier{}, nil)

	w := get(router, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Enter text to analyze sentiment")

	w = get(router, "/?mode=user")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Twitter API not configured!")
	assert.Contains(t, w.Body.String(), "<h3>Setup Instructions:</h3>")
}

func TestAnalyzeTextForm(t *testing.T) {
	t.Parallel()
	router := newRouter(t, keywordClassifier{}, nil)

	w := postForm(router, "/analyze/text", url.Values{"text": {"I love this"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Sentiment: Positive")

	w = postForm(router, "/analyze/text", url.Values{"text": {"   "}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Please enter some text to analyze.")
}

func TestAnalyzeTextForm_ClassifierFailure(t *testing.T) {
	t.Parallel()
	router := newRouter(t, keywordClassifier{err: errors.New("bad artifact")}, nil)

	w := postForm(router, "/analyze/text", url.Values{"text": {"hello"}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAnalyzeUserForm_RendersCards(t *testing.T) {
	t.Parallel()
	src := fakeSource{posts: []models.Post{
		{ID: "1", Text: "love <b>this</b>"},
		{ID: "2", Text: "meh"},
	}}
	router := newRouter(t, keywordClassifier{}, src)

	w := postForm(router, "/analyze/user", url.Values{"username": {"gopher"}, "count": {"5"}})
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "Found 2 tweets")
	assert.Contains(t, body, "background-color: green")
	assert.Contains(t, body, "background-color: red")
	assert.Contains(t, body, "Positive Sentiment")
	assert.Contains(t, body, "love &lt;b&gt;this&lt;/b&gt;")
}

func TestAnalyzeUserForm_Messages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		src      fakeSource
		username string
		want     string
	}{
		{name: "blank username", username: " ", want: "Please enter a username."},
		{name: "user not found", username: "ghost", want: "User not found"},
		{name: "no posts", username: "quiet", want: "No tweets found for @quiet."},
		{
			name:     "api error",
			src:      fakeSource{postsErr: &clients.APIError{StatusCode: http.StatusUnauthorized, Title: "Unauthorized"}},
			username: "gopher",
			want:     "API Error: 401 Unauthorized - Unauthorized",
		},
		{
			name:     "other error",
			src:      fakeSource{postsErr: errors.New("boom")},
			username: "gopher",
			want:     "Error: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(t, keywordClassifier{}, tt.src)
			w := postForm(router, "/analyze/user", url.Values{"username": {tt.username}, "count": {"5"}})
			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestParseCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 5, parseCount("", 20))
	assert.Equal(t, 1, parseCount("0", 20))
	assert.Equal(t, 20, parseCount("500", 20))
	assert.Equal(t, 7, parseCount("7", 20))
}

func TestAPI_Sentiment(t *testing.T) {
	t.Parallel()
	router := newRouter(t, keywordClassifier{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sentiment", strings.NewReader(`{"text":"love it"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var a models.Analysis
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	assert.Equal(t, "Positive", a.Label)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/sentiment", strings.NewReader(`{"text":""}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_UserSentiment(t *testing.T) {
	t.Parallel()
	src := fakeSource{posts: []models.Post{{ID: "1", Text: "love"}}}

	w := get(newRouter(t, keywordClassifier{}, src), "/api/v1/users/gopher/sentiment?count=3")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Report models.UserReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Report.Positive)
	assert.Equal(t, 3, body.Report.Requested)

	assert.Equal(t, http.StatusNotFound, get(newRouter(t, keywordClassifier{}, src), "/api/v1/users/ghost/sentiment").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(newRouter(t, keywordClassifier{}, nil), "/api/v1/users/gopher/sentiment").Code)
	assert.Equal(t, http.StatusBadRequest, get(newRouter(t, keywordClassifier{}, src), "/api/v1/users/gopher/sentiment?count=x").Code)

	apiDown := fakeSource{postsErr: &clients.APIError{StatusCode: http.StatusServiceUnavailable}}
	assert.Equal(t, http.StatusBadGateway, get(newRouter(t, keywordClassifier{}, apiDown), "/api/v1/users/gopher/sentiment").Code)
}

func TestAPI_RecentAndHealth(t *testing.T) {
	t.Parallel()
	router := newRouter(t, keywordClassifier{}, nil)

	w := get(router, "/api/v1/analyses/recent")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"analyses":[]}`, w.Body.String())

	w = get(router, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","engine":"keyword","feed_enabled":false,"backends":{}}`, w.Body.String())
}

func TestHTTPServer_WriteTimeoutCoversRateLimitWait(t *testing.T) {
	t.Parallel()

	srv := NewHTTPServer(":0", http.NotFoundHandler())
	assert.Greater(t, handlerTimeout, clients.MAX_BACKOFF)
	assert.Greater(t, srv.WriteTimeout, handlerTimeout)
}

func TestRequestDeadline_CancelsSlowHandlers(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.Use(requestDeadline(20 * time.Millisecond))
	router.GET("/wait", func(c *gin.Context) {
		select {
		case <-c.Request.Context().Done():
			c.Status(http.StatusGatewayTimeout)
		case <-time.After(5 * time.Second):
			c.Status(http.StatusOK)
		}
	})

	assert.Equal(t, http.StatusGatewayTimeout, get(router, "/wait").Code)
}

type blockingSource struct{ fakeSource }

func (blockingSource) UserPosts(ctx context.Context, userID string, maxResults int) ([]models.Post, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRequestDeadline_StopsFeedWaits(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.Use(requestDeadline(20 * time.Millisecond))
	s := &Server{svc: analysis.NewService(keywordClassifier{}, analysis.WithFetcher(feed.NewFetcher(blockingSource{}, 100)))}
	router.GET("/api/v1/users/:username/sentiment", s.analyzeUserJSON)

	w := get(router, "/api/v1/users/gopher/sentiment")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "context deadline exceeded")
}
