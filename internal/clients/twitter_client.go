package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spacesedan/tweetsense/internal/models"
	"golang.org/x/oauth2"
)

const (
	TWITTER_USER_FIELDS  = "id,name,username"
	TWITTER_TWEET_FIELDS = "created_at,public_metrics"

	twitterNotFoundProblem = "https://api.twitter.com/2/problems/resource-not-found"
)

var ErrMissingBearerToken = errors.New("[TwitterClient] bearer token is missing")

// APIError is a non-2xx reply from the Twitter API.
type APIError struct {
	StatusCode int
	Title      string
	Detail     string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	if e.Title != "" {
		msg += " - " + e.Title
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

type TwitterClientOptions struct {
	BaseURL         string
	BearerToken     string
	Timeout         time.Duration
	WaitOnRateLimit bool
}

type TwitterClient struct {
	Client          *http.Client
	BaseURL         string
	WaitOnRateLimit bool

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewTwitterClient builds an app-only client that signs every request with
// the bearer token.
func NewTwitterClient(opts TwitterClientOptions) (*TwitterClient, error) {
	if opts.BearerToken == "" {
		return nil, ErrMissingBearerToken
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: opts.BearerToken,
		TokenType:   "Bearer",
	})

	slog.Info("[TwitterClient] Initializing Client",
		slog.String("base_url", opts.BaseURL),
		slog.Duration("timeout", opts.Timeout),
		slog.Bool("wait_on_rate_limit", opts.WaitOnRateLimit))

	return &TwitterClient{
		Client: &http.Client{
			Transport: &oauth2.Transport{Source: src, Base: http.DefaultTransport},
			Timeout:   opts.Timeout,
		},
		BaseURL:         strings.TrimRight(opts.BaseURL, "/"),
		WaitOnRateLimit: opts.WaitOnRateLimit,
		now:             time.Now,
		sleep:           sleepContext,
	}, nil
}

// LookupUser resolves a username. A nil user with a nil error means the API
// has no such account.
func (tc *TwitterClient) LookupUser(ctx context.Context, username string) (*models.TwitterUser, error) {
	endpoint := fmt.Sprintf("%s/users/by/username/%s", tc.BaseURL, url.PathEscape(username))
	query := url.Values{"user.fields": {TWITTER_USER_FIELDS}}

	var response models.TwitterUserResponse
	if err := tc.getJSON(ctx, endpoint, query, &response); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	if response.Data == nil {
		if len(response.Errors) > 0 && response.Errors[0].Type != twitterNotFoundProblem {
			return nil, &APIError{
				StatusCode: http.StatusOK,
				Title:      response.Errors[0].Title,
				Detail:     response.Errors[0].Detail,
			}
		}
		slog.Debug("[TwitterClient] User not found", slog.String("username", username))
		return nil, nil
	}

	return response.Data, nil
}

// UserPosts lists up to maxResults of the user's most recent posts.
func (tc *TwitterClient) UserPosts(ctx context.Context, userID string, maxResults int) ([]models.Post, error) {
	requested := maxResults
	if requested < TWITTER_MIN_RESULTS {
		requested = TWITTER_MIN_RESULTS
	}
	if requested > TWITTER_MAX_RESULTS {
		requested = TWITTER_MAX_RESULTS
	}

	endpoint := fmt.Sprintf("%s/users/%s/tweets", tc.BaseURL, url.PathEscape(userID))
	query := url.Values{
		"max_results":  {strconv.Itoa(requested)},
		"tweet.fields": {TWITTER_TWEET_FIELDS},
	}

	var response models.TwitterTimelineResponse
	if err := tc.getJSON(ctx, endpoint, query, &response); err != nil {
		return nil, err
	}

	posts := response.Data
	if len(posts) > maxResults {
		posts = posts[:maxResults]
	}
	return posts, nil
}

func (tc *TwitterClient) getJSON(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	start := time.Now()

	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("User-Agent", USER_AGENT)

		resp, err := tc.Client.Do(req)
		if err != nil {
			slog.Error("[TwitterClient] Request failed",
				slog.String("endpoint", endpoint),
				slog.String("error", err.Error()))
			return err
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			if err := json.Unmarshal(body, out); err != nil {
				slog.Error("[TwitterClient] Failed to unmarshal response",
					slog.String("endpoint", endpoint),
					slog.String("error", err.Error()),
					getPreview(body))
				return fmt.Errorf("failed to unmarshal response: %w", err)
			}
			slog.Debug("[TwitterClient] Request successful",
				slog.String("endpoint", endpoint),
				slog.Duration("elapsed", time.Since(start)))
			return nil

		case resp.StatusCode == http.StatusTooManyRequests && tc.WaitOnRateLimit && attempt < MAX_RETRIES:
			wait := tc.rateLimitWait(resp.Header)
			slog.Warn("[TwitterClient] Rate limit exceeded, waiting for reset",
				slog.Duration("wait", wait),
				slog.Int("attempt", attempt))
			if err := tc.sleep(ctx, wait); err != nil {
				return err
			}

		default:
			return problemFromResponse(resp.StatusCode, body)
		}
	}
}

// rateLimitWait reads x-rate-limit-reset (unix seconds) and falls back to the
// initial backoff when the header is missing.
func (tc *TwitterClient) rateLimitWait(h http.Header) time.Duration {
	reset, err := strconv.ParseInt(h.Get("x-rate-limit-reset"), 10, 64)
	if err != nil {
		return INITIAL_BACKOFF
	}
	wait := time.Unix(reset, 0).Sub(tc.now()) + time.Second
	if wait < INITIAL_BACKOFF {
		return INITIAL_BACKOFF
	}
	if wait > MAX_BACKOFF {
		return MAX_BACKOFF
	}
	return wait
}

func problemFromResponse(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var problem models.TwitterProblem
	if err := json.Unmarshal(body, &problem); err == nil {
		apiErr.Title = problem.Title
		apiErr.Detail = problem.Detail
		if apiErr.Detail == "" && len(problem.Errors) > 0 {
			apiErr.Detail = problem.Errors[0].Detail
		}
	}
	return apiErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func getPreview(respBody []byte) slog.Attr {
	raw := string(respBody)
	if len(raw) > 50 {
		raw = raw[:50]
	}
	return slog.String("raw_response", raw)
}
