package feed

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/url"

	"github.com/spacesedan/tweetsense/config"
	"github.com/spacesedan/tweetsense/internal/clients"
	"github.com/spacesedan/tweetsense/internal/models"
)

var (
	ErrUserNotFound = errors.New("User not found")
	ErrNoPosts      = errors.New("No tweets found")
)

// Source is the slice of the social API the fetcher needs.
type Source interface {
	LookupUser(ctx context.Context, username string) (*models.TwitterUser, error)
	UserPosts(ctx context.Context, userID string, maxResults int) ([]models.Post, error)
}

type Fetcher struct {
	source   Source
	maxPosts int
}

// NewFetcher caps every request at maxPosts, which itself may not exceed
// config.MaxPostsPerRequest.
func NewFetcher(source Source, maxPosts int) *Fetcher {
	return &Fetcher{source: source, maxPosts: ClampCount(maxPosts, config.MaxPostsPerRequest)}
}

func (f *Fetcher) MaxPosts() int { return f.maxPosts }

// ClampCount bounds a requested count to 1..max.
func ClampCount(count, max int) int {
	if max > config.MaxPostsPerRequest || max < 1 {
		max = config.MaxPostsPerRequest
	}
	if count > max {
		return max
	}
	if count < 1 {
		return 1
	}
	return count
}

// FetchPosts resolves the username and lists up to count recent posts.
//
// It returns either posts or an error, with one exception: a user without
// posts yields an empty, non-nil slice together with ErrNoPosts.
func (f *Fetcher) FetchPosts(ctx context.Context, username string, count int) ([]models.Post, error) {
	count = ClampCount(count, f.maxPosts)

	user, err := f.source.LookupUser(ctx, username)
	if err != nil {
		return nil, wrapFetchError(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	posts, err := f.source.UserPosts(ctx, user.ID, count)
	if err != nil {
		return nil, wrapFetchError(err)
	}
	if len(posts) == 0 {
		return []models.Post{}, ErrNoPosts
	}
	if len(posts) > count {
		posts = posts[:count]
	}

	slog.Info("[Feed] Fetched posts",
		slog.String("username", username),
		slog.Int("requested", count),
		slog.Int("returned", len(posts)))
	return posts, nil
}

// Texts keeps only the text of each post.
func Texts(posts []models.Post) []string {
	texts := make([]string, len(posts))
	for i, p := range posts {
		texts[i] = p.Text
	}
	return texts
}

// FetchError is a failure at the fetch boundary. Its message is meant to be
// shown to the user as is.
type FetchError struct {
	Prefix string
	Err    error
}

func (e *FetchError) Error() string { return e.Prefix + ": " + e.Err.Error() }

func (e *FetchError) Unwrap() error { return e.Err }

// wrapFetchError prefixes API and transport failures with "API Error" and
// everything else with "Error".
func wrapFetchError(err error) error {
	if IsAPIError(err) {
		slog.Warn("[Feed] API request failed", slog.String("error", err.Error()))
		return &FetchError{Prefix: "API Error", Err: err}
	}
	slog.Error("[Feed] Fetch failed", slog.String("error", err.Error()))
	return &FetchError{Prefix: "Error", Err: err}
}

// IsAPIError reports whether err came from the API or the transport below it.
func IsAPIError(err error) bool {
	var (
		apiErr *clients.APIError
		urlErr *url.Error
		netErr net.Error
	)
	return errors.As(err, &apiErr) || errors.As(err, &urlErr) || errors.As(err, &netErr)
}
