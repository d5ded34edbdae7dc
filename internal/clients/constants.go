package clients

import "time"

const (
	MAX_RETRIES     = 5
	INITIAL_BACKOFF = 1 * time.Second
	MAX_BACKOFF     = 15 * time.Minute
	USER_AGENT      = "tweetsense-client/1.0 (+https://github.com/spacesedan/tweetsense)"

	// The v2 timeline endpoint rejects max_results outside 5..100.
	TWITTER_MIN_RESULTS = 5
	TWITTER_MAX_RESULTS = 100
)
