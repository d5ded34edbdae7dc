package models

import "time"

type TwitterUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

type PublicMetrics struct {
	RetweetCount int `json:"retweet_count"`
	ReplyCount   int `json:"reply_count"`
	LikeCount    int `json:"like_count"`
	QuoteCount   int `json:"quote_count"`
}

type Post struct {
	ID            string        `json:"id"`
	Text          string        `json:"text"`
	CreatedAt     *time.Time    `json:"created_at,omitempty"`
	PublicMetrics PublicMetrics `json:"public_metrics"`
}

type TwitterAPIError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
	Value  string `json:"value,omitempty"`
}

type TwitterUserResponse struct {
	Data   *TwitterUser      `json:"data"`
	Errors []TwitterAPIError `json:"errors"`
}

type TwitterTimelineResponse struct {
	Data   []Post            `json:"data"`
	Meta   TwitterMeta       `json:"meta"`
	Errors []TwitterAPIError `json:"errors"`
}

type TwitterMeta struct {
	ResultCount int    `json:"result_count"`
	NextToken   string `json:"next_token,omitempty"`
}

// TwitterProblem is the body of a non-2xx reply from the v2 API.
type TwitterProblem struct {
	Title  string            `json:"title"`
	Detail string            `json:"detail"`
	Type   string            `json:"type"`
	Status int               `json:"status"`
	Errors []TwitterAPIError `json:"errors"`
}
