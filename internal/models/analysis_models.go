package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SourceText    = "text"
	SourceTwitter = "twitter"
)

type Analysis struct {
	ID         string    `json:"id" dynamodbav:"id"`
	Source     string    `json:"source" dynamodbav:"source"`
	Username   string    `json:"username,omitempty" dynamodbav:"username,omitempty"`
	PostID     string    `json:"post_id,omitempty" dynamodbav:"post_id,omitempty"`
	Text       string    `json:"text" dynamodbav:"text"`
	Label      string    `json:"label" dynamodbav:"label"`
	Engine     string    `json:"engine" dynamodbav:"engine"`
	AnalyzedAt time.Time `json:"analyzed_at" dynamodbav:"analyzed_at"`
}

func NewAnalysis(source, text, label, engine string) Analysis {
	return Analysis{
		ID:         uuid.NewString(),
		Source:     source,
		Text:       text,
		Label:      label,
		Engine:     engine,
		AnalyzedAt: time.Now().UTC(),
	}
}

type AnalyzedPost struct {
	Post     Post     `json:"post"`
	Analysis Analysis `json:"analysis"`
}

type UserReport struct {
	Username  string         `json:"username"`
	Requested int            `json:"requested"`
	Posts     []AnalyzedPost `json:"posts"`
	Positive  int            `json:"positive"`
	Negative  int            `json:"negative"`
}
