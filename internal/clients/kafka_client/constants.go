package kafka_client

import "time"

const (
	KAFKA_TOPIC_SENTIMENT_ANALYSES = "sentiment.analyses" // one message per classified text
)

const (
	MAX_RETRIES      = 3
	RETRY_DELAY      = 500 * time.Millisecond
	DELIVERY_TIMEOUT = 10 * time.Second
	FLUSH_TIMEOUT_MS = 5000
)
