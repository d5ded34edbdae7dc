package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	// MaxPostsPerRequest mirrors the page size cap of the Twitter v2 timeline
	// endpoint. Requested post counts are clamped to it.
	MaxPostsPerRequest = 100

	DefaultPostCount = 5
	MaxPostCountForm = 20

	EngineModel = "model"
	EngineVader = "vader"
)

type Config struct {
	Env      string
	Addr     string
	LogLevel string

	Engine         string
	ModelPath      string
	VectorizerPath string
	StopwordsPath  string

	SecretsFile        string
	TwitterBearerToken string
	TwitterAPIURL      string
	TwitterTimeout     time.Duration
	WaitOnRateLimit    bool
	MaxPostsPerRequest int

	ValkeyAddress  string
	ValkeyPassword string
	ValkeyTLS      bool
	HistorySize    int

	KafkaBroker string
	KafkaTopic  string

	DynamoDBTable string
	AWSRegion     string
	AWSEndpoint   string
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

// Load builds the Config from the process environment. Call LoadEnv first to
// pull in the per-environment dotenv file.
func Load(env string) (Config, error) {
	cfg := Config{
		Env:      env,
		Addr:     getEnv("APP_ADDR", ":8501"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Engine:         getEnv("SENTIMENT_ENGINE", EngineModel),
		ModelPath:      getEnv("MODEL_PATH", "./models/sentiment_model.json"),
		VectorizerPath: getEnv("VECTORIZER_PATH", "./models/vectorizer.json"),
		StopwordsPath:  getEnv("STOPWORDS_PATH", ""),

		SecretsFile:        getEnv("SECRETS_FILE", "config/secrets/.secrets"),
		TwitterAPIURL:      getEnv("TWITTER_API_URL", "https://api.twitter.com/2"),
		TwitterTimeout:     getEnvDuration("TWITTER_TIMEOUT", 30*time.Second),
		WaitOnRateLimit:    getEnvBool("TWITTER_WAIT_ON_RATE_LIMIT", true),
		MaxPostsPerRequest: getEnvInt("MAX_POSTS_PER_REQUEST", MaxPostsPerRequest),

		ValkeyAddress:  getEnv("VALKEY_INIT_ADDRESS", ""),
		ValkeyPassword: getEnv("VALKEY_PASSWORD", ""),
		ValkeyTLS:      getEnvBool("VALKEY_TLS", false),
		HistorySize:    getEnvInt("HISTORY_SIZE", 50),

		KafkaBroker: getEnv("KAFKA_BROKER", ""),
		KafkaTopic:  getEnv("KAFKA_TOPIC", "sentiment.analyses"),

		DynamoDBTable: getEnv("DYNAMODB_TABLE", ""),
		AWSRegion:     getEnv("AWS_REGION", "us-west-2"),
		AWSEndpoint:   getEnv("AWS_ENDPOINT", ""),
	}

	cfg.TwitterBearerToken = resolveBearerToken(cfg.SecretsFile)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// resolveBearerToken prefers the secrets file over the environment.
func resolveBearerToken(secretsFile string) string {
	if token := LoadSecrets(secretsFile)["TWITTER_BEARER_TOKEN"]; token != "" {
		return token
	}
	return os.Getenv("TWITTER_BEARER_TOKEN")
}

func (c Config) Validate() error {
	if c.Engine != EngineModel && c.Engine != EngineVader {
		return fmt.Errorf("unknown sentiment engine %q", c.Engine)
	}
	if c.Engine == EngineModel && (c.ModelPath == "" || c.VectorizerPath == "") {
		return errors.New("model engine needs MODEL_PATH and VECTORIZER_PATH")
	}
	if c.MaxPostsPerRequest < 1 || c.MaxPostsPerRequest > MaxPostsPerRequest {
		return fmt.Errorf("MAX_POSTS_PER_REQUEST must be within 1..%d", MaxPostsPerRequest)
	}
	if c.HistorySize < 1 {
		return errors.New("HISTORY_SIZE must be >= 1")
	}
	if c.TwitterAPIURL == "" {
		return errors.New("missing TWITTER_API_URL")
	}
	return nil
}

// FeedEnabled reports whether the fetch-from-API path can be offered.
func (c Config) FeedEnabled() bool {
	return c.TwitterBearerToken != ""
}
