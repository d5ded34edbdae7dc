package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SECRETS_FILE", filepath.Join(t.TempDir(), "missing"))
	t.Setenv("TWITTER_BEARER_TOKEN", "")

	cfg, err := Load("test")
	require.NoError(t, err)

	assert.Equal(t, EngineModel, cfg.Engine)
	assert.Equal(t, MaxPostsPerRequest, cfg.MaxPostsPerRequest)
	assert.Equal(t, 50, cfg.HistorySize)
	assert.True(t, cfg.WaitOnRateLimit)
	assert.False(t, cfg.FeedEnabled())
}

func TestLoad_SecretsFileWinsOverEnvironment(t *testing.T) {
	dir := t.TempDir()
	secrets := filepath.Join(dir, ".secrets")
	require.NoError(t, os.WriteFile(secrets, []byte("TWITTER_BEARER_TOKEN=from-file\n"), 0o600))

	t.Setenv("SECRETS_FILE", secrets)
	t.Setenv("TWITTER_BEARER_TOKEN", "from-env")

	cfg, err := Load("test")
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.TwitterBearerToken)
	assert.True(t, cfg.FeedEnabled())
}

func TestLoad_EnvironmentTokenFallback(t *testing.T) {
	t.Setenv("SECRETS_FILE", filepath.Join(t.TempDir(), "missing"))
	t.Setenv("TWITTER_BEARER_TOKEN", "from-env")

	cfg, err := Load("test")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.TwitterBearerToken)
}

func TestValidate(t *testing.T) {
	base := Config{
		Engine:             EngineModel,
		ModelPath:          "m.json",
		VectorizerPath:     "v.json",
		MaxPostsPerRequest: 100,
		HistorySize:        10,
		TwitterAPIURL:      "https://api.twitter.com/2",
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "vader needs no artifacts", mutate: func(c *Config) { c.Engine = EngineVader; c.ModelPath = "" }},
		{name: "unknown engine", mutate: func(c *Config) { c.Engine = "bert" }, wantErr: true},
		{name: "missing model path", mutate: func(c *Config) { c.ModelPath = "" }, wantErr: true},
		{name: "cap above provider limit", mutate: func(c *Config) { c.MaxPostsPerRequest = 101 }, wantErr: true},
		{name: "cap zero", mutate: func(c *Config) { c.MaxPostsPerRequest = 0 }, wantErr: true},
		{name: "history zero", mutate: func(c *Config) { c.HistorySize = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_ValkeyTLSParsesBool(t *testing.T) {
	t.Setenv("SECRETS_FILE", filepath.Join(t.TempDir(), "missing"))

	t.Setenv("VALKEY_TLS", "1")
	cfg, err := Load("test")
	require.NoError(t, err)
	assert.True(t, cfg.ValkeyTLS)

	t.Setenv("VALKEY_TLS", "TRUE")
	cfg, err = Load("test")
	require.NoError(t, err)
	assert.True(t, cfg.ValkeyTLS)

	t.Setenv("VALKEY_TLS", "nope")
	cfg, err = Load("test")
	require.NoError(t, err)
	assert.False(t, cfg.ValkeyTLS)
}
