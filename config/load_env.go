package config

import (
	"log/slog"

	"github.com/subosito/gotenv"
)

func LoadEnv(env string) {
	envFile := "config/envs/.env." + env
	if err := gotenv.Load(envFile); err != nil {
		slog.Warn("No .env file found, using OS environment", slog.String("file", envFile))
	}
}

// LoadSecrets reads a dotenv formatted secrets file. A missing file yields an
// empty set, not an error.
func LoadSecrets(path string) gotenv.Env {
	if path == "" {
		return gotenv.Env{}
	}
	secrets, err := gotenv.Read(path)
	if err != nil {
		slog.Debug("No secrets file found", slog.String("file", path))
		return gotenv.Env{}
	}
	return secrets
}
