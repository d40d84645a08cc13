package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "dotted.yaml"

// Loader applies the layered configuration:
// defaults, YAML file, .env (outside production), environment.
type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// Load builds and validates the configuration. An empty path falls back to
// DefaultFile when it exists.
func (l *Loader) Load(path string) (*Config, error) {
	cfg, err := l.LoadUnvalidated(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadUnvalidated is Load without the final Validate, for commands that only
// need part of the configuration.
func (l *Loader) LoadUnvalidated(path string) (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err == nil {
			l.logger.Debug("loaded .env")
		}
	}

	cfg := Default()

	path = ResolvePath(path)
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
		l.logger.Debug("loaded config file", zap.String("path", path))
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// ResolvePath returns the config file the loader reads for path: path
// itself, or DefaultFile when path is empty and DefaultFile exists. An
// empty result means no file is read.
func ResolvePath(path string) string {
	if path != "" {
		return path
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return DefaultFile
	}
	return ""
}

func (c *Config) applyEnvOverrides() {
	setString(&c.HTTP.Addr, "HTTP_ADDR")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.LLM.APIKey, "GEMINI_API_KEY")
	setString(&c.LLM.Model, "GEMINI_MODEL")
	setString(&c.Storage.AccessKey, "R2_ACCESS_KEY")
	setString(&c.Storage.SecretKey, "R2_SECRET_KEY")
	setString(&c.Storage.Bucket, "R2_BUCKET_NAME")
	setString(&c.Storage.Endpoint, "R2_ENDPOINT")
	setString(&c.Storage.PublicBaseURL, "R2_PUBLIC_BASE_URL")
	setString(&c.NATS.URL, "NATS_URL")
	setString(&c.Log.Level, "LOG_LEVEL")

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.HTTP.CORSOrigins = origins
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
