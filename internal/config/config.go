package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr       string
		CORSOrigin string
	}
	Log struct {
		Level  string
		Format string
	}
	Auth struct {
		JWTSecret       string
		TokenTTLMinutes int
	}
	Session struct {
		Backend    string
		RedisURL   string
		TTLMinutes int
	}
	Store struct {
		Driver string
	}
	Claims struct {
		SubmitDelayMS int
		SeedFile      string
	}
	Backend struct {
		BaseURL        string
		TimeoutSeconds int
		CustomerID     string
	}
	AI struct {
		APIKey        string
		BaseURL       string
		Models        []string
		RatePerSecond float64
		Burst         int
	}
	Storage struct {
		Driver            string
		Bucket            string
		KeyPrefix         string
		Region            string
		Endpoint          string
		PresignTTLSeconds int
		MaxInlineBytes    int64
	}
	AWS struct {
		Profile string
	}
	Dispatch struct {
		Workers int
	}
}

// Load reads configuration from environment variables and optional config files.
// A .env file in the working directory is applied first; variables already
// set in the environment win.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	// Comma separated lists arrive from the environment as one string.
	if len(cfg.AI.Models) == 1 && strings.Contains(cfg.AI.Models[0], ",") {
		cfg.AI.Models = strings.Split(cfg.AI.Models[0], ",")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("server.corsorigin", "*")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttlminutes", 720)
	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.redisurl", "redis://localhost:6379/0")
	v.SetDefault("session.ttlminutes", 720)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("claims.submitdelayms", 1000)
	v.SetDefault("claims.seedfile", "")
	v.SetDefault("backend.baseurl", "")
	v.SetDefault("backend.timeoutseconds", 15)
	v.SetDefault("backend.customerid", "")
	v.SetDefault("ai.apikey", "")
	v.SetDefault("ai.baseurl", "https://generativelanguage.googleapis.com/v1")
	v.SetDefault("ai.models", []string{"gemini-2.0-flash"})
	v.SetDefault("ai.ratepersecond", 1.0)
	v.SetDefault("ai.burst", 3)
	v.SetDefault("storage.driver", "inline")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "claims")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.presignttlseconds", 900)
	v.SetDefault("storage.maxinlinebytes", 10<<20)
	v.SetDefault("aws.profile", "")
	v.SetDefault("dispatch.workers", 4)
}

// Validate reports every missing or inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("auth jwt secret is required"))
	}
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown session backend %q", c.Session.Backend))
	}
	switch c.Store.Driver {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	switch c.Storage.Driver {
	case "inline":
	case "s3":
		if strings.TrimSpace(c.Storage.Bucket) == "" {
			errs = append(errs, errors.New("storage bucket is required for the s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	return errors.Join(errs...)
}

func (c Config) SubmitDelay() time.Duration {
	return time.Duration(c.Claims.SubmitDelayMS) * time.Millisecond
}

func (c Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLMinutes) * time.Minute
}

func (c Config) PresignTTL() time.Duration {
	return time.Duration(c.Storage.PresignTTLSeconds) * time.Second
}
