// Package config loads runtime configuration from the environment (with .env
// support) and the optional reply-catalog file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Token         string
	WebhookSecret string
	// PublicURL is the externally reachable base URL; when empty the webhook
	// is not registered and the process only serves health checks.
	PublicURL    string
	ListenAddr   string
	APITimeout   time.Duration
	QuickReplies []string
}

// Load reads the environment. TOKEN is the only hard requirement.
func Load() (*Config, error) {
	_ = godotenv.Load()

	token := os.Getenv("TOKEN")
	if token == "" {
		return nil, fmt.Errorf("set TOKEN env var")
	}

	secret := os.Getenv("WEBHOOK_SECRET")
	if secret == "" {
		secret = "super-secret-path"
	}

	publicURL := os.Getenv("PUBLIC_URL")
	if publicURL == "" {
		publicURL = os.Getenv("RENDER_EXTERNAL_URL")
	}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		} else {
			addr = ":8080"
		}
	}

	timeout := 15 * time.Second
	if raw := os.Getenv("API_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid API_TIMEOUT %q: %w", raw, err)
		}
		timeout = d
	}

	cfg := &Config{
		Token:         token,
		WebhookSecret: secret,
		PublicURL:     publicURL,
		ListenAddr:    addr,
		APITimeout:    timeout,
	}

	if path := os.Getenv("REPLY_CATALOG"); path != "" {
		replies, err := LoadCatalog(path)
		if err != nil {
			return nil, err
		}
		cfg.QuickReplies = replies
	}
	return cfg, nil
}

type catalogFile struct {
	Replies []string `yaml:"replies"`
}

// LoadCatalog reads a canned-reply override file:
//
//	replies:
//	  - "Thanks for your note."
//	  - "Your suggestion was received."
func LoadCatalog(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reply catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse reply catalog %s: %w", path, err)
	}
	if len(f.Replies) == 0 {
		return nil, fmt.Errorf("reply catalog %s has no replies", path)
	}
	return f.Replies, nil
}
