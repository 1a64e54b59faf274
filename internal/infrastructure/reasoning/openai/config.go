package openai

import (
	"strings"
	"time"
)

// Config for the OpenAI-compatible reasoning backend.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
	RatePerSec  float64
	RateBurst   int
}

func (c Config) withDefaults() Config {
	out := c
	if out.BaseURL == "" {
		out.BaseURL = "https://api.openai.com/v1"
	}
	out.BaseURL = strings.TrimRight(out.BaseURL, "/")
	if out.Model == "" {
		out.Model = "gpt-4o-mini"
	}
	if out.Timeout <= 0 {
		out.Timeout = 60 * time.Second
	}
	if out.RateBurst <= 0 {
		out.RateBurst = 1
	}
	return out
}
