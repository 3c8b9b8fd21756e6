package generator

import (
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/env"
)

const (
	DefaultModel    = openai.GPT3Dot5Turbo
	DefaultSecretID = "SummonerChatGPTKey3"
	defaultTimeout  = 20 * time.Second
)

type Config struct {
	APIKey   string
	SecretID string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

func LoadConfig() *Config {
	return &Config{
		APIKey:   strings.TrimSpace(env.GetEnv("OPENAI_API_KEY", "")),
		SecretID: strings.TrimSpace(env.GetEnv("OPENAI_SECRET_ID", DefaultSecretID)),
		Model:    strings.TrimSpace(env.GetEnv("OPENAI_MODEL", DefaultModel)),
		BaseURL:  strings.TrimSpace(env.GetEnv("OPENAI_BASE_URL", "")),
		Timeout:  env.GetDuration("OPENAI_TIMEOUT", defaultTimeout),
	}
}
