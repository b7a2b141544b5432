package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	ETGBase    string
	ETGKeyID   string
	ETGAPIKey  string
	ETGTimeout time.Duration
	ETGRPS     int

	GoogleAPIKey    string
	AnthropicAPIKey string
	LLMTimeout      time.Duration

	ScoringModel   string
	ScoringBatch   int
	ScoringRetries int
	RetryBackoff   time.Duration

	PresortLimit int
	AnalysisCap  int
	FloorPrice   float64
	ReviewMaxAge int // years
	ReviewSample int
	SummaryTopN  int
	ContentBatch int
	ReviewsBatch int
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),

		RedisAddr: env("REDIS_ADDR", "localhost:6379"),
		RedisPass: env("REDIS_PASSWORD", ""),
		RedisDB:   atoi("REDIS_DB", 0),
		CacheTTL:  time.Duration(atoi("CACHE_TTL_SECONDS", 3600)) * time.Second,

		ETGBase:    env("ETG_BASE_URL", "https://api.worldota.net"),
		ETGKeyID:   env("ETG_KEY_ID", ""),
		ETGAPIKey:  env("ETG_API_KEY", ""),
		ETGTimeout: time.Duration(atoi("ETG_TIMEOUT_SECONDS", 30)) * time.Second,
		ETGRPS:     atoi("ETG_RPS", 5),

		GoogleAPIKey:    env("GEMINI_API_KEY", ""),
		AnthropicAPIKey: env("ANTHROPIC_API_KEY", ""),
		LLMTimeout:      time.Duration(atoi("LLM_TIMEOUT_SECONDS", 120)) * time.Second,

		ScoringModel:   env("SCORING_MODEL", "gemini-3-flash-preview"),
		ScoringBatch:   atoi("SCORING_BATCH_SIZE", 25),
		ScoringRetries: atoi("SCORING_RETRIES", 3),
		RetryBackoff:   time.Duration(atoi("SCORING_RETRY_BACKOFF_MS", 1000)) * time.Millisecond,

		PresortLimit: atoi("PRESORT_LIMIT", 100),
		AnalysisCap:  atoi("MAX_HOTELS_FOR_ANALYSIS", 500),
		FloorPrice:   atof("FLOOR_PRICE_PER_NIGHT", 10),
		ReviewMaxAge: atoi("REVIEW_MAX_AGE_YEARS", 5),
		ReviewSample: atoi("REVIEW_SAMPLE_SIZE", 50),
		SummaryTopN:  atoi("SUMMARY_TOP_HOTELS", 10),
		ContentBatch: atoi("CONTENT_BATCH_SIZE", 100),
		ReviewsBatch: atoi("REVIEWS_BATCH_SIZE", 100),
	}
	if c.ETGAPIKey == "" {
		log.Warn().Msg("ETG_API_KEY is empty")
	}
	if c.GoogleAPIKey == "" && c.AnthropicAPIKey == "" {
		log.Warn().Msg("no LLM API key configured, scoring will fail")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
