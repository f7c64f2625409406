package internal

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

type Config struct {
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath        string        `env:"BLUGE_FILEPATH,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080"`
	HealthPort           int           `env:"HEALTH_PORT,default=8081"`
	HistoryLimit         int           `env:"HISTORY_LIMIT,default=50"`
	SearchPageSize       int           `env:"SEARCH_PAGE_SIZE,default=20"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=1s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=2s"`
	StatsInterval        time.Duration `env:"STATS_INTERVAL,default=1m"`
	AuthSecret           string        `env:"AUTH_SECRET,required=true"`
	AuthTokenDuration    time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=2000"`
	CensoredWords        WordList      `env:"CENSORED_WORDS"`
	CensorCharacter      CharacterRune `env:"CENSOR_CHARACTER,default=*"`
}

// WordList reads a comma separated list, blank entries dropped.
type WordList []string

func (w *WordList) UnmarshalEnvironmentValue(data string) error {
	*w = lo.Compact(lo.Map(strings.Split(data, ","), func(word string, _ int) string {
		return strings.TrimSpace(word)
	}))
	return nil
}

// CharacterRune reads a single non blank character from the environment.
type CharacterRune rune

func (c *CharacterRune) UnmarshalEnvironmentValue(data string) error {
	runes := []rune(data)
	if len(runes) != 1 {
		return fmt.Errorf("expected a single character, got %q", data)
	}
	if unicode.IsSpace(runes[0]) {
		return fmt.Errorf("expected a visible character, got %q", data)
	}
	*c = CharacterRune(runes[0])
	return nil
}

// LoadConfig reads the environment, after loading the given .env files
// when they exist. Variables already set are never overridden.
func LoadConfig(dotenvFiles ...string) (Config, error) {
	for _, file := range dotenvFiles {
		if err := godotenv.Load(file); err != nil {
			continue
		}
	}

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := config.validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) validate() error {
	switch {
	case c.HistoryLimit <= 0:
		return fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit)
	case c.SearchPageSize <= 0:
		return fmt.Errorf("SEARCH_PAGE_SIZE must be positive, got %d", c.SearchPageSize)
	case c.ConnectionBufferSize <= 0:
		return fmt.Errorf("CONNECTION_BUFFER_SIZE must be positive, got %d", c.ConnectionBufferSize)
	case c.MaxContentLength <= 0:
		return fmt.Errorf("MAX_CONTENT_LENGTH must be positive, got %d", c.MaxContentLength)
	case c.StatsInterval <= 0:
		return fmt.Errorf("STATS_INTERVAL must be positive, got %s", c.StatsInterval)
	case len(c.AuthSecret) < 32:
		return fmt.Errorf("AUTH_SECRET must be at least 32 bytes")
	}
	return nil
}

func (c Config) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) HealthAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HealthPort)
}
