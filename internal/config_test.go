package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var secret = strings.Repeat("s", 32)

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("BADGER_FILEPATH", "/tmp/roomchat")
	t.Setenv("AUTH_SECRET", secret)
	t.Setenv("BLUGE_FILEPATH", "/tmp/roomchat-index")

	config, err := LoadConfig()

	req.NoError(err)
	req.Equal(50, config.HistoryLimit)
	req.Equal(20, config.SearchPageSize)
	req.Equal(24*time.Hour, config.AuthTokenDuration)
	req.Equal("localhost:8080", config.HTTPAddress())
	req.Equal("localhost:8081", config.HealthAddress())
}

func TestLoadConfig_Missing_Required(t *testing.T) {
	req := require.New(t)
	t.Setenv("BADGER_FILEPATH", "")
	t.Setenv("AUTH_SECRET", secret)
	t.Setenv("BLUGE_FILEPATH", "/tmp/roomchat-index")
	req.NoError(os.Unsetenv("BADGER_FILEPATH"))

	_, err := LoadConfig()

	req.Error(err)
}

func TestLoadConfig_Rejects_Short_Secret(t *testing.T) {
	req := require.New(t)
	t.Setenv("BADGER_FILEPATH", "/tmp/roomchat")
	t.Setenv("AUTH_SECRET", "short")
	t.Setenv("BLUGE_FILEPATH", "/tmp/roomchat-index")

	_, err := LoadConfig()

	req.ErrorContains(err, "AUTH_SECRET")
}

func TestLoadConfig_Dotenv_Does_Not_Override(t *testing.T) {
	req := require.New(t)
	dotenv := filepath.Join(t.TempDir(), ".env")
	req.NoError(os.WriteFile(dotenv, []byte("BADGER_FILEPATH=/from/dotenv\nHISTORY_LIMIT=20\n"), 0o600))
	t.Setenv("BADGER_FILEPATH", "/from/env")
	t.Setenv("AUTH_SECRET", secret)
	t.Setenv("BLUGE_FILEPATH", "/tmp/roomchat-index")
	t.Setenv("HISTORY_LIMIT", "")
	req.NoError(os.Unsetenv("HISTORY_LIMIT"))

	config, err := LoadConfig(dotenv, filepath.Join(t.TempDir(), "missing.env"))

	req.NoError(err)
	req.Equal("/from/env", config.BadgerFilepath)
	req.Equal(20, config.HistoryLimit)
}

func TestLoadConfig_Moderation(t *testing.T) {
	req := require.New(t)
	t.Setenv("BADGER_FILEPATH", "/tmp/roomchat")
	t.Setenv("AUTH_SECRET", secret)
	t.Setenv("BLUGE_FILEPATH", "/tmp/roomchat-index")
	t.Setenv("CENSORED_WORDS", " badger, ,snake ")
	t.Setenv("CENSOR_CHARACTER", "#")

	config, err := LoadConfig()

	req.NoError(err)
	req.Equal(WordList{"badger", "snake"}, config.CensoredWords)
	req.Equal(CharacterRune('#'), config.CensorCharacter)
}

func TestLoadConfig_Rejects_Long_Censor_Character(t *testing.T) {
	req := require.New(t)
	t.Setenv("BADGER_FILEPATH", "/tmp/roomchat")
	t.Setenv("AUTH_SECRET", secret)
	t.Setenv("BLUGE_FILEPATH", "/tmp/roomchat-index")
	t.Setenv("CENSOR_CHARACTER", "**")

	_, err := LoadConfig()

	req.Error(err)

	// Blank characters would mask words into nothing
	for _, blank := range []string{" ", "\t", "\u00a0"} {
		t.Setenv("CENSOR_CHARACTER", blank)

		_, err = LoadConfig()

		req.Error(err, "censor character %q", blank)
	}
}
