// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/abhijit77github/turn-game/internal/journal"
	"github.com/sirupsen/logrus"
)

// Config is read from the environment (and a .env file loaded by main).
type Config struct {
	ServerURL string // TURN_SERVER_URL
	APIPrefix string // TURN_API_PREFIX
	Username  string // TURN_USERNAME
	Password  string // TURN_PASSWORD
	Token     string // TURN_TOKEN, skips login when set
	LogLevel  logrus.Level
	LogJSON   bool // LOG_JSON

	// Journal is disabled when RedisAddr is empty.
	RedisAddr string
	RedisDB   int
	QueueName string

	// Local status server; disabled when StatusAddr is empty.
	StatusAddr    string   // TURN_STATUS_ADDR
	StatusOrigins []string // STATUS_ALLOWED_ORIGINS, comma separated
}

// Load reads every setting, falling back to defaults.
func Load() Config {
	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = logrus.InfoLevel
	}
	return Config{
		ServerURL: strings.TrimRight(getEnv("TURN_SERVER_URL", "http://localhost:8000"), "/"),
		APIPrefix: getEnv("TURN_API_PREFIX", "/api"),
		Username:  os.Getenv("TURN_USERNAME"),
		Password:  os.Getenv("TURN_PASSWORD"),
		Token:     os.Getenv("TURN_TOKEN"),
		LogLevel:  level,
		LogJSON:   getEnvBool("LOG_JSON", false),
		RedisAddr: os.Getenv("REDIS_ADDR"),
		RedisDB:   getEnvInt("REDIS_DB", 0),
		QueueName: getEnv("JOURNAL_QUEUE_NAME", journal.DefaultQueueName),

		StatusAddr:    os.Getenv("TURN_STATUS_ADDR"),
		StatusOrigins: getEnvList("STATUS_ALLOWED_ORIGINS"),
	}
}

// JournalEnabled reports whether frames should be pushed to Redis.
func (c Config) JournalEnabled() bool { return c.RedisAddr != "" }

// getEnv reads an environment variable or returns def.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt parses an environment variable as an integer, else def.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
