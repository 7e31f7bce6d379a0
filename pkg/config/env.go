package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Environment variables that override the file.
const (
	EnvRedisURL = "PATCHCANVAS_REDIS_URL"
	EnvMongoURI = "PATCHCANVAS_MONGO_URI"
)

// LoadDotEnv loads variables from the given .env files, or ./.env when none
// are named. Missing files are ignored; variables already set in the
// environment win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

// ApplyEnv overrides connection URIs from the environment. A Mongo URI
// switches an unconfigured journal to the mongo backend.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(EnvRedisURL); v != "" {
		c.Backend.RedisURL = v
	}
	if v := getenv(EnvMongoURI); v != "" {
		c.Journal.MongoURI = v
		if c.Journal.Kind == "" || c.Journal.Kind == JournalNone {
			c.Journal.Kind = JournalMongo
		}
	}
}
