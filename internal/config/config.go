// internal/config/config.go
//
// Process configuration from the environment (and an optional .env file).

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const devSecret = "dev_secret_change_me"

type Config struct {
	Port      string `env:"PORT"       envDefault:"5175"`
	DBPath    string `env:"DB_PATH"    envDefault:"./data/gamecentr.db"`
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	AppEnv    string `env:"APP_ENV"    envDefault:"development"`

	JWTSecret      string   `env:"JWT_SECRET"       envDefault:"dev_secret_change_me"`
	JWTExpiresDays int      `env:"JWT_EXPIRES_DAYS" envDefault:"14"`
	CookieName     string   `env:"COOKIE_NAME"      envDefault:"gamecentr_token"`
	ClientOrigins  []string `env:"CLIENT_ORIGIN"    envDefault:"http://localhost:5173" envSeparator:","`

	ScoringAPIURL    string        `env:"SCORING_API_URL"`
	SubmitTimeout    time.Duration `env:"SUBMIT_TIMEOUT"     envDefault:"10s"`
	NATSURL          string        `env:"NATS_URL"`
	DailySalt        string        `env:"DAILY_SALT"         envDefault:"local_dev_salt"`
	HangmanWordsFile string        `env:"HANGMAN_WORDS_FILE"`
	SessionIdleTTL   time.Duration `env:"SESSION_IDLE_TTL"   envDefault:"30m"`
}

// Production reports whether cookies must be Secure.
func (c Config) Production() bool { return c.AppEnv == "production" }

// JWTTTL is the token lifetime.
func (c Config) JWTTTL() time.Duration { return time.Duration(c.JWTExpiresDays) * 24 * time.Hour }

// Load reads .env (if present) and parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.Production() && c.JWTSecret == devSecret {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.JWTExpiresDays <= 0 {
		return errors.New("JWT_EXPIRES_DAYS must be positive")
	}
	return nil
}
