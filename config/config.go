package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	DefaultPort                   = "8080"
	DefaultAccessTokenExpiryMin   = 15
	DefaultRefreshTokenExpiryMin  = 43200 // 30 days
	DefaultBcryptCost             = 12
	DefaultMaxActiveRefreshTokens = 5
	DefaultLoginMaxAttempts       = 5
	DefaultLoginWindowMinutes     = 15
	DefaultTokenAudience          = "todocloud-web"
	DefaultTokenIssuer            = "todocloud-auth"
)

type Config struct {
	Env  string
	Port string

	DBURL string

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessExpiryMin    int
	RefreshExpiryMin   int
	TokenAudience      string
	TokenIssuer        string

	BcryptCost             int
	MaxActiveRefreshTokens int
	LoginMaxAttempts       int
	LoginWindowMinutes     int
	FingerprintStrict      bool

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	CookieDomain string
	CookieSecure bool
}

// loader resolves keys with precedence: process environment, then the
// environment file, then the default. The file is parsed into a map rather
// than exported into the process so repeated loads stay isolated.
type loader struct {
	file map[string]string
}

// Load reads config/.env.dev or config/.env.prod depending on ENV and
// merges it under the process environment.
func Load() *Config {
	env := envOrDefault("ENV", "development")

	suffix := "dev"
	if env == "production" {
		suffix = "prod"
	}

	// A missing file is fine; required keys are enforced below either way.
	fileVars, err := godotenv.Read(fmt.Sprintf("config/.env.%s", suffix))
	if err != nil {
		fileVars = map[string]string{}
	}
	l := &loader{file: fileVars}

	return &Config{
		Env:                    env,
		Port:                   l.getEnv("PORT", DefaultPort),
		DBURL:                  l.mustGetEnv("DB_URL"),
		AccessTokenSecret:      l.mustGetEnv("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret:     l.mustGetEnv("REFRESH_TOKEN_SECRET"),
		AccessExpiryMin:        l.getEnvAsInt("ACCESS_TOKEN_EXPIRY", DefaultAccessTokenExpiryMin),
		RefreshExpiryMin:       l.getEnvAsInt("REFRESH_TOKEN_EXPIRY", DefaultRefreshTokenExpiryMin),
		TokenAudience:          l.getEnv("TOKEN_AUDIENCE", DefaultTokenAudience),
		TokenIssuer:            l.getEnv("TOKEN_ISSUER", DefaultTokenIssuer),
		BcryptCost:             l.getEnvAsInt("BCRYPT_COST", DefaultBcryptCost),
		MaxActiveRefreshTokens: l.getEnvAsInt("MAX_ACTIVE_REFRESH_TOKENS", DefaultMaxActiveRefreshTokens),
		LoginMaxAttempts:       l.getEnvAsInt("LOGIN_MAX_ATTEMPTS", DefaultLoginMaxAttempts),
		LoginWindowMinutes:     l.getEnvAsInt("LOGIN_WINDOW_MINUTES", DefaultLoginWindowMinutes),
		FingerprintStrict:      l.getEnvAsBool("FINGERPRINT_STRICT", false),
		GoogleClientID:         l.getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:     l.getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:      l.getEnv("GOOGLE_REDIRECT_URL", ""),
		CookieDomain:           l.getEnv("COOKIE_DOMAIN", ""),
		CookieSecure:           l.getEnvAsBool("COOKIE_SECURE", env == "production"),
	}
}

func (l *loader) lookup(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return l.file[key]
}

func (l *loader) getEnv(key string, defaultVal string) string {
	if value := l.lookup(key); value != "" {
		return value
	}
	return defaultVal
}

func (l *loader) mustGetEnv(key string) string {
	if value := l.lookup(key); value != "" {
		return value
	}
	log.Fatalf("Missing required config: %s", key)
	return ""
}

func (l *loader) getEnvAsInt(key string, defaultVal int) int {
	valStr := l.lookup(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %d", key, defaultVal)
		return defaultVal
	}
	return val
}

func (l *loader) getEnvAsBool(key string, defaultVal bool) bool {
	valStr := l.lookup(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %t", key, defaultVal)
		return defaultVal
	}
	return val
}

func envOrDefault(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}
