package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the immutable server configuration, assembled once at startup and
// injected into each component's constructor. Every option the engine reads
// is an explicit field here; nothing is looked up by string key at call sites.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Keys     KeyConfig
	Token    TokenConfig
	Policy   PolicyConfig
}

type ServerConfig struct {
	Port         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// KeyConfig locates the server signing key used for ID tokens.
type KeyConfig struct {
	PrivateKeyPath string
	KeyID          string
	Algorithm      string // RS256, RS384 or RS512
	Issuer         string
}

// TokenConfig holds server-wide token defaults. Clients may override the
// lifetimes per token kind.
type TokenConfig struct {
	AccessTokenLifetime  time.Duration
	RefreshTokenLifetime time.Duration
	AuthCodeLifetime     time.Duration
	IDTokenLifetime      time.Duration

	// Token strings are drawn from Charset with a length picked uniformly
	// from [MinLength, MaxLength].
	Charset   string
	MinLength int
	MaxLength int
}

// PolicyConfig holds the protocol policy switches.
type PolicyConfig struct {
	// RequireSecureRedirectURI forces https redirect URIs, with a loopback
	// exception for 127.0.0.1 and [::1].
	RequireSecureRedirectURI bool

	// RequireState makes the state parameter mandatory on authorization requests.
	RequireState bool

	// AllowResponseModeParameter honors a client-supplied response_mode.
	AllowResponseModeParameter bool

	// AllowTokenTypeParameter honors a client-supplied token_type at the
	// token endpoint.
	AllowTokenTypeParameter bool

	// IssueRefreshTokenClientCredentials enables refresh tokens on the
	// client_credentials grant. Disabled by default.
	IssueRefreshTokenClientCredentials bool

	// IssueRefreshTokenPassword enables refresh tokens on the password grant.
	IssueRefreshTokenPassword bool

	// AllowConfidentialImplicit lets confidential clients use the token
	// (implicit) response type.
	AllowConfidentialImplicit bool
}

func Load() (*Config, error) {
	// .env is optional outside development.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "oauth"),
			Password: getEnv("DB_PASSWORD", "oauth"),
			DBName:   getEnv("DB_NAME", "oauthdb"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Keys: KeyConfig{
			PrivateKeyPath: getEnv("SIGNING_PRIVATE_KEY_PATH", "./keys/private.pem"),
			KeyID:          getEnv("SIGNING_KEY_ID", "default"),
			Algorithm:      getEnv("SIGNING_ALGORITHM", "RS256"),
			Issuer:         getEnv("ISSUER", "http://localhost:8080"),
		},
		Token: TokenConfig{
			AccessTokenLifetime:  getDurationEnv("ACCESS_TOKEN_LIFETIME", 30*time.Minute),
			RefreshTokenLifetime: getDurationEnv("REFRESH_TOKEN_LIFETIME", 14*24*time.Hour),
			AuthCodeLifetime:     getDurationEnv("AUTH_CODE_LIFETIME", 2*time.Minute),
			IDTokenLifetime:      getDurationEnv("ID_TOKEN_LIFETIME", 30*time.Minute),
			Charset:              getEnv("TOKEN_CHARSET", "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"),
			MinLength:            getIntEnv("TOKEN_MIN_LENGTH", 40),
			MaxLength:            getIntEnv("TOKEN_MAX_LENGTH", 50),
		},
		Policy: PolicyConfig{
			RequireSecureRedirectURI:           getBoolEnv("REQUIRE_SECURE_REDIRECT_URI", true),
			RequireState:                       getBoolEnv("REQUIRE_STATE", false),
			AllowResponseModeParameter:         getBoolEnv("ALLOW_RESPONSE_MODE_PARAMETER", true),
			AllowTokenTypeParameter:            getBoolEnv("ALLOW_TOKEN_TYPE_PARAMETER", false),
			IssueRefreshTokenClientCredentials: getBoolEnv("ISSUE_REFRESH_TOKEN_CLIENT_CREDENTIALS", false),
			IssueRefreshTokenPassword:          getBoolEnv("ISSUE_REFRESH_TOKEN_PASSWORD", true),
			AllowConfidentialImplicit:          getBoolEnv("ALLOW_CONFIDENTIAL_IMPLICIT", false),
		},
	}

	if cfg.Token.MinLength <= 0 || cfg.Token.MaxLength < cfg.Token.MinLength {
		return nil, fmt.Errorf("invalid token length range [%d,%d]", cfg.Token.MinLength, cfg.Token.MaxLength)
	}

	return cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
