package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server     ServerConfig     `env:",prefix=SERVER_"`
	Postgres   PostgresConfig   `env:",prefix=POSTGRES_"`
	Redis      RedisConfig      `env:",prefix=REDIS_"`
	JWT        JWTConfig        `env:",prefix=JWT_"`
	Crypto     CryptoConfig     `env:",prefix=MFA_"`
	Google     GoogleConfig     `env:",prefix=GOOGLE_"`
	App        AppConfig        `env:",prefix=APP_"`
	Predict    PredictConfig    `env:",prefix=PREDICT_"`
	Invitation InvitationConfig `env:",prefix=INVITATION_"`
	Security   SecurityConfig   `env:",prefix="`
	CORS       CORSConfig       `env:",prefix=CORS_"`
	Env        string           `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=homeops"`
	Password string `env:"PASSWORD,default=homeops_password"`
	DBName   string `env:"DB,default=homeops_db"`
	SSLMode  string `env:"SSLMODE,default=disable"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type JWTConfig struct {
	Secret             string   `env:"SECRET,required"`
	AccessTokenExpiry  Duration `env:"ACCESS_TOKEN_EXPIRY,default=15m"`
	RefreshTokenExpiry Duration `env:"REFRESH_TOKEN_EXPIRY,default=7d"`
	MfaTicketExpiry    Duration `env:"MFA_TICKET_EXPIRY,default=5m"`
}

type CryptoConfig struct {
	EncryptionKey   string   `env:"ENCRYPTION_KEY"`
	EncryptionKeyID string   `env:"ENCRYPTION_KEY_ID,default=v1"`
	EnrollmentTTL   Duration `env:"ENROLLMENT_TTL,default=10m"`
}

type GoogleConfig struct {
	ClientID          string `env:"CLIENT_ID"`
	ClientSecret      string `env:"CLIENT_SECRET"`
	RedirectURI       string `env:"REDIRECT_URI"`
	SignupRedirectURI string `env:"SIGNUP_REDIRECT_URI"`
}

type AppConfig struct {
	Name      string `env:"NAME,default=HomeOps"`
	WebOrigin string `env:"WEB_ORIGIN,default=http://localhost:3000"`
}

type PredictConfig struct {
	MonthlyBudget string `env:"MONTHLY_BUDGET,default=20.00"`
	Model         string `env:"MODEL,default=gpt-4o-mini"`
	LLMAPIKey     string `env:"LLM_API_KEY"`
	LLMBaseURL    string `env:"LLM_BASE_URL,default=https://api.openai.com/v1"`
}

type InvitationConfig struct {
	TTL           Duration `env:"TTL,default=48h"`
	SweepInterval Duration `env:"SWEEP_INTERVAL,default=1h"`
}

type SecurityConfig struct {
	BCryptCost        int      `env:"BCRYPT_COST,default=12"`
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if len(config.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if config.Env == "production" && len(config.Crypto.EncryptionKey) < 32 {
		return nil, fmt.Errorf("MFA_ENCRYPTION_KEY must be at least 32 bytes in production")
	}

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}
