package config

import (
	"errors"
	"time"
)

type JWTConfig struct {
	Secret         string
	Expiration     time.Duration
	VerifyTokenTTL time.Duration
	ResetTokenTTL  time.Duration
}

type AuthConfig struct {
	LogLevel string
	Kafka    KafkaConfig
	RPC      RPCConfig
	DB       DBConfig
	JWT      JWTConfig
}

func LoadAuthConfig() (*AuthConfig, error) {
	s, err := newSource()
	if err != nil {
		return nil, err
	}
	cfg := &AuthConfig{
		LogLevel: s.logLevel(),
		Kafka:    s.kafka(),
		RPC:      s.rpc("auth"),
		DB:       s.db("AUTH", "auth_db"),
		JWT: JWTConfig{
			Secret:         s.getEnvOrDefault("JWT_SECRET", ""),
			Expiration:     s.getEnvAsDuration("JWT_EXPIRATION", time.Hour),
			VerifyTokenTTL: s.getEnvAsDuration("VERIFY_TOKEN_TTL", 24*time.Hour),
			ResetTokenTTL:  s.getEnvAsDuration("RESET_TOKEN_TTL", time.Hour),
		},
	}
	if cfg.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	UseSSL          bool
	URLExpiry       time.Duration
}

type FilesConfig struct {
	LogLevel string
	Kafka    KafkaConfig
	RPC      RPCConfig
	DB       DBConfig
	S3       S3Config
}

func LoadFilesConfig() (*FilesConfig, error) {
	s, err := newSource()
	if err != nil {
		return nil, err
	}
	return &FilesConfig{
		LogLevel: s.logLevel(),
		Kafka:    s.kafka(),
		RPC:      s.rpc("files"),
		DB:       s.db("FILES", "files_db"),
		S3: S3Config{
			Endpoint:        s.getEnvOrDefault("S3_ENDPOINT", "localhost:9000"),
			AccessKeyID:     s.getEnvOrDefault("S3_ACCESS_KEY_ID", "minioadmin"),
			SecretAccessKey: s.getEnvOrDefault("S3_SECRET_ACCESS_KEY", "minioadmin"),
			Bucket:          s.getEnvOrDefault("S3_BUCKET", "documents"),
			Region:          s.getEnvOrDefault("S3_REGION", "us-east-1"),
			UseSSL:          s.getEnvAsBool("S3_USE_SSL", false),
			URLExpiry:       s.getEnvAsDuration("S3_URL_EXPIRY", time.Hour),
		},
	}, nil
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type EmailConfig struct {
	LogLevel    string
	Kafka       KafkaConfig
	SMTP        SMTPConfig
	FrontendURL string
	InboxPath   string
	InboxTTL    time.Duration
}

func LoadEmailConfig() (*EmailConfig, error) {
	s, err := newSource()
	if err != nil {
		return nil, err
	}
	return &EmailConfig{
		LogLevel: s.logLevel(),
		Kafka:    s.kafka(),
		SMTP: SMTPConfig{
			Host:     s.getEnvOrDefault("SMTP_HOST", "localhost"),
			Port:     s.getEnvAsInt("SMTP_PORT", 1025),
			User:     s.getEnvOrDefault("SMTP_USER", ""),
			Password: s.getEnvOrDefault("SMTP_PASSWORD", ""),
			From:     s.getEnvOrDefault("EMAIL_FROM", "DocVault <noreply@docvault.local>"),
		},
		FrontendURL: s.getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
		InboxPath:   s.getEnvOrDefault("EMAIL_INBOX_PATH", "./data/email-inbox"),
		InboxTTL:    s.getEnvAsDuration("EMAIL_INBOX_TTL", 72*time.Hour),
	}, nil
}

type GatewayConfig struct {
	LogLevel           string
	Port               int
	Kafka              KafkaConfig
	RPC                RPCConfig
	JWTSecret          string
	CORSAllowedOrigins []string
	RateLimit          float64
	RateBurst          int
	MaxUploadBytes     int64
}

func LoadGatewayConfig() (*GatewayConfig, error) {
	s, err := newSource()
	if err != nil {
		return nil, err
	}
	cfg := &GatewayConfig{
		LogLevel:           s.logLevel(),
		Port:               s.getEnvAsInt("GATEWAY_PORT", 8080),
		Kafka:              s.kafka(),
		RPC:                s.rpc("gateway"),
		JWTSecret:          s.getEnvOrDefault("JWT_SECRET", ""),
		CORSAllowedOrigins: s.getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimit:          s.getEnvAsFloat("GATEWAY_RATE_LIMIT", 20),
		RateBurst:          s.getEnvAsInt("GATEWAY_RATE_BURST", 40),
		MaxUploadBytes:     int64(s.getEnvAsInt("GATEWAY_MAX_UPLOAD_BYTES", 10<<20)),
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}
