package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"docvault/internal/util"

	"github.com/pelletier/go-toml/v2"
)

// ConfigFileEnv names an optional TOML file whose keys seed the environment.
// Environment variables always win over the file.
const ConfigFileEnv = "CONFIG_FILE"

type KafkaConfig struct {
	BrokerURL         string
	ReplicationFactor int
}

func (k KafkaConfig) Brokers() []string {
	return strings.Split(k.BrokerURL, ",")
}

type RPCConfig struct {
	Timeout       time.Duration
	UploadTimeout time.Duration
	ReplyQueue    string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (d DBConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

func (d DBConfig) MigrationConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

// source resolves keys from the process environment first and the optional
// config file second.
type source struct {
	file map[string]string
}

func newSource() (*source, error) {
	s := &source{file: map[string]string{}}

	path, ok := os.LookupEnv(ConfigFileEnv)
	if !ok || path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	flatten("", raw, s.file)
	return s, nil
}

// flatten turns nested tables into upper-case env-style keys, so
// [kafka] broker_url becomes KAFKA_BROKER_URL.
func flatten(prefix string, in map[string]any, out map[string]string) {
	for k, v := range in {
		key := strings.ToUpper(k)
		if prefix != "" {
			key = prefix + "_" + key
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case []any:
			parts := make([]string, 0, len(val))
			for _, item := range val {
				parts = append(parts, fmt.Sprint(item))
			}
			out[key] = strings.Join(parts, ",")
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

func (s *source) getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if value, exists := s.file[key]; exists {
		return value
	}
	return defaultValue
}

func (s *source) getEnvAsInt(key string, defaultValue int) int {
	valueStr := s.getEnvOrDefault(key, strconv.Itoa(defaultValue))
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func (s *source) getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := s.getEnvOrDefault(key, strconv.FormatFloat(defaultValue, 'f', -1, 64))
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func (s *source) getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := s.getEnvOrDefault(key, strconv.FormatBool(defaultValue))
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func (s *source) getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := s.getEnvOrDefault(key, defaultValue.String())
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func (s *source) getEnvAsList(key string, defaultValue []string) []string {
	valueStr := s.getEnvOrDefault(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (s *source) kafka() KafkaConfig {
	return KafkaConfig{
		BrokerURL:         s.getEnvOrDefault("KAFKA_BROKER_URL", "localhost:9092"),
		ReplicationFactor: s.getEnvAsInt("KAFKA_REPLICATION_FACTOR", 1),
	}
}

func (s *source) rpc(service string) RPCConfig {
	return RPCConfig{
		Timeout:       s.getEnvAsDuration("RPC_TIMEOUT", 10*time.Second),
		UploadTimeout: s.getEnvAsDuration("RPC_UPLOAD_TIMEOUT", 30*time.Second),
		ReplyQueue:    s.getEnvOrDefault("RPC_REPLY_QUEUE", defaultReplyQueue(service)),
	}
}

// defaultReplyQueue is stable across restarts of the same host so that a
// restarted process reuses its reply topic and consumer group. Deployments
// running several replicas on one host must set RPC_REPLY_QUEUE.
func defaultReplyQueue(service string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = util.GenerateUUID()
	}
	return "replies." + service + "." + topicSafe(host)
}

// topicSafe keeps only characters Kafka accepts in topic names.
func topicSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		default:
			return '-'
		}
	}, s)
}

// db reads <PREFIX>_DB_* keys, e.g. AUTH_DB_HOST.
func (s *source) db(prefix, defaultName string) DBConfig {
	return DBConfig{
		Host:     s.getEnvOrDefault(prefix+"_DB_HOST", "localhost"),
		Port:     s.getEnvAsInt(prefix+"_DB_PORT", 5432),
		User:     s.getEnvOrDefault(prefix+"_DB_USER", "user"),
		Password: s.getEnvOrDefault(prefix+"_DB_PASSWORD", "password"),
		Name:     s.getEnvOrDefault(prefix+"_DB_NAME", defaultName),
		SSLMode:  s.getEnvOrDefault(prefix+"_DB_SSLMODE", "disable"),
	}
}

func (s *source) logLevel() string {
	return s.getEnvOrDefault("LOG_LEVEL", "info")
}
