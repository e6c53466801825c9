package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment selects where credentials and the vector store come from
type Environment string

const (
	// EnvironmentLocal is used when the Environment variable is unset (scripts, local runs)
	EnvironmentLocal      Environment = ""
	EnvironmentLocalstack Environment = "localstack"
	EnvironmentProd       Environment = "prod"
)

// Record store backends
const (
	StoreQdrant   = "qdrant"
	StorePgvector = "pgvector"
)

// LLM providers
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config holds all configuration for the application
type Config struct {
	Environment Environment
	RecordStore string
	LLMProvider string
	Server      ServerConfig
	Search      SearchConfig
	Generation  GenerationConfig
	Logging     LoggingConfig
	OpenAI      OpenAIConfig
	Ollama      OllamaConfig
	Qdrant      QdrantConfig
	PostgreSQL  PostgreSQLConfig
	Redis       RedisConfig
	Secrets     SecretsConfig
	Ingest      IngestConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
	APIKey         string // empty disables the x-api-key check
}

// SearchConfig holds retrieval configuration
type SearchConfig struct {
	Limit           int
	PointBoxMeters  float64 // bounding box edge when the request targets an exact point
	AreaBoxMeters   float64 // bounding box edge otherwise
	MetersPerMinute int
	DefaultLanguage string // language of the not-found message when no hint is given
}

// GenerationConfig holds answer generation settings
type GenerationConfig struct {
	FallbackLanguage string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey              string
	APIBase             string
	ChatModel           string
	ChatTemperature     float64
	ChatMaxTokens       int
	EmbeddingModel      string
	EmbeddingDimensions int
	BatchSize           int
	BatchIntervalMs     int
	Timeout             int
	Enabled             bool
}

// OllamaConfig holds configuration for the Ollama provider
type OllamaConfig struct {
	Host           string
	ChatModel      string
	EmbeddingModel string
}

// QdrantConfig holds Qdrant connection configuration
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// PostgreSQLConfig holds PostgreSQL (pgvector) configuration
type PostgreSQLConfig struct {
	DSN                string
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	Table              string
	MaxConnections     int
	MaxIdleConnections int
}

// RedisConfig holds configuration for the question embedding cache
type RedisConfig struct {
	Addr     string // empty disables the cache
	Password string
	DB       int
	Prefix   string
	TTL      int // seconds
}

// SecretsConfig holds AWS Secrets Manager settings
type SecretsConfig struct {
	Region             string
	NamePrefix         string
	LocalstackEndpoint string
}

// IngestConfig holds offline ingestion settings
type IngestConfig struct {
	UpsertBatchSize int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	envWarnings = nil

	// Try to load .env file (optional)
	_ = godotenv.Load()

	env, err := ParseEnvironment(os.Getenv("Environment"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment: env,
		RecordStore: strings.ToLower(getEnv("RECORD_STORE", StoreQdrant)),
		LLMProvider: strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PATCH,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization,x-api-key"),
			APIKey:         getEnv("API_KEY", ""),
		},
		Search: SearchConfig{
			Limit:           getEnvAsInt("SEARCH_LIMIT", 5),
			PointBoxMeters:  getEnvAsFloat("SEARCH_POINT_BOX_METERS", 100),
			AreaBoxMeters:   getEnvAsFloat("SEARCH_AREA_BOX_METERS", 500),
			MetersPerMinute: getEnvAsInt("SEARCH_METERS_PER_MINUTE", 80),
			DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "en"),
		},
		Generation: GenerationConfig{
			FallbackLanguage: getEnv("GENERATION_FALLBACK_LANGUAGE", "English"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", defaultLogLevel(env)),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		OpenAI: OpenAIConfig{
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			APIBase:             getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"),
			ChatModel:           getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			ChatTemperature:     getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0),
			ChatMaxTokens:       getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 1024),
			EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimensions: getEnvAsInt("OPENAI_EMBEDDING_DIMENSIONS", 1536),
			BatchSize:           getEnvAsInt("OPENAI_BATCH_SIZE", 100),
			BatchIntervalMs:     getEnvAsInt("OPENAI_BATCH_INTERVAL_MS", 100),
			Timeout:             getEnvAsInt("OPENAI_TIMEOUT", 60),
		},
		Ollama: OllamaConfig{
			Host:           getEnv("OLLAMA_HOST", "http://localhost:11434"),
			ChatModel:      getEnv("OLLAMA_CHAT_MODEL", "llama3.1"),
			EmbeddingModel: getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
		},
		Qdrant: QdrantConfig{
			Host:       getEnv("QDRANT_HOST", defaultQdrantHost(env)),
			Port:       getEnvAsInt("QDRANT_PORT", 6334),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			UseTLS:     getEnvAsBool("QDRANT_USE_TLS", env == EnvironmentProd),
			Collection: getEnv("QDRANT_COLLECTION", "tokyo_landprice_rag"),
		},
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("PG_DSN", "")),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "landprice"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			Table:              getEnv("PG_TABLE", "land_prices"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "landprice:"),
			TTL:      getEnvAsInt("REDIS_TTL_SECONDS", 86400),
		},
		Secrets: SecretsConfig{
			Region:             getEnv("SECRETS_REGION", "ap-northeast-1"),
			NamePrefix:         getEnv("SECRETS_NAME_PREFIX", "tokyo-landprice-rag"),
			LocalstackEndpoint: getEnv("LOCALSTACK_ENDPOINT", "http://localstack-tokyo-landprice-rag:4566"),
		},
		Ingest: IngestConfig{
			UpsertBatchSize: getEnvAsInt("INGEST_UPSERT_BATCH_SIZE", 256),
		},
	}

	cfg.OpenAI.Enabled = cfg.OpenAI.APIKey != ""

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplySecrets overlays resolved credentials on top of the environment configuration
func (c *Config) ApplySecrets(s *Secrets) {
	if s == nil {
		return
	}
	if s.OpenAIAPIKey != "" {
		c.OpenAI.APIKey = s.OpenAIAPIKey
		c.OpenAI.Enabled = true
	}
	if s.QdrantAPIKey != "" {
		c.Qdrant.APIKey = s.QdrantAPIKey
	}
	if s.QdrantHost != "" && c.Environment == EnvironmentProd {
		c.Qdrant.Host = s.QdrantHost
	}
}

// Validate checks option values that cannot be defaulted
func (c *Config) Validate() error {
	switch c.RecordStore {
	case StoreQdrant, StorePgvector:
	default:
		return fmt.Errorf("invalid RECORD_STORE value: %s", c.RecordStore)
	}
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("invalid LLM_PROVIDER value: %s", c.LLMProvider)
	}
	if c.Search.Limit <= 0 {
		return fmt.Errorf("SEARCH_LIMIT must be positive, got %d", c.Search.Limit)
	}
	if c.Search.MetersPerMinute <= 0 {
		return fmt.Errorf("SEARCH_METERS_PER_MINUTE must be positive, got %d", c.Search.MetersPerMinute)
	}
	return nil
}

// QdrantAddr returns the host:port of the Qdrant gRPC endpoint
func (c *Config) QdrantAddr() string {
	return fmt.Sprintf("%s:%d", c.Qdrant.Host, c.Qdrant.Port)
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// ParseEnvironment validates the Environment variable
func ParseEnvironment(raw string) (Environment, error) {
	switch Environment(raw) {
	case EnvironmentLocal, EnvironmentLocalstack, EnvironmentProd:
		return Environment(raw), nil
	default:
		return "", fmt.Errorf("invalid Environment value: %s", raw)
	}
}

func defaultQdrantHost(env Environment) string {
	if env == EnvironmentLocalstack {
		return "host.docker.internal"
	}
	return "localhost"
}

func defaultLogLevel(env Environment) string {
	if env == EnvironmentProd {
		return "info"
	}
	return "debug"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		envWarnings = append(envWarnings, fmt.Sprintf("invalid integer value for %s, using default %d", key, defaultValue))
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		envWarnings = append(envWarnings, fmt.Sprintf("invalid float value for %s, using default %f", key, defaultValue))
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		envWarnings = append(envWarnings, fmt.Sprintf("invalid boolean value for %s, using default %t", key, defaultValue))
		return defaultValue
	}
	return value
}

// envWarnings collects malformed values seen during Load; the logger is not
// configured yet at that point, so main reports them afterwards.
var envWarnings []string

// Warnings returns the malformed-value warnings collected by the last Load
func Warnings() []string {
	return envWarnings
}
