package config

import (
	"os"
	"strconv"
	"time"

	"bitwash/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig `validate:"required"`
	Server   ServerConfig   `validate:"required"`
	Oracle   OracleConfig   `validate:"required"`
	Pipeline PipelineConfig `validate:"required"`
	Paths    PathConfig     `validate:"required"`
	Ops      OpsConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL     string `validate:"required"`
	SSLMode string
}

// ServerConfig holds the job API server settings
type ServerConfig struct {
	Port            string `validate:"required"`
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
}

// OracleConfig holds external test-runner settings
type OracleConfig struct {
	// STSPath is the NIST STS installation directory holding the
	// assess binary and its templates directory.
	STSPath string `validate:"required"`
	// MaxConcurrent bounds simultaneous assess invocations; each call
	// gets its own scoped working directory.
	MaxConcurrent int
	// CallTimeout bounds one assess run over one chunk.
	CallTimeout time.Duration
}

// PipelineConfig holds the core filtering thresholds
type PipelineConfig struct {
	ChunkSize         int // full-test chunk size in bits
	PrecheckChunkSize int
	PrecheckEnabled   bool
	MaxRounds         int
	Alpha             float64
	SubTestRequired   int
	SubTestPopulation int
}

// PathConfig holds file system paths
type PathConfig struct {
	DataDir string
}

// OpsConfig holds the gin ops/profiling server settings
type OpsConfig struct {
	Port    string
	Enabled bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load database configuration")
	}
	config.Database = *dbConfig

	oracleConfig, err := loadOracleConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load oracle configuration")
	}
	config.Oracle = *oracleConfig

	config.Server = *loadServerConfig()
	config.Pipeline = *loadPipelineConfig()
	config.Paths = *loadPathConfig()
	config.Ops = *loadOpsConfig()

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() (*DatabaseConfig, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	return &DatabaseConfig{
		URL:     url,
		SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
	}, nil
}

func loadOracleConfig() (*OracleConfig, error) {
	stsPath := os.Getenv("STS_PATH")
	if stsPath == "" {
		return nil, errors.ConfigInvalid("STS_PATH is required (NIST STS installation directory)")
	}

	return &OracleConfig{
		STSPath:       stsPath,
		MaxConcurrent: getEnvIntOrDefault("ORACLE_MAX_CONCURRENT", 2),
		CallTimeout:   getEnvDurationOrDefault("ORACLE_CALL_TIMEOUT", 10*time.Minute),
	}, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            getEnvOrDefault("PORT", "8080"),
		MaxUploadBytes:  int64(getEnvIntOrDefault("MAX_UPLOAD_BYTES", 64<<20)),
		ShutdownTimeout: getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}

func loadPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		ChunkSize:         getEnvIntOrDefault("CHUNK_SIZE", 1000000),
		PrecheckChunkSize: getEnvIntOrDefault("PRECHECK_CHUNK_SIZE", 50000),
		PrecheckEnabled:   getEnvBoolOrDefault("PRECHECK_ENABLED", true),
		MaxRounds:         getEnvIntOrDefault("MAX_ROUNDS", 16),
		Alpha:             getEnvFloatOrDefault("ALPHA", 0.01),
		SubTestRequired:   getEnvIntOrDefault("SUBTEST_REQUIRED", 143),
		SubTestPopulation: getEnvIntOrDefault("SUBTEST_POPULATION", 148),
	}
}

func loadPathConfig() *PathConfig {
	return &PathConfig{
		DataDir: getEnvOrDefault("DATA_DIR", "./data"),
	}
}

func loadOpsConfig() *OpsConfig {
	return &OpsConfig{
		Port:    getEnvOrDefault("OPS_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("OPS_ENABLED", true),
	}
}

func validateConfig(config *Config) error {
	if config.Database.URL == "" {
		return errors.ConfigInvalid("database URL is required")
	}
	if config.Pipeline.ChunkSize <= 0 {
		return errors.ConfigInvalid("chunk size must be positive")
	}
	if config.Pipeline.PrecheckChunkSize <= 0 {
		return errors.ConfigInvalid("precheck chunk size must be positive")
	}
	if config.Pipeline.MaxRounds <= 0 {
		return errors.ConfigInvalid("max rounds must be positive")
	}
	if config.Pipeline.Alpha <= 0 || config.Pipeline.Alpha >= 1 {
		return errors.ConfigInvalid("alpha must be in (0, 1)")
	}
	if config.Pipeline.SubTestRequired > config.Pipeline.SubTestPopulation {
		return errors.ConfigInvalid("sub-test required-pass count cannot exceed population")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
