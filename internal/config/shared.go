package config

import "fmt"

// --- Shared Configs ---

type ServerConfig struct {
	Port      string // HTTP + WebSocket port
	PprofPort string
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, console
	LogFile   string
}

type DatabaseConfig struct {
	Driver      string // sqlite, postgres
	RosterPath  string // sqlite file for the roster
	HistoryPath string // sqlite file for the round history
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	LogLevel    string
}

// PostgresDSN builds the postgres connection string.
func (c DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port
func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// LoadServerConfig loads the listener and logging settings
func LoadServerConfig() ServerConfig {
	return ServerConfig{
		Port:      getEnv("ROULETTE_PORT", "8081"),
		PprofPort: getEnv("PPROF_PORT", ""),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogFile:   getEnv("LOG_FILE", "logs/roulette/server.log"),
	}
}

// LoadDatabaseConfig loads the roster and history store settings
func LoadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:      getEnv("DB_DRIVER", "sqlite"),
		RosterPath:  getEnv("ROSTER_PATH", "data/roster.db"),
		HistoryPath: getEnv("HISTORY_PATH", "data/history.db"),
		Host:        getEnv("DB_HOST", "localhost"),
		Port:        getEnv("DB_PORT", "5432"),
		User:        getEnv("DB_USER", "casino_user"),
		Password:    getEnv("DB_PASSWORD", "casino_pass"),
		Name:        getEnv("DB_NAME", "casino_db"),
		LogLevel:    getEnv("DB_LOG_LEVEL", "warn"),
	}
}

// LoadRedisConfig loads the redis connection settings
func LoadRedisConfig() RedisConfig {
	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}
}
