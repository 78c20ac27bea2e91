package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port           string
	Environment    string
	LogLevel       string
	AllowedOrigins []string
	JWTSecret      string
	RelayPath      string
	Socket         SocketConfig
	Redis          RedisConfig
}

// SocketConfig holds per-connection WebSocket settings of the relay.
type SocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	MaxMessageSize  int64
	PongWait        time.Duration
	PingInterval    time.Duration
	WriteWait       time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	Prefix   string
	RoomTTL  time.Duration
}

// Addr is the host:port pair of the Redis server.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// ClientConfig configures a participant (cmd/cosign).
type ClientConfig struct {
	RelayURL    string
	ConvertURL  string
	PadWidth    float64
	Environment string
	LogLevel    string
}

func Load() *Config {
	// Parse allowed origins (comma-separated)
	originsStr := getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	origins := strings.Split(originsStr, ",")

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: origins,
		JWTSecret:      getEnv("JWT_SECRET", "change-me-in-production"),
		RelayPath:      getEnv("RELAY_PATH", "/websocket"),
		Socket: SocketConfig{
			ReadBufferSize:  getEnvInt("WS_READ_BUFFER", 1024),
			WriteBufferSize: getEnvInt("WS_WRITE_BUFFER", 1024),
			SendBuffer:      getEnvInt("WS_SEND_BUFFER", 256),
			MaxMessageSize:  int64(getEnvInt("WS_MAX_MESSAGE", 64*1024)),
			PongWait:        getEnvDuration("WS_PONG_WAIT", 60*time.Second),
			PingInterval:    getEnvDuration("WS_PING_INTERVAL", 54*time.Second),
			WriteWait:       getEnvDuration("WS_WRITE_WAIT", 10*time.Second),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "docsync:"),
			RoomTTL:  getEnvDuration("ROOM_TTL", 24*time.Hour),
		},
	}
}

// LoadClient reads participant settings. Flags in cmd/cosign override them.
func LoadClient() *ClientConfig {
	return &ClientConfig{
		RelayURL:    getEnv("RELAY_URL", "ws://localhost:8080/websocket"),
		ConvertURL:  getEnv("CONVERT_URL", "http://localhost:3001/html-to-pdf"),
		PadWidth:    getEnvFloat("PAD_WIDTH", 600),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && f > 0 {
		return f
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
