// internal/config/config.go

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Sources     SourcesConfig
	Scheduler   SchedulerConfig
	Neighbors   NeighborsConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// SourcesConfig holds the external data source configuration. An empty API
// key disables the corresponding source rather than failing startup.
type SourcesConfig struct {
	GooglePlacesAPIKey string
	GooglePlacesURL    string
	TwitterBearerToken string
	TwitterURL         string
	Timeout            time.Duration
}

// SchedulerConfig holds batch scheduler configuration
type SchedulerConfig struct {
	DefaultInterval time.Duration
	Locations       []string
	AutoStart       bool
	EventsTopic     string
}

// NeighborsConfig holds nearby-spot expansion configuration
type NeighborsConfig struct {
	RadiusMeters int
	Limit        int
	Categories   []string
}

// defaultLocations are the popular spots refreshed by the batch updater.
var defaultLocations = []string{
	"Tokyo Tower",
	"Shibuya Crossing",
	"Senso-ji Temple",
	"Tokyo Skytree",
	"Tsukiji Market",
	"Harajuku",
	"Ginza",
	"Roppongi Hills",
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	environment := getEnv("APP_ENV", "development")

	config := Config{
		Environment: environment,
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "crowdwatch"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
		},
		Sources: SourcesConfig{
			GooglePlacesAPIKey: getEnv("GOOGLE_PLACES_API_KEY", ""),
			GooglePlacesURL:    getEnv("GOOGLE_PLACES_URL", "https://maps.googleapis.com/maps/api/place"),
			TwitterBearerToken: getEnv("TWITTER_BEARER_TOKEN", ""),
			TwitterURL:         getEnv("TWITTER_URL", "https://api.twitter.com"),
			Timeout:            getEnvAsDuration("SOURCE_TIMEOUT", 8*time.Second),
		},
		Scheduler: SchedulerConfig{
			DefaultInterval: getEnvAsDuration("SCHEDULER_INTERVAL", 15*time.Minute),
			Locations:       getEnvAsSlice("SCHEDULER_LOCATIONS", defaultLocations),
			AutoStart:       getEnvAsBool("SCHEDULER_AUTO_START", environment == "development"),
			EventsTopic:     getEnv("SCHEDULER_EVENTS_TOPIC", "crowd"),
		},
		Neighbors: NeighborsConfig{
			RadiusMeters: getEnvAsInt("NEIGHBORS_RADIUS_METERS", 500),
			Limit:        getEnvAsInt("NEIGHBORS_LIMIT", 3),
			Categories:   getEnvAsSlice("NEIGHBORS_CATEGORIES", []string{"restaurant", "tourist_attraction"}),
		},
	}

	return config, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}
