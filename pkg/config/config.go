package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
	BackendRTDB      = "rtdb"
	BackendRedis     = "redis"

	NotifierGateway = "gateway"
	NotifierFCM     = "fcm"
	NotifierLog     = "log"
)

type Config struct {
	ServerPort  string
	Environment string
	LogLevel    string

	FirebaseProject     string
	FirebaseDatabaseURL string
	ServiceAccountJSON  string
	ServiceAccountPath  string

	ChatBackend   string
	TypingBackend string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	TypingExpiry     time.Duration
	RTDBPollInterval time.Duration

	Notifier            string
	FCMGatewayURL       string
	FCMServerKey        string
	NotificationClick   string
	NotificationTimeout time.Duration

	SendRatePerSec float64
	SendRateBurst  int
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", ""),

		FirebaseProject:     getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseDatabaseURL: getEnv("FIREBASE_DATABASE_URL", ""),
		ServiceAccountJSON:  getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		ServiceAccountPath:  getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),

		ChatBackend:   strings.ToLower(getEnv("CHAT_BACKEND", BackendMemory)),
		TypingBackend: strings.ToLower(getEnv("TYPING_BACKEND", "")),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		TypingExpiry:     getEnvAsDuration("TYPING_EXPIRY", 2*time.Second),
		RTDBPollInterval: getEnvAsDuration("RTDB_POLL_INTERVAL", time.Second),

		Notifier:            strings.ToLower(getEnv("NOTIFIER", NotifierLog)),
		FCMGatewayURL:       getEnv("FCM_GATEWAY_URL", "https://fcm.googleapis.com/fcm/send"),
		FCMServerKey:        getEnv("FCM_SERVER_KEY", ""),
		NotificationClick:   getEnv("NOTIFICATION_CLICK_ACTION", "FLUTTER_NOTIFICATION_CLICK"),
		NotificationTimeout: getEnvAsDuration("NOTIFICATION_TIMEOUT", 10*time.Second),

		SendRatePerSec: getEnvAsFloat("SEND_RATE_PER_SEC", 2),
		SendRateBurst:  getEnvAsInt("SEND_RATE_BURST", 10),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	switch c.ChatBackend {
	case BackendMemory:
	case BackendFirestore:
		if c.FirebaseProject == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for the firestore backend")
		}
	case BackendRTDB:
		if c.FirebaseDatabaseURL == "" {
			return fmt.Errorf("FIREBASE_DATABASE_URL is required for the rtdb backend")
		}
	default:
		return fmt.Errorf("unknown CHAT_BACKEND %q", c.ChatBackend)
	}

	switch c.TypingBackend {
	case "", BackendRedis:
	default:
		return fmt.Errorf("unknown TYPING_BACKEND %q", c.TypingBackend)
	}

	switch c.Notifier {
	case NotifierLog, NotifierFCM:
	case NotifierGateway:
		if c.FCMServerKey == "" {
			return fmt.Errorf("FCM_SERVER_KEY is required for the gateway notifier")
		}
	default:
		return fmt.Errorf("unknown NOTIFIER %q", c.Notifier)
	}

	if c.TypingExpiry <= 0 {
		return fmt.Errorf("TYPING_EXPIRY must be positive")
	}
	return nil
}

// IsDevelopment enables development tokens when Firebase is not in use.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// UsesFirebase reports whether a Firebase app has to be initialized. Outside
// development it always is, because ID tokens are verified by Firebase Auth.
func (c *Config) UsesFirebase() bool {
	return !c.IsDevelopment() || c.ChatBackend == BackendFirestore || c.ChatBackend == BackendRTDB || c.Notifier == NotifierFCM
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.Atoi(value)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
