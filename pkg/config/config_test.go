package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valid() *Config {
	return &Config{
		Environment:  "development",
		ChatBackend:  BackendMemory,
		Notifier:     NotifierLog,
		TypingExpiry: 2 * time.Second,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"memory defaults", func(c *Config) {}, ""},
		{"firestore without project", func(c *Config) { c.ChatBackend = BackendFirestore }, "FIREBASE_PROJECT_ID"},
		{"firestore with project", func(c *Config) { c.ChatBackend = BackendFirestore; c.FirebaseProject = "p" }, ""},
		{"rtdb without url", func(c *Config) { c.ChatBackend = BackendRTDB }, "FIREBASE_DATABASE_URL"},
		{"unknown backend", func(c *Config) { c.ChatBackend = "mongo" }, "CHAT_BACKEND"},
		{"redis typing", func(c *Config) { c.TypingBackend = BackendRedis }, ""},
		{"unknown typing backend", func(c *Config) { c.TypingBackend = BackendRTDB }, "TYPING_BACKEND"},
		{"gateway without key", func(c *Config) { c.Notifier = NotifierGateway }, "FCM_SERVER_KEY"},
		{"unknown notifier", func(c *Config) { c.Notifier = "sms" }, "NOTIFIER"},
		{"zero expiry", func(c *Config) { c.TypingExpiry = 0 }, "TYPING_EXPIRY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUsesFirebase(t *testing.T) {
	c := valid()
	assert.False(t, c.UsesFirebase())

	c.Notifier = NotifierFCM
	assert.True(t, c.UsesFirebase())

	c = valid()
	c.Environment = "production"
	assert.True(t, c.UsesFirebase(), "production always verifies tokens with Firebase Auth")
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("CHAT_BACKEND", "MEMORY")
	t.Setenv("TYPING_EXPIRY", "3s")
	t.Setenv("SEND_RATE_BURST", "4")
	t.Setenv("SEND_RATE_PER_SEC", "not a number")
	t.Setenv("NOTIFIER", "log")
	t.Setenv("TYPING_BACKEND", "")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, c.ChatBackend)
	assert.Equal(t, 3*time.Second, c.TypingExpiry)
	assert.Equal(t, 4, c.SendRateBurst)
	assert.Equal(t, 2.0, c.SendRatePerSec)
	assert.Equal(t, NotifierLog, c.Notifier)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Setenv("CHAT_BACKEND", "firestore")
	t.Setenv("FIREBASE_PROJECT_ID", "")

	_, err := Load()
	assert.Error(t, err)
}
