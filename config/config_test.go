package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"ADDR", "PUBLIC_URL", "CORS_ORIGINS", "POSTGRES_DSN", "STORE_DRIVER", "MONGO_URI",
		"MONGO_DATABASE", "GRIDFS_BUCKET", "FILE_BACKEND", "S3_BUCKET", "JWT_SECRET",
		"TOKEN_TTL", "EVENTS_DRIVER", "KAFKA_BROKERS", "KAFKA_TOPIC", "SQS_QUEUE",
		"SMTP_SERVER", "SMTP_PORT", "SMTP_EMAIL", "SMTP_PASSWORD",
		"WORKFLOW_ADMIN_COMPLETION", "POLL_INTERVAL", "DEV_ADMIN_EMAIL", "DEV_ADMIN_PASSWORD",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cr3t")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, DriverMongo, cfg.StoreDriver)
	assert.Equal(t, FilesGridFS, cfg.FileBackend)
	assert.Equal(t, EventsNone, cfg.EventsDriver)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 12*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.True(t, cfg.AdminMayComplete)
	assert.False(t, cfg.SMTPEnabled())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cr3t")
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("FILE_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "evidencias")
	t.Setenv("EVENTS_DRIVER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("CORS_ORIGINS", "https://portal.intechlab.com,http://localhost:3000")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("WORKFLOW_ADMIN_COMPLETION", "false")
	t.Setenv("SMTP_SERVER", "smtp.intechlab.com")
	t.Setenv("SMTP_EMAIL", "avisos@intechlab.com")
	t.Setenv("SMTP_PORT", "465")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, FilesS3, cfg.FileBackend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Len(t, cfg.CORSOrigins, 2)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.False(t, cfg.AdminMayComplete)
	assert.Equal(t, 465, cfg.SMTPPort)
	assert.True(t, cfg.SMTPEnabled())
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"sin secreto", map[string]string{}},
		{"driver", map[string]string{"JWT_SECRET": "x", "STORE_DRIVER": "sqlite"}},
		{"s3 sin bucket", map[string]string{"JWT_SECRET": "x", "FILE_BACKEND": "s3"}},
		{"eventos", map[string]string{"JWT_SECRET": "x", "EVENTS_DRIVER": "rabbit"}},
		{"ttl", map[string]string{"JWT_SECRET": "x", "TOKEN_TTL": "mucho"}},
		{"bandera", map[string]string{"JWT_SECRET": "x", "WORKFLOW_ADMIN_COMPLETION": "quizas"}},
		{"puerto", map[string]string{"JWT_SECRET": "x", "SMTP_PORT": "smtp"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
