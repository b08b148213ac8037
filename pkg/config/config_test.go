package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	require.NotNil(t, cfg)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshExpiration)
	assert.Equal(t, MailProviderLog, cfg.Mail.Provider)
	assert.Equal(t, int64(10*1024*1024), cfg.Attachments.MaxFileSizeBytes)
	assert.Contains(t, cfg.Attachments.AllowedMIMEs, "application/pdf")
	assert.False(t, cfg.Tracing.Enabled)
	assert.InDelta(t, 0.1, cfg.Tracing.SampleRatio, 0.0001)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("JWT_EXPIRATION", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", " http://a.test , ,http://b.test")
	v.Set("OTEL_SAMPLER_RATIO", 4.2)
	v.Set("OTEL_EXPORTER_OTLP_HEADERS", "x-api-key=abc,broken,=empty")
	v.Set("MAIL_PROVIDER", "SendGrid")

	cfg := fromViper(v)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
	assert.Equal(t, map[string]string{"x-api-key": "abc"}, cfg.Tracing.Headers)
	assert.Equal(t, MailProviderSendGrid, cfg.Mail.Provider)
}
