package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("JOB_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.1", cfg.CommissionRate.String())
	assert.Equal(t, 720*time.Hour, cfg.SettlementPeriod)
	assert.Equal(t, "memory", cfg.JobBackend)
	assert.Equal(t, 4, cfg.JobWorkers)
	assert.False(t, cfg.IsProd())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"commission above one", map[string]string{"COMMISSION_RATE": "1.5"}},
		{"bad commission", map[string]string{"COMMISSION_RATE": "ten"}},
		{"bad period", map[string]string{"SETTLEMENT_PERIOD": "month"}},
		{"rabbitmq without url", map[string]string{"JOB_BACKEND": "rabbitmq", "RABBITMQ_URL": ""}},
		{"unknown backend", map[string]string{"JOB_BACKEND": "sqs"}},
		{"default secret in prod", map[string]string{"APP_ENV": "production", "JWT_SECRET": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadMetricsGuard(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("JOB_BACKEND", "")
	t.Setenv("METRICS_TOKEN", " scrape ")
	t.Setenv("METRICS_ALLOWED_IPS", "10.0.0.1,10.0.0.2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "scrape", cfg.MetricsToken)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.MetricsAllowedIPs)
}

func TestLoadCORSOrigins(t *testing.T) {
	t.Setenv("JOB_BACKEND", "")

	t.Setenv("APP_ENV", "dev")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Contains(t, cfg.CORSAllowedOrigins, "http://localhost:5173")

	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.staybook.test, ,https://partners.staybook.test")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://app.staybook.test", "https://partners.staybook.test"}, cfg.CORSAllowedOrigins)

	t.Setenv("APP_ENV", "prod")
	t.Setenv("JWT_SECRET", "prod-jwt-secret")
	t.Setenv("GATEWAY_SECRET", "prod-gateway-secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.CORSAllowedOrigins)
}
