package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "oracare-fulfillment", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "https://ssapi.shipstation.com", cfg.ShipStation.BaseURL)
	assert.Equal(t, 500, cfg.ShipStation.PageSize)
	assert.Equal(t, "oracare_session", cfg.Session.CookieName)
	assert.True(t, cfg.Sync.UnifiedInterval < cfg.Sync.ScannerInterval)
	assert.True(t, cfg.Sync.ScannerInterval < cfg.Sync.CleanupInterval)
	assert.Equal(t, 90, cfg.Sync.CollisionWindowDays)
	assert.Equal(t, 60*24*time.Hour, cfg.Sync.InboxRetention)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name: "idle conns exceed open conns",
			mutate: func(c *Config) {
				c.Database.MaxOpenConns = 2
				c.Database.MaxIdleConns = 5
			},
			wantErr: "cannot exceed",
		},
		{
			name: "production requires database password",
			mutate: func(c *Config) {
				c.App.Env = "production"
			},
			wantErr: "database.password is required",
		},
		{
			name: "production rejects sslmode disable",
			mutate: func(c *Config) {
				c.App.Env = "production"
				c.Database.Password = "secret"
			},
			wantErr: "sslmode",
		},
		{
			name: "production requires shipstation credentials",
			mutate: func(c *Config) {
				c.App.Env = "production"
				c.Database.Password = "secret"
				c.Database.SSLMode = "require"
			},
			wantErr: "shipstation.api_key",
		},
		{
			name: "production requires secure session cookie",
			mutate: func(c *Config) {
				c.App.Env = "production"
				c.Database.Password = "secret"
				c.Database.SSLMode = "require"
				c.ShipStation.APIKey = "k"
				c.ShipStation.APISecret = "s"
			},
			wantErr: "session.secure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			applyDefaults(cfg)
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "oracare",
		Password: "p@ss/word",
		DBName:   "fulfillment",
		SSLMode:  "require",
	}

	dsn := d.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5433")
	assert.Contains(t, dsn, "sslmode=require")
	// Special characters in the password must be escaped
	assert.NotContains(t, dsn, "p@ss/word")
}

func TestRedisAddr(t *testing.T) {
	r := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", r.Addr())
}
