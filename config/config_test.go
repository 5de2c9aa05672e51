package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Auth:   AuthConfig{JWTSecret: "test-secret-key-for-unit-testing"},
		Gym:    GymConfig{Timezone: "UTC", DefaultCapacity: 50},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"合法配置", func(c *Config) {}, false},
		{"空密钥", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"密钥过短", func(c *Config) { c.Auth.JWTSecret = "short" }, true},
		{"端口越界", func(c *Config) { c.Server.Port = 70000 }, true},
		{"容量为零", func(c *Config) { c.Gym.DefaultCapacity = 0 }, true},
		{"时区无效", func(c *Config) { c.Gym.Timezone = "Mars/Olympus" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("期望 wantErr=%v，实际: %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GYM_AUTH_JWT_SECRET", "env-secret-key-0123456789")
	t.Setenv("GYM_GYM_DEFAULT_CAPACITY", "80")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if cfg.Gym.DefaultCapacity != 80 {
		t.Errorf("期望 DefaultCapacity=80，实际=%d", cfg.Gym.DefaultCapacity)
	}
	if cfg.Auth.AccessTokenTTL != 15*time.Minute {
		t.Errorf("期望默认 AccessTokenTTL=15m，实际=%v", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Gym.Location() != time.UTC {
		t.Errorf("期望默认时区 UTC，实际=%v", cfg.Gym.Location())
	}
}
