package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "disabled is always valid", mutate: func(c *Config) { c.Enabled = false }},
		{name: "defaults enabled", mutate: func(c *Config) { c.Enabled = true }},
		{
			name: "missing endpoint",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Endpoint = ""
			},
			wantErr: true,
		},
		{
			name: "bad protocol",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Protocol = "udp"
			},
			wantErr: true,
		},
		{
			name: "insecure remote endpoint",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Endpoint = "collector.example.com:4317"
				c.Insecure = true
			},
			wantErr: true,
		},
		{
			name: "secure remote endpoint",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Endpoint = "collector.example.com:4317"
				c.Insecure = false
			},
		},
		{
			name: "non-positive interval",
			mutate: func(c *Config) {
				c.Enabled = true
				c.ExportInterval = -time.Second
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			cfg.ApplyDefaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestIsLocalEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		want     bool
	}{
		{endpoint: "localhost:4317", want: true},
		{endpoint: "127.0.0.1:4317", want: true},
		{endpoint: "127.1.2.3:4317", want: true},
		{endpoint: "[::1]:4317", want: true},
		{endpoint: "::1", want: true},
		{endpoint: "collector.example.com:4317", want: false},
		{endpoint: "10.0.0.5:4317", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			cfg := Config{Endpoint: tt.endpoint}
			assert.Equal(t, tt.want, cfg.isLocalEndpoint())
		})
	}
}

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, tel.Enabled())
	assert.NoError(t, tel.ForceFlush(context.Background()))
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(context.Background(), Config{
		Enabled:  true,
		Endpoint: "remote.example.com:4317",
		Insecure: true,
	}, zap.NewNop())
	assert.Error(t, err)
}
