/*
Copyright © 2023 The Spray Proxy Contributors

SPDX-License-Identifier: Apache-2.0
*/
package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redhat-appstudio/clerkhook/pkg/apis/webhook"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	t.Setenv(webhook.SigningSecretEnv, "")

	v, err := newViper(serverCmd.Flags(), "")
	require.NoError(t, err)
	cfg, err := loadServerConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 6000, cfg.MetricsPort)
	assert.Equal(t, webhook.DefaultMaxRequestSize, cfg.MaxRequestSize)
	assert.Empty(t, cfg.SigningSecret)
	assert.False(t, cfg.Debug)
}

func TestLoadServerConfigEnvironment(t *testing.T) {
	t.Setenv(webhook.SigningSecretEnv, " whsec_test\n")
	t.Setenv("CLERKHOOK_PORT", "9090")
	t.Setenv("CLERKHOOK_MAX_REQUEST_SIZE", "2048")
	t.Setenv("CLERKHOOK_METRICS_PORT", "0")

	v, err := newViper(serverCmd.Flags(), "")
	require.NoError(t, err)
	cfg, err := loadServerConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "whsec_test", cfg.SigningSecret)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, int64(2048), cfg.MaxRequestSize)
	assert.Equal(t, 0, cfg.MetricsPort)
	assert.Equal(t, webhook.Config{SigningSecret: "whsec_test", MaxRequestSize: 2048}, cfg.webhookConfig())
}

func TestLoadServerConfigFile(t *testing.T) {
	t.Setenv(webhook.SigningSecretEnv, "whsec_test")
	t.Setenv("CLERKHOOK_HOST", "")
	path := filepath.Join(t.TempDir(), "clerkhook.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: 0.0.0.0\nport: 8443\ndebug: true\nsigning-secret: whsec_from_file\n"), 0o600))

	v, err := newViper(serverCmd.Flags(), path)
	require.NoError(t, err)
	cfg, err := loadServerConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8443, cfg.Port)
	assert.True(t, cfg.Debug)
	// the environment wins over the file
	assert.Equal(t, "whsec_test", cfg.SigningSecret)
}

func TestLoadServerConfigMissingFile(t *testing.T) {
	_, err := newViper(serverCmd.Flags(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestServerConfigValidate(t *testing.T) {
	valid := serverConfig{Host: "localhost", Port: 8080, MetricsPort: 6000, MaxRequestSize: 1024}
	require.NoError(t, valid.Validate())

	for name, mutate := range map[string]func(*serverConfig){
		"port zero":             func(c *serverConfig) { c.Port = 0 },
		"port too large":        func(c *serverConfig) { c.Port = 70000 },
		"negative metrics port": func(c *serverConfig) { c.MetricsPort = -1 },
		"metrics port clash":    func(c *serverConfig) { c.MetricsPort = 8080 },
		"zero max request size": func(c *serverConfig) { c.MaxRequestSize = 0 },
		"cert without key":      func(c *serverConfig) { c.MetricsCert = "tls.crt" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
