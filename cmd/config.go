/*
Copyright © 2023 The Spray Proxy Contributors

SPDX-License-Identifier: Apache-2.0
*/
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/redhat-appstudio/clerkhook/pkg/apis/webhook"
)

const (
	envPrefix = "CLERKHOOK"

	keyHost           = "host"
	keyPort           = "port"
	keyMaxRequestSize = "max-request-size"
	keyMetricsHost    = "metrics-host"
	keyMetricsPort    = "metrics-port"
	keyMetricsCert    = "metrics-cert"
	keyMetricsKey     = "metrics-key"
	keyDebug          = "debug"
	keySigningSecret  = "signing-secret"
)

type serverConfig struct {
	Host           string
	Port           int
	MaxRequestSize int64
	MetricsHost    string
	MetricsPort    int
	MetricsCert    string
	MetricsKey     string
	Debug          bool
	SigningSecret  string
}

// newViper layers, from lowest to highest precedence: flag defaults, the
// optional config file, CLERKHOOK_* environment variables and set flags.
// The signing secret is read from CLERK_WEBHOOK_SIGNING_SECRET only.
func newViper(flags *pflag.FlagSet, configFile string) (*viper.Viper, error) {
	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv(keySigningSecret, webhook.SigningSecretEnv); err != nil {
		return nil, fmt.Errorf("binding %s: %w", webhook.SigningSecretEnv, err)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}
	return v, nil
}

func loadServerConfig(v *viper.Viper) (serverConfig, error) {
	cfg := serverConfig{
		Host:           v.GetString(keyHost),
		Port:           v.GetInt(keyPort),
		MaxRequestSize: v.GetInt64(keyMaxRequestSize),
		MetricsHost:    v.GetString(keyMetricsHost),
		MetricsPort:    v.GetInt(keyMetricsPort),
		MetricsCert:    v.GetString(keyMetricsCert),
		MetricsKey:     v.GetString(keyMetricsKey),
		Debug:          v.GetBool(keyDebug),
		SigningSecret:  strings.TrimSpace(v.GetString(keySigningSecret)),
	}
	return cfg, cfg.Validate()
}

// Validate checks the listener settings. A missing signing secret is not an
// error here: the server starts and refuses deliveries until it is set.
func (c serverConfig) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid metrics port %d", c.MetricsPort))
	}
	if c.MetricsPort != 0 && c.MetricsPort == c.Port {
		errs = append(errs, errors.New("metrics port must differ from the webhook port"))
	}
	if c.MaxRequestSize <= 0 {
		errs = append(errs, fmt.Errorf("invalid max request size %d", c.MaxRequestSize))
	}
	if (c.MetricsCert == "") != (c.MetricsKey == "") {
		errs = append(errs, errors.New("metrics TLS needs both --metrics-cert and --metrics-key"))
	}
	return errors.Join(errs...)
}

func (c serverConfig) webhookConfig() webhook.Config {
	return webhook.Config{
		SigningSecret:  c.SigningSecret,
		MaxRequestSize: c.MaxRequestSize,
	}
}
