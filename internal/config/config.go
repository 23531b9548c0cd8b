/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

// CollectorConfig configures the answer collector endpoint used for submission.
type CollectorConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark" (informational for now)
}

// DrawingConfig carries the initial tool state and the option lists the host
// UI offers. The engine receives these verbatim at construction.
type DrawingConfig struct {
	Tool             string    `yaml:"tool"`
	Color            string    `yaml:"color"`
	Thickness        float64   `yaml:"thickness"`
	ColorPalette     []string  `yaml:"color_palette"`
	ThicknessOptions []float64 `yaml:"thickness_options"`
	CanvasWidth      float64   `yaml:"canvas_width"`
	CanvasHeight     float64   `yaml:"canvas_height"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	General       GeneralConfig   `yaml:"general"`
	Drawing       DrawingConfig   `yaml:"drawing"`
	Collector     CollectorConfig `yaml:"collector"`
	Logging       LoggingConfig   `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system"},
		Drawing: DrawingConfig{
			Tool:             "pencil",
			Color:            "#1a1a1a",
			Thickness:        3,
			ColorPalette:     []string{"#1a1a1a", "#d22b2b", "#1e66c8", "#1f8a3b", "#e8a511"},
			ThicknessOptions: []float64{1, 3, 6, 10},
			CanvasWidth:      1536,
			CanvasHeight:     2048,
		},
		Collector: CollectorConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000, TLSInsecure: false},
		Logging:   LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvCollectorURL       = "ESK_COLLECTOR_URL"
	EnvCollectorTimeoutMs = "ESK_COLLECTOR_TIMEOUT_MS"
	EnvCollectorTLSInsec  = "ESK_TLS_INSECURE"
	EnvTelemetryOptIn     = "ESK_TELEMETRY_OPT_IN"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "ESK_LOG_LEVEL"
	EnvLogFormat = "ESK_LOG_FORMAT"
	EnvLogSource = "ESK_LOG_SOURCE"
	EnvLogFile   = "ESK_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "ExamSketch"
	keyringToken   = "collector_token"
)

// tokenStore abstracts keyring, so we can stub in tests.
var tokenStore TokenStore = &osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (k *osKeyring) Get(service, key string) (string, error) { return keyringGet(service, key) }
func (k *osKeyring) Set(service, key, value string) error    { return keyringSet(service, key, value) }
func (k *osKeyring) Delete(service, key string) error        { return keyringDelete(service, key) }

// The following vars are defined in keyring_real.go or keyring_stub.go depending on build tags.
var (
	keyringGet    func(service, key string) (string, error)
	keyringSet    func(service, key, value string) error
	keyringDelete func(service, key string) error
)

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "ExamSketch")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "ExamSketch")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "examsketch")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment
// overrides. The collector token is loaded from the keyring and returned separately.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into the OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if strings.TrimSpace(src.Drawing.Tool) != "" {
		dst.Drawing.Tool = strings.TrimSpace(src.Drawing.Tool)
	}
	if strings.TrimSpace(src.Drawing.Color) != "" {
		dst.Drawing.Color = strings.TrimSpace(src.Drawing.Color)
	}
	if src.Drawing.Thickness > 0 {
		dst.Drawing.Thickness = src.Drawing.Thickness
	}
	if len(src.Drawing.ColorPalette) > 0 {
		dst.Drawing.ColorPalette = append([]string(nil), src.Drawing.ColorPalette...)
	}
	if len(src.Drawing.ThicknessOptions) > 0 {
		dst.Drawing.ThicknessOptions = append([]float64(nil), src.Drawing.ThicknessOptions...)
	}
	if src.Drawing.CanvasWidth > 0 {
		dst.Drawing.CanvasWidth = src.Drawing.CanvasWidth
	}
	if src.Drawing.CanvasHeight > 0 {
		dst.Drawing.CanvasHeight = src.Drawing.CanvasHeight
	}
	if src.Collector.BaseURL != "" {
		dst.Collector.BaseURL = src.Collector.BaseURL
	}
	if src.Collector.TimeoutMs != 0 {
		dst.Collector.TimeoutMs = src.Collector.TimeoutMs
	}
	dst.Collector.TLSInsecure = src.Collector.TLSInsecure
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvCollectorURL)); v != "" {
		cfg.Collector.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCollectorTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Collector.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvCollectorTLSInsec)); v != "" {
		cfg.Collector.TLSInsecure = envBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = envBool(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = envBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func envBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	var name string
	switch key {
	case "collector.base_url":
		name = EnvCollectorURL
	case "collector.timeout_ms":
		name = EnvCollectorTimeoutMs
	case "collector.tls_insecure":
		name = EnvCollectorTLSInsec
	case "general.telemetry_opt_in":
		name = EnvTelemetryOptIn
	case "logging.level":
		name = EnvLogLevel
	case "logging.format":
		name = EnvLogFormat
	case "logging.source":
		name = EnvLogSource
	case "logging.file":
		name = EnvLogFile
	default:
		return "", false
	}
	if os.Getenv(name) != "" {
		return name, true
	}
	return "", false
}

// EffectiveTimeoutMs returns the collector timeout with defaults applied.
func (c CollectorConfig) EffectiveTimeoutMs() int {
	if c.TimeoutMs <= 0 {
		return Defaults().Collector.TimeoutMs
	}
	return c.TimeoutMs
}
