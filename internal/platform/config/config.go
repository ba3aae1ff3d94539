// Package config provides application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Port     int
	LogLevel string

	// Deployment controller access.
	ArgoCDAPI      string
	ArgoCDUsername string
	ArgoCDPassword string
	ArgoCDSkipTLS  bool
	ArgoCDProject  string

	// Optional target-cluster registration (performed after sign-in).
	AddTargetCluster bool
	KubeAPIToken     string
	KubeAPISkipTLS   bool

	// Git identity and credentials for the configuration repository.
	GitEmail    string
	GitName     string
	GitUsername string
	GitPassword string

	// Orchestration bounds. Sync timeout/retry-limit are per-request
	// defaults; the attempt maxima bound the orchestrator's own loops.
	SyncTimeoutSeconds int
	SyncRetryLimit     int
	MaxSyncAttempts    int
	MaxHealthAttempts  int

	// WorkDir is where cloned repositories and manifest artifacts live.
	WorkDir string

	// OpenTelemetry (optional)
	OTelEnabled bool // OTEL_ENABLED feature flag
}

// Load reads configuration from environment variables, validates required
// fields, and applies defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:               8080,
		LogLevel:           "info",
		ArgoCDProject:      "default",
		GitEmail:           "argo-promote@localhost",
		GitName:            "argo-promote",
		SyncTimeoutSeconds: 60,
		SyncRetryLimit:     3,
		MaxSyncAttempts:    2,
		MaxHealthAttempts:  2,
		WorkDir:            os.TempDir(),
	}

	if err := loadCoreConfig(&cfg); err != nil {
		return Config{}, err
	}

	if err := loadControllerConfig(&cfg); err != nil {
		return Config{}, err
	}

	loadGitConfig(&cfg)

	if err := loadOrchestrationConfig(&cfg); err != nil {
		return Config{}, err
	}

	cfg.OTelEnabled = os.Getenv("OTEL_ENABLED") == "true"

	return cfg, nil
}

func loadCoreConfig(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = p
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if v := os.Getenv("WORK_DIR"); v != "" {
		cfg.WorkDir = v
	}

	return nil
}

func loadControllerConfig(cfg *Config) error {
	cfg.ArgoCDAPI = os.Getenv("ARGOCD_API")
	if cfg.ArgoCDAPI == "" {
		return errors.New("ARGOCD_API is required")
	}

	cfg.ArgoCDUsername = os.Getenv("ARGOCD_USERNAME")
	if cfg.ArgoCDUsername == "" {
		return errors.New("ARGOCD_USERNAME is required")
	}

	cfg.ArgoCDPassword = os.Getenv("ARGOCD_PASSWORD")
	if cfg.ArgoCDPassword == "" {
		return errors.New("ARGOCD_PASSWORD is required")
	}

	cfg.ArgoCDSkipTLS = os.Getenv("ARGOCD_SKIP_TLS") == "true"
	cfg.ArgoCDProject = getEnvOrDefault("ARGOCD_PROJECT", cfg.ArgoCDProject)

	cfg.AddTargetCluster = os.Getenv("ARGOCD_ADD_TARGET_CLUSTER") == "true"
	if cfg.AddTargetCluster {
		cfg.KubeAPIToken = os.Getenv("KUBE_API_TOKEN")
		if cfg.KubeAPIToken == "" {
			return errors.New("KUBE_API_TOKEN is required when ARGOCD_ADD_TARGET_CLUSTER is enabled")
		}
		cfg.KubeAPISkipTLS = os.Getenv("KUBE_API_SKIP_TLS") == "true"
	}

	return nil
}

func loadGitConfig(cfg *Config) {
	cfg.GitEmail = getEnvOrDefault("GIT_EMAIL", cfg.GitEmail)
	cfg.GitName = getEnvOrDefault("GIT_NAME", cfg.GitName)
	cfg.GitUsername = os.Getenv("GIT_USERNAME")
	cfg.GitPassword = os.Getenv("GIT_PASSWORD")
}

func loadOrchestrationConfig(cfg *Config) error {
	var err error
	if cfg.SyncTimeoutSeconds, err = parsePositiveIntOrDefault("SYNC_TIMEOUT_SECONDS", cfg.SyncTimeoutSeconds); err != nil {
		return err
	}
	if cfg.SyncRetryLimit, err = parsePositiveIntOrDefault("SYNC_RETRY_LIMIT", cfg.SyncRetryLimit); err != nil {
		return err
	}
	if cfg.MaxSyncAttempts, err = parsePositiveIntOrDefault("MAX_SYNC_ATTEMPTS", cfg.MaxSyncAttempts); err != nil {
		return err
	}
	if cfg.MaxHealthAttempts, err = parsePositiveIntOrDefault("MAX_HEALTH_ATTEMPTS", cfg.MaxHealthAttempts); err != nil {
		return err
	}
	return nil
}

func getEnvOrDefault(envKey, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return defaultValue
}

func parsePositiveIntOrDefault(envKey string, defaultValue int) (int, error) {
	v := os.Getenv(envKey)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", envKey, v)
	}
	return n, nil
}
