package config

import (
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	required := map[string]string{
		"ARGOCD_API":      "argocd.example.com",
		"ARGOCD_USERNAME": "admin",
		"ARGOCD_PASSWORD": "secret",
	}

	tests := []struct {
		name    string
		env     map[string]string
		want    Config
		wantErr bool
		errMsg  string
	}{
		{
			name: "all vars set",
			env: map[string]string{
				"ARGOCD_API":           "argocd.example.com",
				"ARGOCD_USERNAME":      "admin",
				"ARGOCD_PASSWORD":      "secret",
				"ARGOCD_SKIP_TLS":      "true",
				"ARGOCD_PROJECT":       "payments",
				"PORT":                 "9000",
				"LOG_LEVEL":            "debug",
				"GIT_EMAIL":            "bot@example.com",
				"GIT_NAME":             "bot",
				"GIT_USERNAME":         "robot",
				"GIT_PASSWORD":         "hunter2",
				"SYNC_TIMEOUT_SECONDS": "120",
				"SYNC_RETRY_LIMIT":     "5",
				"MAX_SYNC_ATTEMPTS":    "3",
				"MAX_HEALTH_ATTEMPTS":  "4",
				"WORK_DIR":             "/var/lib/argo-promote",
			},
			want: Config{
				Port:               9000,
				LogLevel:           "debug",
				ArgoCDAPI:          "argocd.example.com",
				ArgoCDUsername:     "admin",
				ArgoCDPassword:     "secret",
				ArgoCDSkipTLS:      true,
				ArgoCDProject:      "payments",
				GitEmail:           "bot@example.com",
				GitName:            "bot",
				GitUsername:        "robot",
				GitPassword:        "hunter2",
				SyncTimeoutSeconds: 120,
				SyncRetryLimit:     5,
				MaxSyncAttempts:    3,
				MaxHealthAttempts:  4,
				WorkDir:            "/var/lib/argo-promote",
			},
		},
		{
			name: "defaults for optional vars",
			env:  required,
			want: Config{
				Port:               8080,
				LogLevel:           "info",
				ArgoCDAPI:          "argocd.example.com",
				ArgoCDUsername:     "admin",
				ArgoCDPassword:     "secret",
				ArgoCDProject:      "default",
				GitEmail:           "argo-promote@localhost",
				GitName:            "argo-promote",
				SyncTimeoutSeconds: 60,
				SyncRetryLimit:     3,
				MaxSyncAttempts:    2,
				MaxHealthAttempts:  2,
			},
		},
		{
			name: "missing ARGOCD_API",
			env: map[string]string{
				"ARGOCD_USERNAME": "admin",
				"ARGOCD_PASSWORD": "secret",
			},
			wantErr: true,
			errMsg:  "ARGOCD_API",
		},
		{
			name: "missing ARGOCD_USERNAME",
			env: map[string]string{
				"ARGOCD_API":      "argocd.example.com",
				"ARGOCD_PASSWORD": "secret",
			},
			wantErr: true,
			errMsg:  "ARGOCD_USERNAME",
		},
		{
			name: "missing ARGOCD_PASSWORD",
			env: map[string]string{
				"ARGOCD_API":      "argocd.example.com",
				"ARGOCD_USERNAME": "admin",
			},
			wantErr: true,
			errMsg:  "ARGOCD_PASSWORD",
		},
		{
			name: "target cluster requires token",
			env: map[string]string{
				"ARGOCD_API":                "argocd.example.com",
				"ARGOCD_USERNAME":           "admin",
				"ARGOCD_PASSWORD":           "secret",
				"ARGOCD_ADD_TARGET_CLUSTER": "true",
			},
			wantErr: true,
			errMsg:  "KUBE_API_TOKEN",
		},
		{
			name: "invalid PORT",
			env: map[string]string{
				"ARGOCD_API":      "argocd.example.com",
				"ARGOCD_USERNAME": "admin",
				"ARGOCD_PASSWORD": "secret",
				"PORT":            "not-a-number",
			},
			wantErr: true,
			errMsg:  "PORT",
		},
		{
			name: "invalid MAX_SYNC_ATTEMPTS",
			env: map[string]string{
				"ARGOCD_API":        "argocd.example.com",
				"ARGOCD_USERNAME":   "admin",
				"ARGOCD_PASSWORD":   "secret",
				"MAX_SYNC_ATTEMPTS": "0",
			},
			wantErr: true,
			errMsg:  "MAX_SYNC_ATTEMPTS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Fatalf("Load() expected error containing %q, got nil", tt.errMsg)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Load() error = %v, want error containing %q", err, tt.errMsg)
				}
				return
			}

			if err != nil {
				t.Fatalf("Load() unexpected error = %v", err)
			}

			// WorkDir defaults to the OS temp dir; pin it for comparison
			// when the test didn't set it explicitly.
			if tt.env["WORK_DIR"] == "" {
				got.WorkDir = ""
			}

			if got != tt.want {
				t.Errorf("Load() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
