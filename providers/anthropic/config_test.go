package anthropic

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/haowjy/tyrell-go"
)

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    Config
		wantErr error
	}{
		{
			name: "defaults",
			env:  map[string]string{EnvAPIKey: "sk-ant-1"},
			want: Config{APIKey: "sk-ant-1", BaseURL: DefaultBaseURL, Version: DefaultVersion, Timeout: DefaultTimeout},
		},
		{
			name: "overrides",
			env: map[string]string{
				EnvAPIKey:  "sk-ant-2",
				EnvBaseURL: "http://localhost:8080",
				EnvVersion: "2024-01-01",
				EnvTimeout: "45s",
			},
			want: Config{APIKey: "sk-ant-2", BaseURL: "http://localhost:8080", Version: "2024-01-01", Timeout: 45 * time.Second},
		},
		{
			name: "timeout in seconds",
			env:  map[string]string{EnvAPIKey: "k", EnvTimeout: "90"},
			want: Config{APIKey: "k", BaseURL: DefaultBaseURL, Version: DefaultVersion, Timeout: 90 * time.Second},
		},
		{
			name:    "missing key",
			env:     map[string]string{EnvAPIKey: ""},
			wantErr: tyrell.ErrInvalidAPIKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{EnvAPIKey, EnvBaseURL, EnvVersion, EnvTimeout} {
				t.Setenv(key, tt.env[key])
			}

			got, err := LoadConfig()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("LoadConfig() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("LoadConfig() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadConfig_BadTimeout(t *testing.T) {
	for _, v := range []string{"soon", "-5s", "0"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv(EnvAPIKey, "k")
			t.Setenv(EnvTimeout, v)
			if _, err := LoadConfig(); err == nil {
				t.Errorf("LoadConfig() with %s=%q error = nil, want error", EnvTimeout, v)
			}
		})
	}
}

func TestLoadEnv_WalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, ".env"), []byte("TYRELL_TEST_FROM_DOTENV=found\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	t.Chdir(nested)
	t.Setenv("TYRELL_TEST_FROM_DOTENV", "")
	os.Unsetenv("TYRELL_TEST_FROM_DOTENV")

	LoadEnv()
	if got := os.Getenv("TYRELL_TEST_FROM_DOTENV"); got != "found" {
		t.Errorf("TYRELL_TEST_FROM_DOTENV = %q, want %q from the parent .env", got, "found")
	}
}
