package tokens

import (
	"strings"
	"testing"

	"pdf2image/internal/config"
)

func TestLoadMapValidateAndRateLimit(t *testing.T) {
	LoadMap(map[string]int{"alpha": 30, "beta": 0})

	if !Ready() {
		t.Fatalf("expected store ready after LoadMap")
	}
	if !Validate("alpha") || !Validate("beta") {
		t.Fatalf("expected loaded tokens to validate")
	}
	if Validate("gamma") {
		t.Fatalf("expected unknown token to fail validation")
	}
	if got := RateLimit("alpha"); got != 30 {
		t.Fatalf("expected rate limit 30, got %d", got)
	}
	if got := RateLimit("gamma"); got != 0 {
		t.Fatalf("expected 0 for unknown token, got %d", got)
	}
}

func TestLoadMap_NilReturnsStoreToUnloaded(t *testing.T) {
	LoadMap(map[string]int{"alpha": 30})
	if !Ready() {
		t.Fatalf("expected store ready after LoadMap")
	}

	LoadMap(nil)
	if Ready() {
		t.Fatalf("expected store not ready after LoadMap(nil)")
	}
	if Validate("alpha") {
		t.Fatalf("expected no tokens to validate after reset")
	}
	if got := RateLimit("alpha"); got != 0 {
		t.Fatalf("expected rate limit 0 after reset, got %d", got)
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.PostgresConfig
		want    string
		wantErr bool
	}{
		{
			name: "full",
			cfg:  config.PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "tokens", SSLMode: "disable"},
			want: "postgres://u:p@db:5433/tokens?sslmode=disable",
		},
		{
			name: "default port no password",
			cfg:  config.PostgresConfig{Host: "db", User: "u", Database: "tokens"},
			want: "postgres://u@db:5432/tokens",
		},
		{name: "missing host", cfg: config.PostgresConfig{User: "u", Database: "d"}, wantErr: true},
		{name: "missing database", cfg: config.PostgresConfig{Host: "db", User: "u"}, wantErr: true},
		{name: "missing user", cfg: config.PostgresConfig{Host: "db", Database: "d"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := dsn(tc.cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("dsn: %v", err)
			}
			if got != tc.want {
				t.Fatalf("dsn = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLoad_BadConfig(t *testing.T) {
	err := Load(config.PostgresConfig{})
	if err == nil || !strings.Contains(err.Error(), "postgres host is empty") {
		t.Fatalf("expected host error, got %v", err)
	}
}
