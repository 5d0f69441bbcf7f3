package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BANKEN_DB_PATH", "")
	t.Setenv("BANKEN_CHART_PATH", "")
	t.Setenv("BANKEN_CURRENCY", "")
	t.Setenv("BANKEN_TRANSFER_START", "")
	t.Setenv("DEBUG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load unexpected error: %v", err)
	}
	if cfg.DBPath != "./data/banken.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.Currency != "EUR" {
		t.Errorf("Currency = %q", cfg.Currency)
	}
	if cfg.TransferStart.String() != "2020-01-01" {
		t.Errorf("TransferStart = %s", cfg.TransferStart)
	}
	if cfg.Debug {
		t.Error("Debug defaulted to true")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BANKEN_DB_PATH", "/tmp/ledger.db")
	t.Setenv("BANKEN_CURRENCY", "CHF")
	t.Setenv("BANKEN_TRANSFER_START", "2023-07-01")
	t.Setenv("DEBUG", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load unexpected error: %v", err)
	}
	if cfg.DBPath != "/tmp/ledger.db" || cfg.Currency != "CHF" || !cfg.Debug {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.TransferStart.String() != "2023-07-01" {
		t.Errorf("TransferStart = %s", cfg.TransferStart)
	}
}

func TestLoadInvalidStartDate(t *testing.T) {
	t.Setenv("BANKEN_TRANSFER_START", "01.07.2023")

	if _, err := Load(); err == nil {
		t.Error("Load accepted a non-ISO transfer start date")
	}
}

func TestValidate(t *testing.T) {
	chartPath := filepath.Join(t.TempDir(), "chart.yaml")
	if err := os.WriteFile(chartPath, []byte("accounts: []\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{DBPath: "/tmp/x.db", ChartPath: chartPath}, false},
		{"missing db path", Config{ChartPath: chartPath}, true},
		{"missing chart file", Config{DBPath: "/tmp/x.db", ChartPath: "/nonexistent/chart.yaml"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
