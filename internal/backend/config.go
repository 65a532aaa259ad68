package backend

import (
	"fmt"

	"horeca/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		Type:                BackendType(appConfig.DataBackend),
		Ledger:              LedgerType(appConfig.LedgerSource),
		SQLiteDBPath:        appConfig.SQLiteDBPath,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		LedgerSheetName:     appConfig.LedgerSheetName,
		ResultSheetName:     appConfig.ResultSheetName,
		SheetsCacheTTL:      appConfig.SheetsCacheTTL,
	}
	if cfg.Ledger == "" {
		cfg.Ledger = LedgerStore
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if !c.Ledger.IsValid() {
		return fmt.Errorf("invalid ledger source: %s", c.Ledger)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	if c.usesSheets() && c.GoogleSpreadsheetID == "" {
		return fmt.Errorf("Google Spreadsheet ID is required to read the ledger or results from sheets")
	}
	return nil
}

func (c Config) usesSheets() bool {
	return c.Ledger == LedgerSheets || c.ResultSheetName != ""
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, MemoryBackend}
}
