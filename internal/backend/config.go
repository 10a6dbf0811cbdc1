package backend

import (
	"fmt"

	"apledger/internal/config"
	"apledger/internal/gateway/google"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.Backend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.Backend)
	}

	rates, err := appConfig.RateTable()
	if err != nil {
		return Config{}, err
	}

	return Config{
		Type: backendType,

		FilePath:   appConfig.File.Path,
		MemorySeed: appConfig.Memory.Seed,
		SQLitePath: appConfig.SQLite.Path,
		Sheets: google.Config{
			SpreadsheetID:   appConfig.Sheets.SpreadsheetID,
			LedgerSheet:     appConfig.Sheets.LedgerSheet,
			NotesSheet:      appConfig.Sheets.NotesSheet,
			CredentialsFile: appConfig.Sheets.CredentialsFile,
			CredentialsJSON: appConfig.Sheets.CredentialsJSON,
			Rates:           rates,
		},

		AMQPURL:      appConfig.AMQP.URL,
		AMQPExchange: appConfig.AMQP.Exchange,
		AMQPQueue:    appConfig.AMQP.Queue,
		AMQPAttempts: appConfig.AMQP.ConnectAttempts,

		CacheTTL: appConfig.Storage.CacheTTL,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case FileBackend:
		if c.FilePath == "" {
			return fmt.Errorf("file path is required for file backend")
		}
	case SQLiteBackend:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	case MemoryBackend:
		// an empty seed starts with an empty ledger
	}

	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP exchange and queue are required when AMQP URL is set")
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, FileBackend, SQLiteBackend, SheetsBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
