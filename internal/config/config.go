package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"apledger/internal/core"
)

// EnvPrefix prefixes every environment override, e.g. APLEDGER_SQLITE_PATH.
const EnvPrefix = "APLEDGER"

// Backend names accepted by the backend key.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
)

type Config struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=memory file sqlite sheets"`

	File struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"file"`

	// Seed is an optional YAML document loaded into the memory backend.
	Memory struct {
		Seed string `mapstructure:"seed"`
	} `mapstructure:"memory"`

	SQLite struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"sqlite"`

	Sheets SheetsConfig `mapstructure:"sheets"`

	AMQP struct {
		URL             string `mapstructure:"url"`
		Exchange        string `mapstructure:"exchange"`
		Queue           string `mapstructure:"queue"`
		ConnectAttempts int    `mapstructure:"connect_attempts" validate:"gte=1,lte=20"`
	} `mapstructure:"amqp"`

	Currency struct {
		// Rates maps a currency code to its default exchange rate.
		Rates map[string]string `mapstructure:"rates"`
	} `mapstructure:"currency"`

	Window struct {
		Days int `mapstructure:"days" validate:"gte=0,lte=366"`
	} `mapstructure:"window"`

	Auth struct {
		PasswordHash string `mapstructure:"password_hash"`
	} `mapstructure:"auth"`

	Log struct {
		Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	} `mapstructure:"log"`

	Worker struct {
		// ResyncInterval is how often the worker copies everything; 0 disables it.
		ResyncInterval time.Duration `mapstructure:"resync_interval" validate:"gte=0"`
	} `mapstructure:"worker"`

	Storage struct {
		RetryAttempts int           `mapstructure:"retry_attempts" validate:"gte=1,lte=10"`
		RetryDelay    time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
		CacheTTL      time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
	} `mapstructure:"storage"`
}

type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	LedgerSheet     string `mapstructure:"ledger_sheet"`
	NotesSheet      string `mapstructure:"notes_sheet"`
	CredentialsFile string `mapstructure:"credentials_file"`
	CredentialsJSON string `mapstructure:"credentials_json"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendFile)
	v.SetDefault("file.path", "./data/apledger.yaml")
	v.SetDefault("memory.seed", "")
	v.SetDefault("sqlite.path", "./data/apledger.db")

	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.ledger_sheet", "Sheet1")
	v.SetDefault("sheets.notes_sheet", "special_notes")
	v.SetDefault("sheets.credentials_file", "")
	v.SetDefault("sheets.credentials_json", "")

	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "apledger")
	v.SetDefault("amqp.queue", "sync_ledger")
	v.SetDefault("amqp.connect_attempts", 5)

	v.SetDefault("currency.rates", map[string]string{"USD": "1350"})
	v.SetDefault("window.days", 14)
	v.SetDefault("auth.password_hash", "")
	v.SetDefault("log.level", "info")

	v.SetDefault("worker.resync_interval", "10m")

	v.SetDefault("storage.retry_attempts", 3)
	v.SetDefault("storage.retry_delay", "500ms")
	v.SetDefault("storage.cache_ttl", "30s")
}

// Load reads .env, then the config file (path, or ./apledger.yaml when path
// is empty and the file exists), then APLEDGER_* environment overrides. The
// result is validated before it is returned.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("apledger")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	// viper lower-cases map keys
	rates := make(map[string]string, len(c.Currency.Rates))
	for k, v := range c.Currency.Rates {
		rates[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	c.Currency.Rates = rates
}

var validate = validator.New()

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				problems = append(problems, fmt.Sprintf("invalid %s '%v': must satisfy %s", fe.Namespace(), fe.Value(), constraint(fe)))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	switch c.Backend {
	case BackendFile:
		if c.File.Path == "" {
			problems = append(problems, "file path cannot be empty when using file backend")
		}
	case BackendSQLite:
		if c.SQLite.Path == "" {
			problems = append(problems, "SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendSheets:
		if c.Sheets.SpreadsheetID == "" {
			problems = append(problems, "Google Spreadsheet ID is required when using sheets backend")
		}
	}

	if c.AMQP.URL != "" {
		if parsed, err := url.Parse(c.AMQP.URL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQP.URL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQP.Exchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQP.Queue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := c.RateTable(); err != nil {
		problems = append(problems, err.Error())
	}

	if c.Auth.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(c.Auth.PasswordHash)); err != nil {
			problems = append(problems, fmt.Sprintf("invalid auth password hash: %v", err))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func constraint(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

// RateTable parses the configured default exchange rates.
func (c *Config) RateTable() (core.RateTable, error) {
	codes := make([]string, 0, len(c.Currency.Rates))
	for code := range c.Currency.Rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	table := core.RateTable{}
	for _, code := range codes {
		cur, err := core.ParseCurrency(code)
		if err != nil {
			return nil, fmt.Errorf("invalid currency '%s' in currency rates", code)
		}
		rate, err := core.ParseRate(c.Currency.Rates[code])
		if err != nil {
			return nil, fmt.Errorf("invalid default rate '%s' for %s: must be a positive number", c.Currency.Rates[code], cur)
		}
		table[cur] = rate
	}
	return table, nil
}

// WindowDays returns the default look-ahead of the list view.
func (c *Config) WindowDays() int {
	return c.Window.Days
}

// RequireMirror reports whether the mirror worker has what it needs.
func (c *Config) RequireMirror() error {
	var problems []string
	if c.AMQP.URL == "" {
		problems = append(problems, "AMQP URL is required for the mirror worker")
	}
	if c.Sheets.SpreadsheetID == "" {
		problems = append(problems, "Google Spreadsheet ID is required for the mirror worker")
	}
	if c.Backend == BackendSheets {
		problems = append(problems, "the mirror worker needs a primary backend other than sheets")
	}
	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}
