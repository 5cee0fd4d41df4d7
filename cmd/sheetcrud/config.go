package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
)

const defaultConfig = `# record set: contact or speech
variant: contact

store:
  # googlesheets, excel or sqlite
  type: excel
  # 0 uses the adapter's recommended retry policy
  max_retries: 0
  retry_interval: 0s

  googlesheets:
    spreadsheet_id: ""
    sheet_name: "Sheet1"
    # empty uses GOOGLE_APPLICATION_CREDENTIALS, then default credentials
    credentials_file: ""

  excel:
    path: "sheetcrud.xlsx"
    sheet_name: "records"

  sqlite:
    path: "sheetcrud.db"
    table: "records"

# Google Cloud Text-to-Speech (speech variant only)
speech:
  enabled: false
  credentials_file: ""
  requests_per_minute: 60
  cache:
    memory_mb: 32
    # empty keeps synthesized audio in memory only
    dir: ""

log:
  # debug, info, warn or error
  level: info
  # logs are discarded while the TUI runs unless a file is set
  file: ""

# directory speech audio is written to
output_dir: "."
`

type appConfig struct {
	Variant   string       `mapstructure:"variant"`
	Store     storeConfig  `mapstructure:"store"`
	Speech    speechConfig `mapstructure:"speech"`
	Log       logConfig    `mapstructure:"log"`
	OutputDir string       `mapstructure:"output_dir"`
}

type storeConfig struct {
	Type          string        `mapstructure:"type"`
	MaxRetries    int           `mapstructure:"max_retries"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`

	GoogleSheets struct {
		SpreadsheetID   string `mapstructure:"spreadsheet_id"`
		SheetName       string `mapstructure:"sheet_name"`
		CredentialsFile string `mapstructure:"credentials_file"`
	} `mapstructure:"googlesheets"`

	Excel struct {
		Path      string `mapstructure:"path"`
		SheetName string `mapstructure:"sheet_name"`
	} `mapstructure:"excel"`

	SQLite struct {
		Path  string `mapstructure:"path"`
		Table string `mapstructure:"table"`
	} `mapstructure:"sqlite"`
}

type speechConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CredentialsFile   string `mapstructure:"credentials_file"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	Cache             struct {
		MemoryMB int    `mapstructure:"memory_mb"`
		Dir      string `mapstructure:"dir"`
	} `mapstructure:"cache"`
}

type logConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("variant", "contact")
	v.SetDefault("store.type", "excel")
	v.SetDefault("store.max_retries", 0)
	v.SetDefault("store.retry_interval", "0s")
	v.SetDefault("store.googlesheets.spreadsheet_id", "")
	v.SetDefault("store.googlesheets.sheet_name", "Sheet1")
	v.SetDefault("store.googlesheets.credentials_file", "")
	v.SetDefault("store.excel.path", "sheetcrud.xlsx")
	v.SetDefault("store.excel.sheet_name", "records")
	v.SetDefault("store.sqlite.path", "sheetcrud.db")
	v.SetDefault("store.sqlite.table", "records")
	v.SetDefault("speech.enabled", false)
	v.SetDefault("speech.credentials_file", "")
	v.SetDefault("speech.requests_per_minute", 60)
	v.SetDefault("speech.cache.memory_mb", 32)
	v.SetDefault("speech.cache.dir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("output_dir", ".")
}

// configDirs lists where sheetcrud.yml is looked up, most specific first
func configDirs() ([]string, error) {
	scope := gap.NewScope(gap.User, "sheetcrud")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		return nil, fmt.Errorf("could not find configuration directory: %w", err)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "sheetcrud")}, dirs...)
	}

	if c := os.Getenv("SHEETCRUD_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}
	return dirs, nil
}

// loadConfig reads .env, then the config file (explicit or searched), then
// SHEETCRUD_* environment variables. It returns the file it would use.
func loadConfig(v *viper.Viper, explicit string) (*appConfig, string, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("unable to read .env: %w", err)
	}

	setDefaults(v)
	v.SetEnvPrefix("sheetcrud")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var configFile string
	if explicit != "" {
		configFile = explicit
		v.SetConfigFile(explicit)
	} else {
		dirs, err := configDirs()
		if err != nil {
			return nil, "", err
		}
		for _, d := range dirs {
			v.AddConfigPath(d)
		}
		v.SetConfigName("sheetcrud")
		v.SetConfigType("yaml")
		configFile = filepath.Join(dirs[0], "sheetcrud.yml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
		case explicit != "" && errors.Is(err, fs.ErrNotExist):
		default:
			return nil, "", fmt.Errorf("could not parse configuration file: %w", err)
		}
	}
	if used := v.ConfigFileUsed(); used != "" {
		configFile = used
	}

	var cfg appConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, configFile, nil
}

// ensureConfigFile writes the default configuration when the file is missing
func ensureConfigFile(configFile string) (bool, error) {
	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return false, fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("unable to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
		return false, fmt.Errorf("unable create directory: %w", err)
	}
	if err := os.WriteFile(configFile, []byte(defaultConfig), 0o600); err != nil {
		return false, fmt.Errorf("unable to write config file: %w", err)
	}
	return true, nil
}
