package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/angas/eloverblik-exporter/logging"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "ELOVERBLIK_EXPORTER"
	DataDirEnv = EnvPrefix + "_DATA_DIR"
)

type AppConfigApi struct {
	Address string
	Port    int
}

type AppConfigMetrics struct {
	Address string
	Port    int
}

type AppConfigDatabase struct {
	Path string
	// How many days data should be stored in database before it gets purged
	DataRetentionDays int `mapstructure:"data_retention_days"`
	// How many days daily backup files should be stored before they gets deleted
	BackupRetentionDays int `mapstructure:"backup_retention_days"`
}

type AppConfigEloverblik struct {
	RefreshToken string `mapstructure:"refresh_token"`
	BaseURL      string `mapstructure:"base_url"`
	// Exported metering points, all points of the token when empty
	MeteringPoints  []string `mapstructure:"metering_points"`
	CoalesceRefresh bool     `mapstructure:"coalesce_refresh"`
	DisablePacing   bool     `mapstructure:"disable_pacing"`
}

type AppConfigCache struct {
	Backend string        // "memory" or "disk"
	Dir     string        // Root of the disk cache
	TTL     time.Duration `mapstructure:"ttl"` // Lifetime of an access token
}

type AppConfigEnergyPrice struct {
	Area         string   `mapstructure:"area"`          // "DK1" or "DK2"
	Tax          float64  `mapstructure:"tax"`           // Energy tax in DKK/kWh (elafgift)
	ExchangeRate float64  `mapstructure:"exchange_rate"` // DKK per EUR
	Providers    []string `mapstructure:"providers"`     // Tried in order: "energidataservice", "nordpool", "database"

	EnergiDataServiceURL string `mapstructure:"energidataservice_url"`
	NordpoolURL          string `mapstructure:"nordpool_url"`
}

type AppConfigExport struct {
	RunAt    string `mapstructure:"run_at"`
	DaysBack int    `mapstructure:"days_back"`
}

type AppConfigMaintenance struct {
	RunAt string `mapstructure:"run_at"`
}

type AppConfigMqtt struct {
	Enabled     bool
	Host        string
	Port        int
	Username    string
	Password    string
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	Retain      bool
}

type AppConfigStore struct {
	// Directory for raw documents, disabled when empty
	FsDir string `mapstructure:"fs_dir"`
	Mqtt  AppConfigMqtt
}

type AppConfigDisplay struct {
	// Timezone for displaying times in the API, default: UTC
	Timezone string `mapstructure:"timezone"`
}

func (d AppConfigDisplay) Location() *time.Location {
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type AppConfigLogging struct {
	// Min log level for database : "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	DbLevel string `mapstructure:"db_level"`
	// Log attributes format: "TEXT", "JSON", default: "JSON"
	DbAttrsFormat string `mapstructure:"db_attrs_format"`
	// Maximum number of log entries in the database, default: 10000
	DbMaxEntries int `mapstructure:"db_max_entries"`
	// Min log level for console: "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	ConsoleLevel string `mapstructure:"console_level"`
}

func (l AppConfigLogging) GetDbLevel() slog.Level {
	return logging.LevelFromString(l.DbLevel)
}

func (l AppConfigLogging) GetDbAttrsFormat() logging.LogAttrFormat {
	if strings.EqualFold(l.DbAttrsFormat, "text") {
		return logging.LogAttrFormatText
	}
	return logging.LogAttrFormatJSON
}

func (l AppConfigLogging) GetConsoleLevel() slog.Level {
	return logging.LevelFromString(l.ConsoleLevel)
}

type AppConfig struct {
	DataDir     string `mapstructure:"-"`
	Api         AppConfigApi
	Metrics     AppConfigMetrics
	Database    AppConfigDatabase
	Eloverblik  AppConfigEloverblik
	Cache       AppConfigCache
	EnergyPrice AppConfigEnergyPrice `mapstructure:"energy_price"`
	Export      AppConfigExport
	Maintenance AppConfigMaintenance
	Store       AppConfigStore
	Display     AppConfigDisplay
	Logging     AppConfigLogging
}

// Source reads the configuration from an optional yaml file and the
// environment, and keeps watching the file once loaded.
type Source struct {
	v       *viper.Viper
	dataDir string
}

// NewSource uses path when given, otherwise config.yaml in the data
// directory. The data directory is taken from ELOVERBLIK_EXPORTER_DATA_DIR.
func NewSource(path string) *Source {
	dataDir := os.Getenv(DataDirEnv)
	if dataDir == "" {
		dataDir = "./"
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(dataDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()
	setDefaults(v, dataDir)

	return &Source{v: v, dataDir: dataDir}
}

func setDefaults(v *viper.Viper, dataDir string) {
	v.SetDefault("api.address", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("metrics.address", "0.0.0.0")
	v.SetDefault("metrics.port", 9000)

	v.SetDefault("database.path", filepath.Join(dataDir, "eloverblik.db"))
	v.SetDefault("database.data_retention_days", 90)
	v.SetDefault("database.backup_retention_days", 90)

	v.SetDefault("eloverblik.refresh_token", "")
	v.SetDefault("eloverblik.base_url", "")
	v.SetDefault("eloverblik.metering_points", []string{})
	v.SetDefault("eloverblik.coalesce_refresh", false)
	v.SetDefault("eloverblik.disable_pacing", false)

	v.SetDefault("cache.backend", "disk")
	v.SetDefault("cache.dir", filepath.Join(dataDir, "cache"))
	v.SetDefault("cache.ttl", 24*time.Hour)

	v.SetDefault("energy_price.area", "DK1")
	v.SetDefault("energy_price.tax", 0.0)
	v.SetDefault("energy_price.exchange_rate", 7.46)
	v.SetDefault("energy_price.providers", []string{"energidataservice", "nordpool", "database"})
	v.SetDefault("energy_price.energidataservice_url", "")
	v.SetDefault("energy_price.nordpool_url", "")

	v.SetDefault("export.run_at", "0 7 * * *")
	v.SetDefault("export.days_back", 7)
	v.SetDefault("maintenance.run_at", "0 3 * * *")

	v.SetDefault("store.fs_dir", "")
	v.SetDefault("store.mqtt.enabled", false)
	v.SetDefault("store.mqtt.host", "localhost")
	v.SetDefault("store.mqtt.port", 1883)
	v.SetDefault("store.mqtt.username", "")
	v.SetDefault("store.mqtt.password", "")
	v.SetDefault("store.mqtt.client_id", "eloverblik-exporter")
	v.SetDefault("store.mqtt.topic_prefix", "eloverblik")
	v.SetDefault("store.mqtt.retain", true)

	v.SetDefault("display.timezone", "UTC")

	v.SetDefault("logging.console_level", "INFO")
	v.SetDefault("logging.db_level", "INFO")
	v.SetDefault("logging.db_attrs_format", "JSON")
	v.SetDefault("logging.db_max_entries", 10000)
}

// Load reads the file, if any, and unmarshals the merged configuration.
func (s *Source) Load() (*AppConfig, error) {
	if err := s.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
	}
	return s.unmarshal()
}

func (s *Source) unmarshal() (*AppConfig, error) {
	var c AppConfig
	if err := s.v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config file: %w", err)
	}
	c.DataDir = s.dataDir
	return &c, nil
}

// File is the config file in use, empty when running on defaults and env.
func (s *Source) File() string {
	return s.v.ConfigFileUsed()
}

// Watch calls onChange with the reloaded configuration every time the file
// is written. Nothing is watched when no file was read.
func (s *Source) Watch(logger *slog.Logger, onChange func(*AppConfig)) {
	if s.File() == "" {
		return
	}
	logger = logger.With("module", "config")
	s.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		c, err := s.unmarshal()
		if err != nil {
			logger.Error("reloading config failed", slog.String("file", e.Name), slog.Any("error", err))
			return
		}
		logger.Info("config reloaded", slog.String("file", e.Name))
		onChange(c)
	})
	s.v.WatchConfig()
}

func Load(path string) (*AppConfig, error) {
	return NewSource(path).Load()
}
