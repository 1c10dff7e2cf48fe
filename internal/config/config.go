package config

import (
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Storage  StorageConfig  `mapstructure:"storage"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Sites    SitesConfig    `mapstructure:"sites"`
	Backup   BackupConfig   `mapstructure:"backup"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

type StorageConfig struct {
	Driver         string `mapstructure:"driver"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	Region         string `mapstructure:"region"`
	Endpoint       string `mapstructure:"endpoint"`
	Bucket         string `mapstructure:"bucket"`
	Directory      string `mapstructure:"directory"`
	DatabasePrefix string `mapstructure:"database_prefix"`
	SitePrefix     string `mapstructure:"site_prefix"`
	LocalPath      string `mapstructure:"local_path"`
}

type MySQLConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Exclude  []string      `mapstructure:"exclude"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type SitesConfig struct {
	RootDirectory string   `mapstructure:"root_directory"`
	IgnoreList    []string `mapstructure:"ignore_list"`
}

type BackupConfig struct {
	WorkDir        string `mapstructure:"work_dir"`
	RetentionDays  int    `mapstructure:"retention_days"`
	TimestampOrder string `mapstructure:"timestamp_order"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

const (
	DriverS3    = "s3"
	DriverLocal = "local"

	OrderDayFirst   = "dmy"
	OrderMonthFirst = "mdy"
)

// envKeys maps config keys to the environment variable names the backup
// scripts have always used.
var envKeys = map[string]string{
	"app.log_level":           "LOG_LEVEL",
	"app.log_file":            "LOG_FILE",
	"storage.driver":          "STORAGE_DRIVER",
	"storage.access_key":      "ACCESS_ID",
	"storage.secret_key":      "SECRET_KEY",
	"storage.region":          "REGION_NAME",
	"storage.endpoint":        "ENDPOINT_URL",
	"storage.bucket":          "BUCKET_NAME",
	"storage.directory":       "BUCKET_DIRECTORY",
	"storage.database_prefix": "DATABASE_PREFIX",
	"storage.site_prefix":     "SITE_PREFIX",
	"storage.local_path":      "LOCAL_STORAGE_PATH",
	"mysql.host":              "MYSQL_ADDRESS",
	"mysql.port":              "MYSQL_PORT",
	"mysql.username":          "MYSQL_USER",
	"mysql.password":          "MYSQL_PASSWORD",
	"mysql.exclude":           "MYSQL_EXCLUDE",
	"mysql.timeout":           "COMMAND_TIMEOUT",
	"sites.root_directory":    "SITES_ROOT_DIRECTORY",
	"sites.ignore_list":       "SITES_IGNORE_LIST",
	"backup.work_dir":         "WORK_DIR",
	"backup.retention_days":   "RETENTION_DAYS",
	"backup.timestamp_order":  "TIMESTAMP_ORDER",
	"telegram.bot_token":      "TELEGRAM_BOT_TOKEN",
	"telegram.chat_id":        "TELEGRAM_CHAT_ID",
}

// Load reads settings from the environment and, when path is not empty, from
// an env file. Environment variables win over the file.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("app.name", "serverbackup")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_file", "server-backup.log")
	v.SetDefault("storage.driver", DriverS3)
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.database_prefix", "db")
	v.SetDefault("storage.site_prefix", "site")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("backup.work_dir", os.TempDir())
	v.SetDefault("backup.retention_days", 7)
	v.SetDefault("backup.timestamp_order", OrderDayFirst)

	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		fileValues, err := readEnvFile(path)
		if err != nil {
			return nil, err
		}
		if err := v.MergeConfigMap(fileValues); err != nil {
			return nil, fmt.Errorf("failed to merge config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func readEnvFile(path string) (map[string]any, error) {
	f := viper.New()
	f.SetConfigFile(path)
	f.SetConfigType("env")
	if err := f.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	nested := make(map[string]any)
	for key, env := range envKeys {
		name := strings.ToLower(env)
		if !f.IsSet(name) {
			continue
		}
		section, field, _ := strings.Cut(key, ".")
		m, ok := nested[section].(map[string]any)
		if !ok {
			m = make(map[string]any)
			nested[section] = m
		}
		m[field] = f.Get(name)
	}
	return nested, nil
}

func (c *Config) normalize() {
	c.MySQL.Exclude = splitList(c.MySQL.Exclude)
	c.Sites.IgnoreList = splitList(c.Sites.IgnoreList)
	c.Storage.Directory = strings.Trim(c.Storage.Directory, "/")
	c.Backup.TimestampOrder = strings.ToLower(strings.TrimSpace(c.Backup.TimestampOrder))
	if c.Storage.Driver == DriverLocal && c.Storage.Bucket == "" {
		c.Storage.Bucket = "backups"
	}
}

// splitList flattens comma separated entries and drops blanks.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverS3:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("BUCKET_NAME is required")
		}
	case DriverLocal:
		if c.Storage.LocalPath == "" {
			return fmt.Errorf("LOCAL_STORAGE_PATH is required for the local driver")
		}
	default:
		return fmt.Errorf("unknown storage driver: %q", c.Storage.Driver)
	}

	if c.Backup.RetentionDays < 0 {
		return fmt.Errorf("RETENTION_DAYS must not be negative")
	}

	if c.Backup.WorkDir == "" {
		return fmt.Errorf("WORK_DIR is required")
	}

	switch c.Backup.TimestampOrder {
	case OrderDayFirst, OrderMonthFirst:
	default:
		return fmt.Errorf("TIMESTAMP_ORDER must be %q or %q", OrderDayFirst, OrderMonthFirst)
	}

	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}

	return nil
}

// ValidateMySQL checks the settings needed by the database command only.
func (c *Config) ValidateMySQL() error {
	if c.MySQL.Host == "" {
		return fmt.Errorf("MYSQL_ADDRESS is required")
	}
	if c.MySQL.Username == "" {
		return fmt.Errorf("MYSQL_USER is required")
	}
	if c.MySQL.Port <= 0 {
		return fmt.Errorf("MYSQL_PORT must be positive")
	}
	return nil
}

// TimestampLayout is the fixed-width time layout embedded in artifact names.
func (b BackupConfig) TimestampLayout() string {
	if b.TimestampOrder == OrderMonthFirst {
		return "01022006_1504"
	}
	return "02012006_1504"
}

func (s StorageConfig) DatabaseDir() string {
	return path.Join(s.Directory, s.DatabasePrefix)
}

func (s StorageConfig) SiteDir() string {
	return path.Join(s.Directory, s.SitePrefix)
}

func (t TelegramConfig) Enabled() bool {
	return t.BotToken != ""
}
